package domain

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single conversation turn in the provider-agnostic shape used
// by the handler, the session store and the Bedrock integration. Content is
// an ordered list of parts; a plain chat turn carries a single text part.
type Message struct {
	Role    Role           `json:"role"`
	Content []ContentBlock `json:"content"`
}

// ContentBlock is one part of a message: text, an image or a document.
// Exactly one field is set.
type ContentBlock struct {
	Text     string         `json:"text,omitempty"`
	Image    *ImageBlock    `json:"image,omitempty"`
	Document *DocumentBlock `json:"document,omitempty"`
}

// ImageBlock carries raw image bytes tagged with their format ("png", "jpeg").
type ImageBlock struct {
	Format string `json:"format"`
	Data   []byte `json:"-"`
}

// DocumentBlock carries raw document bytes tagged with format and name.
type DocumentBlock struct {
	Format string `json:"format"`
	Name   string `json:"name"`
	Data   []byte `json:"-"`
}

// NewTextMessage builds a single-part text message.
func NewTextMessage(role Role, text string) Message {
	return Message{
		Role:    role,
		Content: []ContentBlock{{Text: text}},
	}
}

// FirstText returns the text of the first text part, or "" if none exists.
func (m Message) FirstText() string {
	for _, c := range m.Content {
		if c.Image == nil && c.Document == nil {
			return c.Text
		}
	}
	return ""
}
