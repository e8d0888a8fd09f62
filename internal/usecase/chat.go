package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"rag-portal/internal/appconfig"
	"rag-portal/internal/domain"
)

// SearchClient is the document search surface the orchestrator depends on.
type SearchClient interface {
	Search(ctx context.Context, query, categoryKey string) ([]domain.SearchResult, error)
}

// LLMClient is the inference surface the orchestrator depends on.
type LLMClient interface {
	Converse(ctx context.Context, in domain.ConverseRequest) (string, error)
}

// Conversation is a handle on one tab's history. The orchestrator mutates
// it only through the append operations; *session.Tab satisfies it.
type Conversation interface {
	Messages() []domain.Message
	Append(msg domain.Message)
	AppendUserTurn(text string)
	AppendAssistantTurn(text string)
	Len() int
	LastRole() domain.Role
}

// ChatService orchestrates the three flows: retrieval-augmented answer,
// search-only answer, and multimodal/plain chat answer.
type ChatService struct {
	search SearchClient
	store  ObjectStore
	llm    LLMClient
	logger *slog.Logger
}

// NewChatService creates a ChatService over the injected service handles.
func NewChatService(search SearchClient, store ObjectStore, llm LLMClient, logger *slog.Logger) (*ChatService, error) {
	if search == nil {
		return nil, errors.New("usecase: search client must not be nil")
	}
	if store == nil {
		return nil, errors.New("usecase: object store must not be nil")
	}
	if llm == nil {
		return nil, errors.New("usecase: llm client must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatService{search: search, store: store, llm: llm, logger: logger}, nil
}

// RagSearch runs the retrieval-augmented flow: search the index, resolve
// signed links, fold the references and the question into the history, and
// ask the model. The caller appends the returned answer as the assistant
// turn; on error the history keeps whatever turns were appended before the
// failure.
func (s *ChatService) RagSearch(ctx context.Context, conv Conversation, question, modelID string, temperature float32, categoryKey string) (string, []domain.SignedDocumentLink, error) {
	results, err := s.search.Search(ctx, question, categoryKey)
	if err != nil {
		return "", nil, newError(ErrorUpstream, "kendra_query_error", err)
	}

	resolutions, err := ResolveLinks(ctx, s.store, s.logger, results)
	if err != nil {
		return "", nil, newError(ErrorUpstream, "storage_head_error", err)
	}
	links := CollectLinks(resolutions)

	if err := ValidateAlternation(conv.Messages()); err != nil {
		return "", nil, err
	}

	conv.AppendAssistantTurn("Kendra検索結果:\n\n" + formatDocumentReferences(links))
	conv.AppendUserTurn(question)

	answer, err := s.llm.Converse(ctx, domain.ConverseRequest{
		ModelID:     modelID,
		Messages:    conv.Messages(),
		System:      appconfig.SystemPrompt,
		Temperature: &temperature,
	})
	if err != nil {
		return "", nil, newError(ErrorUpstream, "converse_error", err)
	}
	if answer == "" {
		return "", nil, newError(ErrorEmptyModelResponse, "no_content", nil)
	}
	return answer, links, nil
}

// KendraSearch runs the search-only flow and returns the resolved links.
// No inference call is made and no history is touched here; the caller
// records a summary turn.
func (s *ChatService) KendraSearch(ctx context.Context, query, categoryKey string) ([]domain.SignedDocumentLink, error) {
	results, err := s.search.Search(ctx, query, categoryKey)
	if err != nil {
		return nil, newError(ErrorUpstream, "kendra_query_error", err)
	}
	resolutions, err := ResolveLinks(ctx, s.store, s.logger, results)
	if err != nil {
		return nil, newError(ErrorUpstream, "storage_head_error", err)
	}
	return CollectLinks(resolutions), nil
}

// InvokeWithFile runs the multimodal flow for an uploaded file. Format and
// history problems are returned as errors before any inference call; an
// inference failure or an empty model reply is folded into the answer text
// instead of returned.
func (s *ChatService) InvokeWithFile(ctx context.Context, conv Conversation, question string, file domain.UploadedFile) (string, error) {
	format, ok := appconfig.SupportedFormats[file.MediaType]
	if !ok {
		return "", newError(ErrorUnsupportedFormat, "unknown_media_type", nil)
	}

	var fileBlock domain.ContentBlock
	var defaultQuestion string
	switch format {
	case "png", "jpeg":
		fileBlock = domain.ContentBlock{Image: &domain.ImageBlock{Format: format, Data: file.Data}}
		defaultQuestion = fmt.Sprintf("アップロードされた画像（%s）の内容を要約してください。", format)
	case "pdf":
		fileBlock = domain.ContentBlock{Document: &domain.DocumentBlock{
			Format: format,
			Name:   appconfig.FixedDocumentPartName,
			Data:   file.Data,
		}}
		defaultQuestion = fmt.Sprintf("アップロードされたPDF（%s）の内容を要約してください。", file.Name)
	default:
		return "", newError(ErrorUnsupportedFormat, "format_not_invokable", nil)
	}

	if strings.TrimSpace(question) == "" {
		question = defaultQuestion
	}

	if err := NormalizeConversationTail(conv); err != nil {
		return "", err
	}
	conv.Append(domain.Message{
		Role: domain.RoleUser,
		Content: []domain.ContentBlock{
			{Text: fmt.Sprintf("Uploaded %s content:", format)},
			fileBlock,
			{Text: question},
		},
	})

	maxTokens := appconfig.ChatMaxTokens
	temperature := appconfig.ChatTemperature
	answer, err := s.llm.Converse(ctx, domain.ConverseRequest{
		ModelID:     appconfig.ModelClaude3Haiku,
		Messages:    conv.Messages(),
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		s.logger.Warn("multimodal converse failed", "err", err)
		return fmt.Sprintf("エラーが発生しました: %v", err), nil
	}
	if answer == "" {
		s.logger.Warn("multimodal converse returned no content")
		return "エラーが発生しました: モデルから応答がありませんでした。", nil
	}
	return answer, nil
}

// InvokeWithoutFile runs the plain chat flow over the already-accumulated
// history, which the caller has ended with the new user turn.
func (s *ChatService) InvokeWithoutFile(ctx context.Context, conv Conversation) (string, error) {
	maxTokens := appconfig.ChatMaxTokens
	temperature := appconfig.ChatTemperature
	answer, err := s.llm.Converse(ctx, domain.ConverseRequest{
		ModelID:     appconfig.ModelClaude35Sonnet,
		Messages:    conv.Messages(),
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		return "", newError(ErrorUpstream, "converse_error", err)
	}
	if answer == "" {
		return "", newError(ErrorEmptyModelResponse, "no_content", nil)
	}
	return answer, nil
}

// formatDocumentReferences renders the links as a Markdown list for the
// synthetic search-result turn.
func formatDocumentReferences(links []domain.SignedDocumentLink) string {
	lines := make([]string, 0, len(links))
	for _, link := range links {
		lines = append(lines, fmt.Sprintf("- [%s](%s)", link.DocumentName, link.SignedURL))
	}
	return strings.Join(lines, "\n")
}
