// Package bedrock wraps the Bedrock runtime Converse API. Throttling is
// retried by the SDK's adaptive retryer configured on the shared aws.Config;
// this client adds no retry of its own.
package bedrock

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"rag-portal/internal/domain"
)

// converseAPI is the minimal Bedrock runtime interface required by Client.
// *bedrockruntime.Client from aws-sdk-go-v2 satisfies this interface.
type converseAPI interface {
	Converse(ctx context.Context, in *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// Client wraps the Bedrock runtime for conversational completions.
type Client struct {
	api converseAPI
}

// New creates a Client.
func New(api converseAPI) (*Client, error) {
	if api == nil {
		return nil, errors.New("bedrock: api must not be nil")
	}
	return &Client{api: api}, nil
}

// Converse sends the messages to the model and returns the text of the
// reply. An empty string with a nil error means the model returned no
// content; callers decide how to surface that.
func (c *Client) Converse(ctx context.Context, in domain.ConverseRequest) (string, error) {
	if in.ModelID == "" {
		return "", errors.New("bedrock: model id must not be empty")
	}

	req := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(in.ModelID),
		Messages: toSDKMessages(in.Messages),
	}
	if in.System != "" {
		req.System = []types.SystemContentBlock{
			&types.SystemContentBlockMemberText{Value: in.System},
		}
	}
	if in.Temperature != nil || in.MaxTokens != nil {
		req.InferenceConfig = &types.InferenceConfiguration{
			Temperature: in.Temperature,
			MaxTokens:   in.MaxTokens,
		}
	}

	out, err := c.api.Converse(ctx, req)
	if err != nil {
		return "", fmt.Errorf("bedrock: converse: %w", err)
	}

	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return "", nil
	}
	for _, block := range msg.Value.Content {
		if text, ok := block.(*types.ContentBlockMemberText); ok {
			return text.Value, nil
		}
	}
	return "", nil
}

func toSDKMessages(msgs []domain.Message) []types.Message {
	out := make([]types.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, types.Message{
			Role:    types.ConversationRole(m.Role),
			Content: toSDKContent(m.Content),
		})
	}
	return out
}

func toSDKContent(blocks []domain.ContentBlock) []types.ContentBlock {
	out := make([]types.ContentBlock, 0, len(blocks))
	for _, b := range blocks {
		switch {
		case b.Image != nil:
			out = append(out, &types.ContentBlockMemberImage{
				Value: types.ImageBlock{
					Format: types.ImageFormat(b.Image.Format),
					Source: &types.ImageSourceMemberBytes{Value: b.Image.Data},
				},
			})
		case b.Document != nil:
			out = append(out, &types.ContentBlockMemberDocument{
				Value: types.DocumentBlock{
					Format: types.DocumentFormat(b.Document.Format),
					Name:   aws.String(b.Document.Name),
					Source: &types.DocumentSourceMemberBytes{Value: b.Document.Data},
				},
			})
		default:
			out = append(out, &types.ContentBlockMemberText{Value: b.Text})
		}
	}
	return out
}
