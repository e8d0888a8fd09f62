// Package kendrasearch wraps the Amazon Kendra Query API for the portal's
// document search, including attribute-filter construction.
package kendrasearch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kendra"
	"github.com/aws/aws-sdk-go-v2/service/kendra/types"

	"rag-portal/internal/appconfig"
	"rag-portal/internal/domain"
)

// kendraAPI is the minimal Kendra interface required by Client.
// *kendra.Client from aws-sdk-go-v2 satisfies this interface.
type kendraAPI interface {
	Query(ctx context.Context, in *kendra.QueryInput, optFns ...func(*kendra.Options)) (*kendra.QueryOutput, error)
}

// Client wraps a Kendra index for attribute-filtered queries.
type Client struct {
	api     kendraAPI
	indexID string
}

// New creates a Client for the given index.
func New(api kendraAPI, indexID string) (*Client, error) {
	if api == nil {
		return nil, errors.New("kendrasearch: api must not be nil")
	}
	if strings.TrimSpace(indexID) == "" {
		return nil, errors.New("kendrasearch: index id must not be empty")
	}
	return &Client{api: api, indexID: indexID}, nil
}

// BuildAttributeFilter maps a category key to the Kendra attribute filter
// for it. The language clause is always present; any key other than the
// "all" sentinel adds a single-element category OR clause ANDed with it.
// The key is trusted to come from the configured category set.
func BuildAttributeFilter(categoryKey string) *types.AttributeFilter {
	filter := &types.AttributeFilter{
		AndAllFilters: []types.AttributeFilter{
			{
				EqualsTo: &types.DocumentAttribute{
					Key:   aws.String("_language_code"),
					Value: &types.DocumentAttributeValue{StringValue: aws.String(appconfig.LanguageCode)},
				},
			},
		},
	}
	if categoryKey != appconfig.CategoryAll {
		filter.AndAllFilters = append(filter.AndAllFilters, types.AttributeFilter{
			OrAllFilters: []types.AttributeFilter{
				{
					EqualsTo: &types.DocumentAttribute{
						Key:   aws.String("_category"),
						Value: &types.DocumentAttributeValue{StringValue: aws.String(categoryKey)},
					},
				},
			},
		})
	}
	return filter
}

// Search runs a single first-page query against the index and reduces the
// result items to the fields link resolution needs.
func (c *Client) Search(ctx context.Context, query, categoryKey string) ([]domain.SearchResult, error) {
	out, err := c.api.Query(ctx, &kendra.QueryInput{
		IndexId:         aws.String(c.indexID),
		QueryText:       aws.String(query),
		PageNumber:      aws.Int32(appconfig.SearchPageNumber),
		PageSize:        aws.Int32(appconfig.SearchPageSize),
		AttributeFilter: BuildAttributeFilter(categoryKey),
	})
	if err != nil {
		return nil, fmt.Errorf("kendrasearch: query: %w", err)
	}

	results := make([]domain.SearchResult, 0, len(out.ResultItems))
	for _, item := range out.ResultItems {
		var r domain.SearchResult
		if item.DocumentURI != nil {
			r.DocumentURI = *item.DocumentURI
		}
		if item.DocumentTitle != nil && item.DocumentTitle.Text != nil {
			r.DocumentTitle = *item.DocumentTitle.Text
		}
		results = append(results, r)
	}
	return results, nil
}
