// Package objectstore wraps the S3 operations link resolution needs:
// an existence check and presigned GET URL generation.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// s3API is the minimal S3 interface required by Client.
// *s3.Client from aws-sdk-go-v2 satisfies this interface.
type s3API interface {
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// presignAPI is the minimal presigner interface required by Client.
// *s3.PresignClient satisfies this interface.
type presignAPI interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Client wraps one S3 bucket for existence checks and signed links.
type Client struct {
	api       s3API
	presigner presignAPI
	bucket    string
}

// New creates a Client for the given bucket.
func New(api s3API, presigner presignAPI, bucket string) (*Client, error) {
	if api == nil {
		return nil, errors.New("objectstore: api must not be nil")
	}
	if presigner == nil {
		return nil, errors.New("objectstore: presigner must not be nil")
	}
	if strings.TrimSpace(bucket) == "" {
		return nil, errors.New("objectstore: bucket must not be empty")
	}
	return &Client{api: api, presigner: presigner, bucket: bucket}, nil
}

// Exists reports whether the object exists in the bucket. A NotFound from
// the service maps to (false, nil); any other failure is returned as-is.
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	_, err := c.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return false, nil
		}
		return false, fmt.Errorf("objectstore: head %q: %w", key, err)
	}
	return true, nil
}

// PresignGet generates a time-limited GET URL for the object.
func (c *Client) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	out, err := c.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("objectstore: presign %q: %w", key, err)
	}
	return out.URL, nil
}
