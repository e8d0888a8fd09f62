package usecase

import (
	"context"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"time"

	"rag-portal/internal/appconfig"
	"rag-portal/internal/domain"
)

// ObjectStore is the storage surface link resolution needs.
type ObjectStore interface {
	Exists(ctx context.Context, key string) (bool, error)
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Skip reasons recorded on LinkResolution entries.
const (
	SkipNoDocumentURI  = "no_document_uri"
	SkipForeignHost    = "foreign_host"
	SkipUnexpectedPath = "unexpected_path"
	SkipBadEncoding    = "bad_encoding"
	SkipSiblingMissing = "sibling_not_found"
	SkipPresignFailed  = "presign_failed"
)

// LinkResolution is the per-item outcome of link resolution: either a
// signed link or a recorded skip reason.
type LinkResolution struct {
	Link    domain.SignedDocumentLink
	Skipped bool
	Reason  string
}

// ResolveLinks maps raw search results to time-limited download links, in
// input order. Document URIs are expected in virtual-hosted style, so the
// path component after the host is the object key. Items that fail matching criteria are skipped with a
// recorded reason and never abort the remaining items; the one fatal case
// is a storage error (other than NotFound) from the sibling existence
// check, which propagates.
//
// Object keys arrive percent-encoded once more than their stored names for
// non-ASCII characters, so each key is decoded exactly once before use.
// Transcript objects (transcription/*.txt) are swapped for their original
// PDF under the document prefix when that sibling exists; when it does not,
// the item is skipped without error.
func ResolveLinks(ctx context.Context, store ObjectStore, logger *slog.Logger, results []domain.SearchResult) ([]LinkResolution, error) {
	if logger == nil {
		logger = slog.Default()
	}

	out := make([]LinkResolution, 0, len(results))
	for _, result := range results {
		if result.DocumentURI == "" {
			out = append(out, skipped(SkipNoDocumentURI))
			continue
		}
		if !strings.Contains(result.DocumentURI, appconfig.StorageHost) {
			out = append(out, skipped(SkipForeignHost))
			continue
		}

		trimmed := strings.TrimPrefix(result.DocumentURI, "https://")
		parts := strings.SplitN(trimmed, "/", 2)
		if len(parts) != 2 || parts[1] == "" {
			logger.Warn("unexpected S3 path format", "uri", result.DocumentURI)
			out = append(out, skipped(SkipUnexpectedPath))
			continue
		}

		objectKey, err := url.PathUnescape(parts[1])
		if err != nil {
			logger.Warn("object key decode failed", "key", parts[1], "err", err)
			out = append(out, skipped(SkipBadEncoding))
			continue
		}

		if strings.HasPrefix(objectKey, appconfig.TranscriptPrefix) && strings.HasSuffix(objectKey, appconfig.TranscriptExt) {
			res, err := resolveTranscript(ctx, store, logger, objectKey)
			if err != nil {
				return nil, err
			}
			out = append(out, res)
			continue
		}

		signedURL, err := store.PresignGet(ctx, objectKey, appconfig.SignedURLTTL)
		if err != nil {
			logger.Warn("presign failed", "key", objectKey, "err", err)
			out = append(out, skipped(SkipPresignFailed))
			continue
		}
		name := result.DocumentTitle
		if name == "" {
			name = appconfig.FallbackDocumentName
		}
		out = append(out, resolved(name, signedURL))
	}
	return out, nil
}

// resolveTranscript handles the transcript substitution rule: the link
// points at the sibling PDF, labeled with the sibling's name. A missing
// sibling is a silent skip; any other existence-check failure is fatal.
func resolveTranscript(ctx context.Context, store ObjectStore, logger *slog.Logger, objectKey string) (LinkResolution, error) {
	txtName := path.Base(objectKey)
	pdfName := strings.TrimSuffix(txtName, appconfig.TranscriptExt) + appconfig.DocumentExt
	pdfKey := appconfig.DocumentPrefix + pdfName

	exists, err := store.Exists(ctx, pdfKey)
	if err != nil {
		return LinkResolution{}, err
	}
	if !exists {
		logger.Info("sibling PDF not found", "key", pdfKey)
		return skipped(SkipSiblingMissing), nil
	}

	signedURL, err := store.PresignGet(ctx, pdfKey, appconfig.SignedURLTTL)
	if err != nil {
		logger.Warn("presign failed", "key", pdfKey, "err", err)
		return skipped(SkipPresignFailed), nil
	}
	return resolved(pdfName, signedURL), nil
}

// CollectLinks extracts the signed links from resolutions, dropping skips.
func CollectLinks(resolutions []LinkResolution) []domain.SignedDocumentLink {
	links := make([]domain.SignedDocumentLink, 0, len(resolutions))
	for _, r := range resolutions {
		if !r.Skipped {
			links = append(links, r.Link)
		}
	}
	return links
}

func skipped(reason string) LinkResolution {
	return LinkResolution{Skipped: true, Reason: reason}
}

func resolved(name, signedURL string) LinkResolution {
	return LinkResolution{Link: domain.SignedDocumentLink{DocumentName: name, SignedURL: signedURL}}
}
