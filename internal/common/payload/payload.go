// Package payload decodes document attachments carried in job variables.
// A document is either inline base64 content or a key into the documents
// bucket uploaded by the portal beforehand.
package payload

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	apperrors "docverify/internal/common/errors"
	"docverify/internal/common/storage"
)

type Document struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType,omitempty"`
	Content     string `json:"content,omitempty"`
	ObjectKey   string `json:"objectKey,omitempty"`
}

// Source fetches documents referenced by ObjectKey.
type Source struct {
	blobs  storage.BlobStore
	bucket string
}

func NewSource(blobs storage.BlobStore, bucket string) *Source {
	return &Source{blobs: blobs, bucket: bucket}
}

// Bytes returns the document content. Inline content wins over ObjectKey.
func (s *Source) Bytes(ctx context.Context, d Document) ([]byte, error) {
	if d.Content != "" {
		return DecodeBase64(d.Content)
	}
	if d.ObjectKey == "" {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("document %q has neither content nor objectKey", d.Filename))
	}
	if s == nil || s.blobs == nil {
		return nil, apperrors.NewInvalidInputError("object references are not supported without a blob store")
	}
	return s.blobs.Get(ctx, s.bucket, d.ObjectKey)
}

// DecodeBase64 accepts standard or URL-safe base64, with or without a
// data URL prefix.
func DecodeBase64(content string) ([]byte, error) {
	if i := strings.Index(content, ";base64,"); i >= 0 && strings.HasPrefix(content, "data:") {
		content = content[i+len(";base64,"):]
	}
	content = strings.TrimSpace(content)
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		if data, err := enc.DecodeString(content); err == nil {
			return data, nil
		}
	}
	return nil, apperrors.NewInvalidInputError("document content is not valid base64")
}
