// Package blob stores uploaded media in object storage.
package blob

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/stagehand-music/stagehand/internal/domain"
)

// DefaultContentType is used when an upload does not name its type.
const DefaultContentType = "application/octet-stream"

// Store writes named objects and reports their public URL.
type Store interface {
	// Put stores data under key. Unless overwrite is set, an existing object
	// yields domain.ErrAlreadyExists.
	Put(ctx context.Context, key, contentType string, data []byte, overwrite bool) (string, error)
}

// ObjectKey cleans a client-supplied file name into an object key. Directory
// separators are kept so callers can group media, but the key may not escape
// the bucket root.
func ObjectKey(fileName string) (string, error) {
	name := strings.TrimSpace(strings.ReplaceAll(fileName, "\\", "/"))
	if name == "" {
		return "", fmt.Errorf("%w: file name is empty", domain.ErrInvalidInput)
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return "", fmt.Errorf("%w: file name %q escapes the upload root", domain.ErrInvalidInput, fileName)
		}
	}
	key := strings.TrimPrefix(path.Clean("/"+name), "/")
	if key == "" || key == "." {
		return "", fmt.Errorf("%w: file name %q is not a file", domain.ErrInvalidInput, fileName)
	}
	return key, nil
}

// joinURL appends an object key to a base URL, escaping each path segment.
func joinURL(base, key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.TrimRight(base, "/") + "/" + strings.Join(parts, "/")
}
