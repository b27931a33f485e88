/*
Package storage resolves profile avatars kept in an S3-compatible bucket.

Profiles store either an absolute image URL or an object key. Keys are turned
into short-lived presigned download URLs so the bucket itself can stay
private.
*/
package storage

import (
	"context"
	"errors"
	"net/url"
	"path"
	"strings"
	"time"
)

// DefaultURLExpiration is how long a presigned avatar URL stays valid.
const DefaultURLExpiration = 15 * time.Minute

var (
	ErrNotFound   = errors.New("storage: object not found")
	ErrInvalidKey = errors.New("storage: invalid object key")
)

// Config holds the bucket connection settings.
type Config struct {
	BucketName      string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	ContentType   string
	ContentLength int64
}

// AvatarStore is the bucket access the avatar endpoints need.
type AvatarStore interface {
	// PresignDownload returns a URL granting read access to key for duration.
	PresignDownload(ctx context.Context, key string, duration time.Duration) (string, error)

	// Stat returns the object's metadata, or ErrNotFound.
	Stat(ctx context.Context, key string) (ObjectInfo, error)
}

// NewAvatarStore returns the S3 implementation for cfg.
func NewAvatarStore(ctx context.Context, cfg Config) (AvatarStore, error) {
	return newS3Client(ctx, cfg)
}

// ValidateKey rejects keys that are empty, absolute or escape their prefix.
func ValidateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return ErrInvalidKey
	}
	if cleaned := path.Clean(key); cleaned != key || cleaned == "." || strings.HasPrefix(cleaned, "../") || cleaned == ".." {
		return ErrInvalidKey
	}
	return nil
}

// IsAbsoluteURL reports whether ref already points at an http(s) resource.
func IsAbsoluteURL(ref string) bool {
	u, err := url.Parse(ref)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// ResolveAvatar turns a stored avatar reference into a URL a browser can
// load. Absolute URLs pass through; keys must exist in the bucket and are
// presigned for duration. An empty ref resolves to "".
func ResolveAvatar(ctx context.Context, st AvatarStore, ref string, duration time.Duration) (string, error) {
	if ref == "" || IsAbsoluteURL(ref) {
		return ref, nil
	}
	if err := ValidateKey(ref); err != nil {
		return "", err
	}
	if st == nil {
		return "", errors.New("storage: no bucket configured")
	}

	if _, err := st.Stat(ctx, ref); err != nil {
		return "", err
	}
	return st.PresignDownload(ctx, ref, duration)
}
