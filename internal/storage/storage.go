// Package storage writes exported artifacts to object storage.
//
// Two providers implement Storage:
// - LocalStorage: files under a directory, served by the app at LOCAL_STORAGE_URL
// - R2Storage: Cloudflare R2 (or any S3-compatible endpoint)
package storage

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Storage is an object store addressed by slash-separated keys.
type Storage interface {
	// Put stores data at key. Fails with ErrKeyExists unless opts.Overwrite.
	Put(ctx context.Context, key string, data io.Reader, opts PutOptions) error

	// Get opens the object at key. The caller closes the reader.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)

	// Delete removes key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error

	// URL returns a link to key. Providers without public access presign it
	// for expires.
	URL(ctx context.Context, key string, expires time.Duration) (string, error)

	// Exists reports whether key is stored.
	Exists(ctx context.Context, key string) (bool, error)
}

// PutOptions configures a write.
type PutOptions struct {
	ContentType string // detected from the key when empty
	MaxSize     int64  // 0 means unbounded
	Overwrite   bool
	Public      bool
}

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
	ETag         string
}

// =============================================================================
// Configuration Types
// =============================================================================

// LocalConfig configures LocalStorage.
type LocalConfig struct {
	BasePath string // e.g. "./data/exports"
	BaseURL  string // e.g. "http://localhost:8080/files"
}

// R2Config configures R2Storage.
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string // optional custom domain; presigned URLs otherwise
	Region          string // defaults to "auto"
	Endpoint        string // overrides the account endpoint, e.g. a local MinIO
}

const (
	ProviderLocal = "local"
	ProviderR2    = "r2"
)

// =============================================================================
// Key Generation
// =============================================================================

// OwnerPrefix hashes an identity so keys never expose user ids or the
// anonymous client key.
func OwnerPrefix(owner string) string {
	sum := blake2b.Sum256([]byte(owner))
	return hex.EncodeToString(sum[:])[:24]
}

// ExportKey returns a fresh key for an exported artifact.
// Format: exports/{owner hash}/{uuid}{ext}
func ExportKey(owner, ext string) string {
	return fmt.Sprintf("exports/%s/%s%s", OwnerPrefix(owner), uuid.New(), ext)
}
