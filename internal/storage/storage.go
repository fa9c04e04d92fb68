// Package storage archives scan uploads and generated exports. Archiving
// is best-effort: callers log failures and carry on.
package storage

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/ignite/cardscan/internal/config"
)

// Archive stores immutable artifacts by key.
type Archive interface {
	Put(ctx context.Context, key, contentType string, body []byte) error
	Ping(ctx context.Context) error
}

// New builds the archive selected by cfg.Type. "none" returns nil.
func New(ctx context.Context, cfg config.ArchiveConfig) (Archive, error) {
	switch strings.ToLower(cfg.Type) {
	case "", "none":
		return nil, nil
	case "local":
		return NewLocalArchive(cfg.LocalPath)
	case "s3":
		return NewS3Archive(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown archive type %q", cfg.Type)
	}
}

// ExportKey names an export artifact: exports/YYYY/MM/DD/visiting_cards_report_HHMMSS.<ext>.
func ExportKey(now time.Time, ext string) string {
	now = now.UTC()
	return path.Join("exports", now.Format("2006/01/02"),
		fmt.Sprintf("visiting_cards_report_%s.%s", now.Format("150405"), ext))
}

// UploadKey names a normalized scan image: uploads/YYYY/MM/DD/<id>.png.
func UploadKey(now time.Time, id string) string {
	return path.Join("uploads", now.UTC().Format("2006/01/02"), id+".png")
}

// validKey rejects keys that could escape the archive root.
func validKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || path.Clean(key) != key {
		return fmt.Errorf("invalid archive key %q", key)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return fmt.Errorf("invalid archive key %q", key)
		}
	}
	return nil
}
