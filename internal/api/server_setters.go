package api

import (
	"time"

	"github.com/ignite/cardscan/internal/capture"
	"github.com/ignite/cardscan/internal/ocr"
	"github.com/ignite/cardscan/internal/storage"
)

// SetScanner enables POST /scan. Without one the endpoint answers 503.
// maxUpload bounds the image part; zero means capture.DefaultMaxBytes.
func (h *Handlers) SetScanner(p *ocr.Pipeline, maxUpload int64) {
	if maxUpload <= 0 {
		maxUpload = capture.DefaultMaxBytes
	}
	h.scanner = p
	h.maxUpload = maxUpload
}

// SetArchive configures best-effort archiving of uploads and exports.
func (h *Handlers) SetArchive(a storage.Archive, uploads, exports bool) {
	h.archive = a
	h.archiveUploads = uploads
	h.archiveExports = exports
}

// SetStorageType records the backend name shown by the debug endpoints.
func (h *Handlers) SetStorageType(t string) {
	h.storageType = t
}

// SetClock overrides the time source used for archive keys.
func (h *Handlers) SetClock(now func() time.Time) {
	h.now = now
}
