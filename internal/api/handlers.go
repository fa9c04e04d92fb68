package api

import (
	"net/http"
	"time"

	"github.com/ignite/cardscan/internal/ocr"
	"github.com/ignite/cardscan/internal/pkg/httputil"
	"github.com/ignite/cardscan/internal/service/cards"
	"github.com/ignite/cardscan/internal/storage"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	cards     *cards.Service
	scanner   *ocr.Pipeline
	maxUpload int64

	archive        storage.Archive
	archiveUploads bool
	archiveExports bool

	storageType string
	now         func() time.Time
}

// NewHandlers creates a new Handlers instance
func NewHandlers(svc *cards.Service) *Handlers {
	return &Handlers{
		cards:       svc,
		storageType: "memory",
		now:         time.Now,
	}
}

// HandleHome reports that the service is running.
func (h *Handlers) HandleHome(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "visiting card service running",
		"storage": h.storageType,
	})
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	httputil.JSON(w, status, data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, code, message string) {
	httputil.Error(w, status, code, message)
}
