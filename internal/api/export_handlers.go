package api

import (
	"context"
	"net/http"
	"time"

	"github.com/ignite/cardscan/internal/export"
	"github.com/ignite/cardscan/internal/pkg/httputil"
	"github.com/ignite/cardscan/internal/pkg/logger"
	"github.com/ignite/cardscan/internal/storage"
)

const archiveTimeout = 30 * time.Second

// HandleExport returns a handler that downloads every active card in the
// given format. Search filters never apply to exports.
//
//	GET /api/export/excel, GET /api/export/csv
func (h *Handlers) HandleExport(format export.Format) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := h.cards.ExportActive(r.Context(), format)
		if err != nil {
			respondSafeError(w, http.StatusInternalServerError, err, "Export failed")
			return
		}
		if h.archive != nil && h.archiveExports {
			h.archivePut(r.Context(), storage.ExportKey(h.now(), string(format)), doc.ContentType, doc.Body)
		}
		logger.Info("export generated", "format", string(format), "rows", doc.Rows)
		w.Header().Set("Cache-Control", "no-store")
		httputil.Attachment(w, doc.Filename, doc.ContentType, doc.Body)
	}
}

// HandleExportQuery serves GET /api/export?format=csv|xlsx.
func (h *Handlers) HandleExportQuery(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	h.HandleExport(format)(w, r)
}

// archivePut stores an artifact without letting archive trouble reach the
// client.
func (h *Handlers) archivePut(ctx context.Context, key, contentType string, body []byte) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveTimeout)
	defer cancel()
	if err := h.archive.Put(ctx, key, contentType, body); err != nil {
		logger.Warn("archive put failed", "key", key, "error", err)
		return
	}
	logger.Debug("artifact archived", "key", key, "bytes", len(body))
}
