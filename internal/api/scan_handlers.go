package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ignite/cardscan/internal/capture"
	"github.com/ignite/cardscan/internal/ocr"
	"github.com/ignite/cardscan/internal/storage"
)

const multipartMemory = 4 << 20

var cropFields = [4]string{"crop_x", "crop_y", "crop_width", "crop_height"}

// HandleScan runs an uploaded card image through capture and OCR and
// returns unconfirmed field candidates. Nothing is stored.
//
//	POST /scan, POST /api/scan
func (h *Handlers) HandleScan(w http.ResponseWriter, r *http.Request) {
	if h.scanner == nil {
		respondError(w, http.StatusServiceUnavailable, "ocr_disabled", "OCR is not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", "no image uploaded")
		return
	}
	defer file.Close()
	if header.Filename == "" {
		respondError(w, http.StatusBadRequest, "bad_request", "no selected file")
		return
	}

	crop, err := parseCrop(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	res, err := h.scanner.Scan(r.Context(), file, crop)
	switch {
	case err == nil:
	case errors.Is(err, capture.ErrTooLarge):
		respondError(w, http.StatusRequestEntityTooLarge, "image_too_large", err.Error())
		return
	case errors.Is(err, capture.ErrEmpty), errors.Is(err, capture.ErrUnsupported), errors.Is(err, capture.ErrBadCrop):
		respondError(w, http.StatusBadRequest, "invalid_image", err.Error())
		return
	case errors.Is(err, ocr.ErrUnavailable), errors.Is(err, ocr.ErrNotBuilt):
		respondSafeError(w, http.StatusBadGateway, err, "OCR processing failed")
		return
	default:
		respondSafeError(w, http.StatusInternalServerError, err, "OCR processing failed")
		return
	}

	if h.archive != nil && h.archiveUploads {
		h.archivePut(r.Context(), storage.UploadKey(h.now(), res.Asset.ID), "image/png", res.Asset.PNG)
	}
	respondJSON(w, http.StatusOK, res.Candidates)
}

// parseCrop reads the optional crop_* form values. All four must be given
// together.
func parseCrop(r *http.Request) (*capture.Rect, error) {
	var vals [4]int
	given := 0
	for i, name := range cropFields {
		s := r.FormValue(name)
		if s == "" {
			continue
		}
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%s must be a non-negative integer", name)
		}
		vals[i] = n
		given++
	}
	switch given {
	case 0:
		return nil, nil
	case len(cropFields):
		return &capture.Rect{X: vals[0], Y: vals[1], Width: vals[2], Height: vals[3]}, nil
	default:
		return nil, errors.New("crop needs crop_x, crop_y, crop_width and crop_height")
	}
}
