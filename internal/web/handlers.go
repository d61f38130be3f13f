package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/feeduploader/internal/core"
	"github.com/JonMunkholm/feeduploader/internal/logging"
	"github.com/JonMunkholm/feeduploader/internal/marketplace"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// multipartMemory is how much of a multipart body is kept in memory; the
// rest spills to temp files.
const multipartMemory = 32 << 20

var errNoFile = errors.New("no file provided")

// handleUpload imports a feed file from the "file" form field.
// A feed without a matching strategy answers 422 with its headers so the
// client can create a mapping.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	req, cleanup, err := s.uploadRequest(w, r)
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	defer cleanup()

	result, err := s.service.UploadFeed(r.Context(), req)
	if err != nil {
		respondError(w, r, err, 0)
		return
	}

	logger := logging.ForUpload(r.Context(), result.UploadID, result.FileName, req.UserID)
	if result.NeedsMapping {
		logger.Info("upload needs mapping", "headers", len(result.Headers))
		writeJSON(w, r, http.StatusUnprocessableEntity, result)
		return
	}
	logger.Info("upload stored",
		"strategy", result.Strategy,
		"inserted", result.Inserted,
		"skipped", result.Skipped,
	)
	writeJSON(w, r, http.StatusOK, result)
}

// handlePreview reports what an upload of the file would do without storing it.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	req, cleanup, err := s.uploadRequest(w, r)
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	defer cleanup()

	preview, err := s.service.PreviewFeed(r.Context(), req)
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	writeJSON(w, r, http.StatusOK, preview)
}

// uploadRequest reads the multipart form shared by upload and preview.
func (s *Server) uploadRequest(w http.ResponseWriter, r *http.Request) (core.UploadRequest, func(), error) {
	limit := s.cfg.Upload.MaxFileSize
	if r.ContentLength > limit {
		return core.UploadRequest{}, nil, fmt.Errorf("request body too large: %w", &http.MaxBytesError{Limit: limit})
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return core.UploadRequest{}, nil, fmt.Errorf("request body too large: %w", err)
		}
		return core.UploadRequest{}, nil, errNoFile
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return core.UploadRequest{}, nil, errNoFile
	}

	userID, _ := core.UserIDFromContext(r.Context())
	normalize, _ := strconv.ParseBool(r.FormValue("normalize"))

	cleanup := func() {
		file.Close()
		if r.MultipartForm != nil {
			r.MultipartForm.RemoveAll()
		}
	}
	return core.UploadRequest{
		FileName:  header.Filename,
		Reader:    file,
		UserID:    userID,
		Normalize: normalize,
	}, cleanup, nil
}

// handleExport renders the products whose ids are posted as a JSON array.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var ids []int64
	if err := json.NewDecoder(r.Body).Decode(&ids); err != nil {
		respondError(w, r, fmt.Errorf("decode product ids: %w", core.ErrNoProducts), http.StatusBadRequest)
		return
	}

	data, err := s.service.ExportProducts(r.Context(), ids)
	if err != nil {
		respondError(w, r, err, 0)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="products.xlsx"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := s.service.ClearAll(r.Context()); err != nil {
		respondError(w, r, err, 0)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListUploads lists the caller's running uploads and the shared slot usage.
func (s *Server) handleListUploads(w http.ResponseWriter, r *http.Request) {
	userID, _ := core.UserIDFromContext(r.Context())
	writeJSON(w, r, http.StatusOK, map[string]any{
		"uploads": s.service.ActiveUploads(userID),
		"limiter": s.service.LimiterStatus(),
	})
}

func (s *Server) handleCancelUpload(w http.ResponseWriter, r *http.Request) {
	userID, _ := core.UserIDFromContext(r.Context())
	if err := s.service.CancelUpload(chi.URLParam(r, "uploadID"), userID); err != nil {
		respondError(w, r, err, 0)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListMappings(w http.ResponseWriter, r *http.Request) {
	userID, _ := core.UserIDFromContext(r.Context())
	groups, err := s.service.MappingGroups(r.Context(), userID)
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	if groups == nil {
		groups = [][]core.MapModel{}
	}
	writeJSON(w, r, http.StatusOK, groups)
}

func (s *Server) handleMarketMappings(w http.ResponseWriter, r *http.Request) {
	userID, _ := core.UserIDFromContext(r.Context())
	rules, err := s.service.MappingsForMarket(r.Context(), chi.URLParam(r, "market"), userID)
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	if rules == nil {
		rules = []core.MapModel{}
	}
	writeJSON(w, r, http.StatusOK, rules)
}

// mappingRequest is the body of POST /api/mappings. Global rules are
// created with "global": true; otherwise the rule belongs to the caller.
type mappingRequest struct {
	SourceField      string `json:"sourceField"`
	DestinationField string `json:"destinationField"`
	Market           string `json:"market"`
	Global           bool   `json:"global"`
}

func (s *Server) handleSaveMapping(w http.ResponseWriter, r *http.Request) {
	var body mappingRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, r, fmt.Errorf("%w: %v", core.ErrInvalidMapping, err), http.StatusBadRequest)
		return
	}

	m := core.MapModel{
		SourceField:      body.SourceField,
		DestinationField: body.DestinationField,
		Market:           body.Market,
	}
	if !body.Global {
		if userID, ok := core.UserIDFromContext(r.Context()); ok {
			m.UserID = &userID
		}
	}

	saved, err := s.service.SaveMapping(r.Context(), m)
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	writeJSON(w, r, http.StatusOK, saved)
}

// checkRequest is the body of POST /api/mappings/check.
type checkRequest struct {
	Market  string   `json:"market"`
	Headers []string `json:"headers"`
}

// handleCheckMapping reports how well a market's saved rules cover a set of
// feed headers.
func (s *Server) handleCheckMapping(w http.ResponseWriter, r *http.Request) {
	var body checkRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.Market) == "" {
		respondError(w, r, fmt.Errorf("%w: market and headers are required", core.ErrInvalidMapping), http.StatusBadRequest)
		return
	}

	userID, _ := core.UserIDFromContext(r.Context())
	rules, err := s.service.MappingsForMarket(r.Context(), body.Market, userID)
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	writeJSON(w, r, http.StatusOK, core.CheckMapping(body.Headers, rules))
}

func (s *Server) handleGetCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.service.Catalog())
}

// handleLoadCatalog replaces the catalog with an uploaded eMAG template workbook.
func (s *Server) handleLoadCatalog(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		respondError(w, r, errNoFile, http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, _, err := r.FormFile("file")
	if err != nil {
		respondError(w, r, errNoFile, http.StatusBadRequest)
		return
	}
	defer file.Close()

	attrs, err := marketplace.LoadCatalog(file)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	s.service.SetCatalog(attrs)

	writeJSON(w, r, http.StatusOK, map[string]int{"attributes": len(attrs)})
}
