package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/flytam/filenamify"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hyperjump/rfqrocket/internal/extract"
	"github.com/hyperjump/rfqrocket/internal/models"
	"github.com/hyperjump/rfqrocket/internal/render"
	"github.com/hyperjump/rfqrocket/internal/service"
	"go.uber.org/zap"
)

// uploadMemory is how much of a multipart form is kept in memory before
// spilling to temporary files.
const uploadMemory = 8 << 20

var contentTypes = map[string]string{
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

type uploadResponse struct {
	Success     bool   `json:"success"`
	DownloadURL string `json:"download_url"`
	Filename    string `json:"filename"`
	ID          string `json:"id"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveUpload(status)
		}
	}()
	fail := func(code int, msg string) {
		status = code
		s.respondError(w, code, msg)
	}

	if s.config.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(uploadMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			fail(http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		fail(http.StatusBadRequest, "No file part")
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		fail(http.StatusBadRequest, "No file part")
		return
	}
	defer file.Close()
	if header.Filename == "" {
		fail(http.StatusBadRequest, "No selected file")
		return
	}
	if !extract.Allowed(header.Filename, s.extensions) {
		fail(http.StatusBadRequest, "File type not allowed")
		return
	}

	name := secureFilename(header.Filename)
	uploadPath, err := s.stageUpload(name, file)
	if err != nil {
		s.logger.Error("failed to stage upload", zap.String("file", name), zap.Error(err))
		fail(http.StatusInternalServerError, "Failed to save upload")
		return
	}
	defer func() {
		if err := os.Remove(uploadPath); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("failed to remove upload", zap.String("path", uploadPath), zap.Error(err))
		}
	}()

	content, err := os.ReadFile(uploadPath)
	if err != nil {
		fail(http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Debug("upload received", zap.String("file", name), zap.Int("bytes", len(content)))

	gen, err := s.svc.Process(r.Context(), service.Input{
		SourceName: name,
		Content:    content,
		Ext:        extract.Ext(header.Filename),
		Format:     r.FormValue("format"),
	})
	switch {
	case errors.Is(err, service.ErrNoText):
		fail(http.StatusInternalServerError, "Could not extract text from file")
		return
	case errors.Is(err, render.ErrUnknownFormat):
		fail(http.StatusBadRequest, "Unknown output format")
		return
	case err != nil:
		s.logger.Error("generation failed", zap.String("file", name), zap.Error(err))
		fail(http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, uploadResponse{
		Success:     true,
		DownloadURL: "/download/" + gen.OutputName,
		Filename:    gen.OutputName,
		ID:          gen.ID,
	})
}

// stageUpload copies the upload into the upload directory under a unique name.
func (s *Server) stageUpload(name string, src io.Reader) (string, error) {
	if err := os.MkdirAll(s.uploadDir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(s.uploadDir, uuid.NewString()+"_"+name)
	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		_ = os.Remove(path)
		return "", err
	}
	return path, dst.Close()
}

type sendEmailRequest struct {
	Email    string `json:"email"`
	Filename string `json:"filename"`
}

func (s *Server) handleSendEmail(w http.ResponseWriter, r *http.Request) {
	var req sendEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Filename == "" {
		s.respondError(w, http.StatusBadRequest, "Missing required fields")
		return
	}
	err := s.svc.Email(r.Context(), req.Email, req.Filename)
	if s.metrics != nil && !errors.Is(err, service.ErrNotFound) {
		s.metrics.ObserveEmail(err == nil)
	}
	switch {
	case errors.Is(err, service.ErrNotFound):
		s.respondError(w, http.StatusNotFound, "File not found")
		return
	case err != nil:
		s.respondError(w, http.StatusInternalServerError, "Failed to send email")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	path, err := s.svc.OutputPath(name)
	if err != nil {
		s.respondError(w, http.StatusNotFound, "File not found")
		return
	}
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(name))]; ok {
		w.Header().Set("Content-Type", ct)
	}
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	http.ServeFile(w, r, path)
}

func (s *Server) handleListGenerations(w http.ResponseWriter, r *http.Request) {
	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", 20)
	if limit > 100 {
		limit = 100
	}
	gens, total, err := s.svc.List(r.Context(), offset, limit)
	if err != nil {
		s.logger.Error("list generations failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"generations": gens,
		"total":       total,
		"offset":      offset,
		"limit":       limit,
	})
}

func (s *Server) handleGetGeneration(w http.ResponseWriter, r *http.Request) {
	gen, err := s.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, service.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "generation not found")
		return
	}
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, gen)
}

func (s *Server) handleDeleteGeneration(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete generation request", zap.String("id", id))
	err := s.svc.Delete(r.Context(), id)
	if errors.Is(err, service.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "generation not found")
		return
	}
	if err != nil {
		s.logger.Error("deletion failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := models.SearchQuery{
		Query: strings.TrimSpace(r.URL.Query().Get("q")),
		Limit: queryInt(r, "limit", 0),
	}
	if query.Query == "" {
		s.respondError(w, http.StatusBadRequest, "query cannot be empty")
		return
	}
	s.logger.Debug("search request", zap.String("query", query.Query), zap.Int("limit", query.Limit))
	response, err := s.svc.Search(r.Context(), &query)
	if err != nil {
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.Status(r.Context())
	if err != nil {
		s.logger.Error("status failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, st)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

func queryInt(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v < 0 {
		return def
	}
	return v
}

// secureFilename reduces an uploaded file name to a safe base name without
// whitespace or a leading dot.
func secureFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	name, err := filenamify.Filenamify(name, filenamify.Options{Replacement: "_"})
	if err != nil {
		return "upload"
	}
	name = strings.Join(strings.Fields(name), "_")
	name = strings.TrimLeft(name, "._")
	if name == "" {
		return "upload"
	}
	return name
}
