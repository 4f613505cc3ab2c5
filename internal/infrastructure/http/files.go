package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/0xcro3dile/docqa/internal/domain/entities"
	"github.com/0xcro3dile/docqa/internal/domain/usecases"
)

type listFilesResponse struct {
	Success    bool                `json:"success"`
	Files      []entities.FileInfo `json:"files"`
	TotalCount int                 `json:"total_count"`
	TotalSize  int64               `json:"total_size"`
}

type uploadResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	*usecases.UploadResult
}

type messageResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	IndexedFiles *int   `json:"indexed_files,omitempty"`
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.library.List(r.Context())
	if err != nil {
		s.logger.Error("listing files", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "could not list files")
		return
	}
	var total int64
	for _, f := range files {
		total += f.Size
	}
	writeJSON(w, http.StatusOK, listFilesResponse{
		Success:    true,
		Files:      files,
		TotalCount: len(files),
		TotalSize:  total,
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeError(w, r, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	defer file.Close()

	res, err := s.library.Upload(r.Context(), header.Filename, file)
	if err != nil {
		status, msg := fileErrorStatus(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("upload failed", zap.String("file", header.Filename), zap.Error(err))
		}
		writeError(w, r, status, msg)
		return
	}

	msg := fmt.Sprintf("File %s uploaded successfully", res.Filename)
	if !res.Processed {
		msg = fmt.Sprintf("File %s uploaded but could not be indexed", res.Filename)
	}
	writeJSON(w, http.StatusOK, uploadResponse{Success: true, Message: msg, UploadResult: res})
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	if err := s.library.Delete(r.Context(), name); err != nil {
		status, msg := fileErrorStatus(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("delete failed", zap.String("file", name), zap.Error(err))
		}
		writeError(w, r, status, msg)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{
		Success: true,
		Message: fmt.Sprintf("File %s deleted successfully", name),
	})
}

func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	n, err := s.library.Reindex(r.Context())
	if err != nil {
		s.logger.Error("rebuild failed", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "could not rebuild the index")
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{
		Success:      true,
		Message:      "Knowledge base rebuilt successfully",
		IndexedFiles: &n,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.library.Health(r.Context())
	status := http.StatusOK
	if report.Status == "unhealthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}
