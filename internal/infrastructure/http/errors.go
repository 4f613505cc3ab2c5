package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/0xcro3dile/docqa/internal/domain/entities"
)

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message, RequestID: RequestIDFrom(r.Context())})
}

// chatErrorStatus maps a chat failure to a status and a fixed message.
// Internal details stay in the logs.
func chatErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "request cancelled"
	case errors.Is(err, entities.ErrGenerationTimeout):
		return http.StatusBadGateway, "the language model did not answer in time"
	case errors.Is(err, entities.ErrGenerationConnection):
		return http.StatusBadGateway, "could not reach the language model"
	case errors.Is(err, entities.ErrEndpoint):
		return http.StatusBadGateway, "the language model returned an error"
	case errors.Is(err, entities.ErrRetrieval):
		return http.StatusInternalServerError, "document retrieval failed"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// fileErrorStatus maps a document library failure.
func fileErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, entities.ErrFileNotFound):
		return http.StatusNotFound, "file not found"
	case errors.Is(err, entities.ErrInvalidFileName):
		return http.StatusBadRequest, "invalid file name"
	case errors.Is(err, entities.ErrUnsupportedFileType):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
