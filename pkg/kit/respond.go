package kit

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// ErrorShape selects how error bodies are rendered. One shape is used for
// every endpoint of a handler tree.
type ErrorShape string

const (
	ShapeFlat       ErrorShape = "flat"
	ShapeStructured ErrorShape = "structured"
)

func ParseErrorShape(s string) (ErrorShape, error) {
	switch ErrorShape(strings.ToLower(strings.TrimSpace(s))) {
	case ShapeFlat:
		return ShapeFlat, nil
	case ShapeStructured, "":
		return ShapeStructured, nil
	default:
		return "", fmt.Errorf("unknown error shape %q", s)
	}
}

type ErrorResponse struct {
	Error     string `json:"error"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type ErrorObject struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Details any    `json:"details,omitempty"`
}

type StructuredErrorResponse struct {
	Error     ErrorObject `json:"error"`
	RequestID string      `json:"request_id,omitempty"`
}

// Responder writes JSON payloads and errors in a fixed ErrorShape.
// The zero value writes flat errors.
type Responder struct {
	Shape ErrorShape
}

func NewResponder(shape ErrorShape) Responder {
	return Responder{Shape: shape}
}

func (Responder) JSON(w http.ResponseWriter, status int, v any) {
	WriteJSON(w, status, v)
}

func (rs Responder) Error(w http.ResponseWriter, r *http.Request, status int, msg string, details any) {
	reqID := chimw.GetReqID(r.Context())

	if rs.Shape != ShapeStructured {
		WriteJSON(w, status, ErrorResponse{
			Error:     msg,
			Details:   details,
			RequestID: reqID,
		})
		return
	}

	WriteJSON(w, status, StructuredErrorResponse{
		Error: ErrorObject{
			Name:    ErrorName(status),
			Message: msg,
			Status:  status,
			Details: details,
		},
		RequestID: reqID,
	})
}

// ErrorName maps a status code to the error name used in structured bodies,
// e.g. 404 -> "NotFoundError".
func ErrorName(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "ValidationError"
	case http.StatusInternalServerError:
		return "InternalError"
	}

	text := http.StatusText(status)
	if text == "" {
		return "Error"
	}
	return strings.ReplaceAll(text, " ", "") + "Error"
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
