package server

import (
	"errors"
	nethttp "net/http"

	"github.com/goccy/go-json"

	"github.com/ipdata/ipdata/internal/cloud/storage"
	"github.com/ipdata/ipdata/internal/registry"
)

// Envelope is the response body of every API endpoint.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

// ErrorBody describes a failed request.
type ErrorBody struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

func writeJSON(w nethttp.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func ok(w nethttp.ResponseWriter, data interface{}) {
	writeJSON(w, nethttp.StatusOK, Envelope{Success: true, Data: data})
}

func fail(w nethttp.ResponseWriter, status int, body ErrorBody) {
	writeJSON(w, status, Envelope{Success: false, Error: &body})
}

func badRequest(w nethttp.ResponseWriter, message string) {
	fail(w, nethttp.StatusBadRequest, ErrorBody{Message: message})
}

// writeError maps storage and registry failures onto HTTP statuses.
func writeError(w nethttp.ResponseWriter, err error) {
	var se *storage.Error
	if errors.As(err, &se) {
		fail(w, storageStatus(se.Code), ErrorBody{
			Code:    string(se.Code),
			Message: se.Error(),
			Hint:    se.Hint,
		})
		return
	}

	var re *registry.Error
	if errors.As(err, &re) {
		fail(w, nethttp.StatusBadGateway, ErrorBody{Code: re.Code, Message: re.Message})
		return
	}

	fail(w, nethttp.StatusInternalServerError, ErrorBody{Message: err.Error()})
}

func storageStatus(code storage.Code) int {
	switch code {
	case storage.CodeCredentialsMissing:
		return nethttp.StatusBadRequest
	case storage.CodeInvalidAccessKey, storage.CodeInvalidSecret:
		return nethttp.StatusUnauthorized
	case storage.CodeNetwork:
		return nethttp.StatusBadGateway
	case storage.CodeNotImplemented:
		return nethttp.StatusNotImplemented
	default:
		return nethttp.StatusBadGateway
	}
}
