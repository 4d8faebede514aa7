package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"kami-system/internal/domain"
)

// All JSON responses share the {success, data?, message?} envelope.
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondOK(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: data})
}

func respondCreated(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusCreated, envelope{Success: true, Data: data})
}

func respondMessage(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: message})
}

func respondError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: false, Message: message})
}

// respondDomainError maps domain sentinels to HTTP statuses: 400 for
// validation and state conflicts, 404 for missing resources, 500 for
// everything else. In dev mode the underlying error string is exposed.
func respondDomainError(w http.ResponseWriter, err error, dev bool) {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		respondError(w, http.StatusBadRequest, "invalid request")
	case errors.Is(err, domain.ErrCodeNotFound):
		respondError(w, http.StatusNotFound, "kami code not found")
	case errors.Is(err, domain.ErrNotFound):
		respondError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrCodeAlreadyUsed):
		respondError(w, http.StatusBadRequest, "kami code already used")
	case errors.Is(err, domain.ErrCodeExpired):
		respondError(w, http.StatusBadRequest, "kami code expired")
	case errors.Is(err, domain.ErrCodeLocked):
		respondError(w, http.StatusBadRequest, "kami code is being redeemed, try again")
	case errors.Is(err, domain.ErrAlreadyExists):
		respondError(w, http.StatusBadRequest, "already exists")
	case errors.Is(err, domain.ErrBadCredentials):
		respondError(w, http.StatusBadRequest, "invalid credentials")
	default:
		msg := "internal error"
		if dev {
			msg = err.Error()
		}
		respondError(w, http.StatusInternalServerError, msg)
	}
}
