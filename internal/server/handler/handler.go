package handler

import (
	"net/http"

	"github.com/bytedance/sonic"
	restTypes "github.com/wardenlabs/reportrelay/internal/server/types"
)

// writeJSON writes v as the response body with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) error {
	data, err := sonic.Marshal(v)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(data)
	return err
}

// writeError writes the generic error envelope.
func writeError(w http.ResponseWriter, status int, message string) error {
	return writeJSON(w, status, restTypes.StatusResponse{
		Status:  "error",
		Message: message,
	})
}
