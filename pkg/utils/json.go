// Package utils
package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

type Body map[string]any

func ReplyJSON(w http.ResponseWriter, status int, body any) error {
	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(body)
}

func ReplyError(w http.ResponseWriter, status int, msg string) {
	ReplyJSON(w, status, Body{"error": msg})
}

func ReplyBadRequest(w http.ResponseWriter, msg string) {
	ReplyError(w, http.StatusBadRequest, msg)
}

func ReplyNotFound(w http.ResponseWriter, msg string) {
	ReplyError(w, http.StatusNotFound, msg)
}

func ReplyInternalServerError(w http.ResponseWriter, msg string) {
	ReplyError(w, http.StatusInternalServerError, msg)
}

// DecodeJSON reads a single JSON document of at most 1MB into v.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	if dec.More() {
		return errors.New("invalid request body: trailing data")
	}
	return nil
}

func WithCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
