package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOperatorMiddleware(t *testing.T) {
	srv := &Server{
		operatorEmails: []string{"operator@example.com"},
		verifier: func(ctx context.Context, token string) (string, error) {
			switch token {
			case "operator-token":
				return "operator@example.com", nil
			case "user-token":
				return "user@example.com", nil
			}
			return "", assert.AnError
		},
	}
	handler := srv.operatorMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	serve := func(authHeader string) int {
		req := httptest.NewRequest("POST", "/optimize", nil)
		if authHeader != "" {
			req.Header.Set("Authorization", authHeader)
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Code
	}

	t.Run("Operator", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, serve("Bearer operator-token"))
	})

	t.Run("Missing Header", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, serve(""))
	})

	t.Run("Not Bearer", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, serve("Basic b3A6cGFzcw=="))
	})

	t.Run("Invalid Token", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, serve("Bearer garbage"))
	})

	t.Run("Not An Operator", func(t *testing.T) {
		assert.Equal(t, http.StatusForbidden, serve("Bearer user-token"))
	})

	t.Run("Disabled Without Verifier", func(t *testing.T) {
		open := (&Server{}).operatorMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))
		w := httptest.NewRecorder()
		open.ServeHTTP(w, httptest.NewRequest("POST", "/optimize", nil))
		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}
