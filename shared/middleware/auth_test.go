package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

type stubResolver map[string]string

func (s stubResolver) Resolve(token string) (string, error) {
	if id, ok := s[token]; ok {
		return id, nil
	}
	return "", errors.New("invalid token")
}

func TestAuthenticate(t *testing.T) {
	logger := zerolog.Nop()
	mw := Authenticate(stubResolver{"good": "user-1"}, &logger)

	var gotUserID string
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID, _ = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name       string
		headers    map[string]string
		wantStatus int
		wantUserID string
	}{
		{name: "bearer", headers: map[string]string{"Authorization": "Bearer good"}, wantStatus: http.StatusNoContent, wantUserID: "user-1"},
		{name: "legacy header", headers: map[string]string{"x-auth-token": "good"}, wantStatus: http.StatusNoContent, wantUserID: "user-1"},
		{name: "missing", wantStatus: http.StatusUnauthorized},
		{name: "malformed scheme", headers: map[string]string{"Authorization": "Basic good"}, wantStatus: http.StatusUnauthorized},
		{name: "invalid token", headers: map[string]string{"Authorization": "Bearer bad"}, wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotUserID = ""
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if gotUserID != tt.wantUserID {
				t.Fatalf("expected user id %q, got %q", tt.wantUserID, gotUserID)
			}
		})
	}
}
