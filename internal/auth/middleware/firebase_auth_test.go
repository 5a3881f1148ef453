package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/itss-pm/contribution-engine/internal/auth"
)

type stubVerifier struct {
	tokens map[string]*fbauth.Token
}

func (s stubVerifier) VerifyIDToken(_ context.Context, idToken string) (*fbauth.Token, error) {
	if t, ok := s.tokens[idToken]; ok {
		return t, nil
	}
	return nil, errors.New("token rejected")
}

func TestFirebaseAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	verifier := stubVerifier{tokens: map[string]*fbauth.Token{
		"good": {UID: "uid-1", Claims: map[string]interface{}{"role": "instructor", "email": "i@uni.edu"}},
		"bare": {UID: "uid-2", Claims: map[string]interface{}{}},
	}}

	r := gin.New()
	r.Use(FirebaseAuthMiddleware(verifier))
	r.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"actor": auth.Actor(c), "role": auth.Role(c), "email": c.GetString(auth.CtxEmail)})
	})

	tests := []struct {
		name   string
		header string
		code   int
		body   string
	}{
		{name: "missing header", header: "", code: http.StatusUnauthorized, body: "missing authorization token"},
		{name: "not bearer", header: "Basic abc", code: http.StatusUnauthorized, body: "missing authorization token"},
		{name: "rejected token", header: "Bearer nope", code: http.StatusUnauthorized, body: "invalid token"},
		{name: "role claim", header: "Bearer good", code: http.StatusOK, body: `{"actor":"uid-1","email":"i@uni.edu","role":"instructor"}`},
		{name: "defaults to student", header: "Bearer bare", code: http.StatusOK, body: `{"actor":"uid-2","email":"","role":"student"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.code, w.Code)
			if tt.code == http.StatusOK {
				assert.JSONEq(t, tt.body, w.Body.String())
			} else {
				assert.Contains(t, w.Body.String(), tt.body)
			}
		})
	}
}
