package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventvote/backend/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(h *Handler, path, body string) (*httptest.ResponseRecorder, response.Body) {
	r := gin.New()
	r.POST("/create-account", h.Register)
	r.POST("/login", h.Login)
	r.POST("/forgot-password", h.ForgotPassword)
	r.POST("/reset-password", h.ResetPassword)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body)))
	var out response.Body
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func TestRegisterHandler(t *testing.T) {
	svc, users, _, _ := newTestService(t)
	h := NewHandler(svc, nil)

	tests := []struct {
		name    string
		body    string
		status  int
		field   string
		missing []interface{}
	}{
		{"created", `{"email":"ann@example.com","username":"ann","password":"secret1"}`, http.StatusCreated, "", nil},
		{"display name address", `{"email":"Mallory <mal@example.com>","username":"mal","password":"secret1"}`, http.StatusBadRequest, "email", nil},
		{"short password", `{"email":"bob@example.com","username":"bob","password":"123"}`, http.StatusBadRequest, "password", nil},
		{"blank username", `{"email":"bob@example.com","username":"   ","password":"secret1"}`, http.StatusBadRequest, "", []interface{}{"username"}},
		{"empty body", `{}`, http.StatusBadRequest, "", []interface{}{"email", "username", "password"}},
		{"malformed", `{"email":`, http.StatusBadRequest, "body", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := serve(h, "/create-account", tt.body)
			require.Equal(t, tt.status, w.Code, w.Body.String())
			if tt.field != "" {
				assert.Equal(t, tt.field, body.Field)
			}
			if tt.missing != nil {
				assert.Equal(t, tt.missing, body.Details["missing"])
			}
		})
	}
	assert.Len(t, users.users, 1)
}

func TestLoginHandlerAcceptsEmailOrUsername(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	h := NewHandler(svc, nil)
	w, _ := serve(h, "/create-account", `{"email":"ann@example.com","username":"ann","password":"secret1"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w, _ = serve(h, "/login", `{"username":"ann","password":"secret1"}`)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, _ = serve(h, "/login", `{"email":"ann@example.com","password":"secret1"}`)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, body := serve(h, "/login", `{"password":"secret1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []interface{}{"email", "username"}, body.Details["missing"])
}

func TestForgotPasswordHandlerRejectsInvalidAddress(t *testing.T) {
	svc, _, _, emails := newTestService(t)
	w, body := serve(NewHandler(svc, nil), "/forgot-password", `{"email":"Ann <ann@example.com>"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "email", body.Field)
	assert.Empty(t, emails.sent)
}
