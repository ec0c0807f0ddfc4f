package validation

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventvote/backend/internal/apperr"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type signup struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"displayName" binding:"required,notblank"`
	Password string `json:"password" binding:"required,min=6"`
	Slug     string `form:"slug" binding:"omitempty,segment"`
	Role     string `json:"role" binding:"omitempty,oneof=user admin"`
}

func bind(t *testing.T, body string) error {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	c.Request.Header.Set("Content-Type", "application/json")
	var s signup
	return BindJSON(c, &s)
}

func TestBindListsMissingFieldsByJSONName(t *testing.T) {
	ae, ok := apperr.As(bind(t, `{"displayName":"   "}`))
	require.True(t, ok)
	assert.Equal(t, apperr.Validation, ae.Kind)
	assert.Equal(t, []string{"email", "displayName", "password"}, ae.Details["missing"])
}

func TestBindRejectsInvalidFields(t *testing.T) {
	cases := map[string]struct {
		body  string
		field string
	}{
		"display name address": {`{"email":"Mallory <mal@example.com>","displayName":"m","password":"secret1"}`, "email"},
		"short password":       {`{"email":"a@example.com","displayName":"a","password":"123"}`, "password"},
		"slash in slug":        {`{"email":"a@example.com","displayName":"a","password":"secret1","Slug":"a/b"}`, "slug"},
		"unknown role":         {`{"email":"a@example.com","displayName":"a","password":"secret1","role":"owner"}`, "role"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			ae, ok := apperr.As(bind(t, tc.body))
			require.True(t, ok)
			assert.Equal(t, apperr.Validation, ae.Kind)
			assert.Equal(t, tc.field, ae.Field)
		})
	}
}

func TestBindMalformedBody(t *testing.T) {
	assert.True(t, apperr.Is(bind(t, `{bad`), apperr.Malformed))
	assert.True(t, apperr.Is(bind(t, ``), apperr.Malformed))
	assert.NoError(t, bind(t, `{"email":"a@example.com","displayName":"a","password":"secret1","role":"admin"}`))
}

func TestStruct(t *testing.T) {
	err := Struct(signup{Email: "a@example.com", Name: "a", Password: "secret1", Slug: "E-1_x"})
	assert.NoError(t, err)

	ae, ok := apperr.As(Struct(signup{Email: "a@example.com", Name: "a", Password: "secret1", Slug: "E%2F1"}))
	require.True(t, ok)
	assert.Equal(t, "slug", ae.Field)
}
