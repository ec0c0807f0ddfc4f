package users

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventvote/backend/internal/apperr"
	"github.com/eventvote/backend/internal/auth"
	"github.com/eventvote/backend/internal/middleware"
	"github.com/eventvote/backend/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type memUsers map[uuid.UUID]*models.User

func (m memUsers) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := m[id]
	if !ok {
		return nil, apperr.NotFound("user")
	}
	return u, nil
}

func (m memUsers) UpdateProfile(_ context.Context, id uuid.UUID, p auth.UpdateProfileParams) (*models.User, error) {
	u, ok := m[id]
	if !ok {
		return nil, apperr.NotFound("user")
	}
	if p.Organization != nil {
		u.Organization = *p.Organization
	}
	if p.Username != nil {
		u.Username = *p.Username
	}
	if p.ContactName != nil {
		u.ContactName = *p.ContactName
	}
	if p.Phone != nil {
		u.Phone = *p.Phone
	}
	return u, nil
}

func serve(store Store, caller uuid.UUID, sub *uuid.UUID, method, body string) *httptest.ResponseRecorder {
	h := NewHandler(store)
	r := gin.New()
	as := func(c *gin.Context) {
		c.Set(middleware.ContextUserID, caller)
		c.Set(middleware.ContextUserRole, models.RoleOwner)
		if sub != nil {
			c.Set(middleware.ContextSubUserID, *sub)
			c.Set(middleware.ContextUserRole, models.SubUserRoleAdmin)
		}
	}
	r.GET("/api/users", as, h.Get)
	r.PUT("/api/users", as, h.Update)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, "/api/users", bytes.NewBufferString(body)))
	return w
}

func TestGetProfile(t *testing.T) {
	id := uuid.New()
	store := memUsers{id: {ID: id, Email: "o@example.com", Username: "owner", Password: "hash"}}

	w := serve(store, id, nil, http.MethodGet, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "hash")
	var body struct {
		Data Profile `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "owner", body.Data.User.Username)
	assert.Equal(t, models.RoleOwner, body.Data.Role)

	assert.Equal(t, http.StatusNotFound, serve(store, uuid.New(), nil, http.MethodGet, "").Code)
}

func TestUpdateProfile(t *testing.T) {
	id := uuid.New()
	store := memUsers{id: {ID: id, Username: "owner", Organization: "Old"}}

	w := serve(store, id, nil, http.MethodPut, `{"organization":"School 7","phone":"555"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "School 7", store[id].Organization)
	assert.Equal(t, "555", store[id].Phone)
	assert.Equal(t, "owner", store[id].Username, "absent fields unchanged")

	assert.Equal(t, http.StatusBadRequest, serve(store, id, nil, http.MethodPut, `{"username":"  "}`).Code)
	assert.Equal(t, http.StatusBadRequest, serve(store, id, nil, http.MethodPut, `{bad`).Code)

	sub := uuid.New()
	assert.Equal(t, http.StatusForbidden, serve(store, id, &sub, http.MethodPut, `{"phone":"1"}`).Code)
}
