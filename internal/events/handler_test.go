package events

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventvote/backend/internal/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func router(f *fixture, caller uuid.UUID) *gin.Engine {
	h := NewHandler(f.svc, nil)
	r := gin.New()
	g := r.Group("/api/events", func(c *gin.Context) {
		c.Set(middleware.ContextUserID, caller)
		c.Next()
	})
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", RequireOwnership(f.svc), h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	return r
}

func multipartBody(t *testing.T, form Form, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range map[string]string{
		"id": form.ID, "date": form.Date, "startTime": form.StartTime, "stopTime": form.StopTime,
		"name": form.Name, "description": form.Description, "selectedData": form.SelectedData,
		"fileData": form.FileData, "candidateImages": form.CandidateImages,
		"expiry": form.Expiry, "link": form.Link,
	} {
		if v != "" {
			require.NoError(t, w.WriteField(k, v))
		}
	}
	for name, content := range files {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", `form-data; name="images"; filename="`+name+`"`)
		h.Set("Content-Type", "image/png")
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

type envelope struct {
	Success bool                   `json:"success"`
	Data    json.RawMessage        `json:"data"`
	Message string                 `json:"message"`
	Field   string                 `json:"field"`
	Details map[string]interface{} `json:"details"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestHandlerCreateAndGet(t *testing.T) {
	f := newFixture()
	r := router(f, f.owner)

	form := validForm("evt-1")
	form.CandidateImages = declare(1)
	body, ct := multipartBody(t, form, map[string]string{"a.png": "A"})
	req := httptest.NewRequest(http.MethodPost, "/api/events", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	env := decode(t, w)
	assert.JSONEq(t, `{"id":"evt-1","link":"https://vote.example.com/e/evt-1"}`, string(env.Data))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/events/evt-1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var got struct {
		ID              string `json:"id"`
		CandidateImages []struct {
			CandidateIndex int    `json:"candidateIndex"`
			Image          string `json:"image"`
		} `json:"candidateImages"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &got))
	assert.Equal(t, "evt-1", got.ID)
	require.Len(t, got.CandidateImages, 1)
	assert.Contains(t, got.CandidateImages[0].Image, "a.png")
}

func TestHandlerCountMismatchIs400(t *testing.T) {
	f := newFixture()
	r := router(f, f.owner)

	form := validForm("evt-1")
	form.CandidateImages = declare(3)
	body, ct := multipartBody(t, form, map[string]string{"a.png": "A", "b.png": "B"})
	req := httptest.NewRequest(http.MethodPost, "/api/events", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	env := decode(t, w)
	assert.False(t, env.Success)
	assert.EqualValues(t, 3, env.Details["expected"])
	assert.EqualValues(t, 2, env.Details["received"])
}

func TestHandlerOtherOwnerSees404(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Create(context.Background(), f.owner, validForm("evt-1"), nil)
	require.NoError(t, err)

	r := router(f, uuid.New())
	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(method, "/api/events/evt-1", nil))
		assert.Equal(t, http.StatusNotFound, w.Code, method)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/events", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, string(decode(t, w).Data))
}

func TestHandlerDelete(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Create(context.Background(), f.owner, validForm("evt-1"), nil)
	require.NoError(t, err)
	r := router(f, f.owner)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/events/evt-1", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/events/evt-1", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
