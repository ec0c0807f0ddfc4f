package events

import (
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/eventvote/backend/internal/middleware"
	"github.com/eventvote/backend/pkg/response"
)

// File field names accepted for candidate images, in order of preference.
var imageFields = []string{"images", "candidateImageFiles", "image"}

// Handler handles event HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates an event handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// readForm collects the event fields and image files from a multipart or urlencoded body.
func readForm(c *gin.Context) (Form, []Upload, error) {
	var files []Upload
	if mf, err := c.MultipartForm(); err == nil && mf != nil {
		for _, field := range imageFields {
			if fhs := mf.File[field]; len(fhs) > 0 {
				files = uploadsFrom(fhs)
				break
			}
		}
	} else if err != nil && err != http.ErrNotMultipart {
		return Form{}, nil, err
	}
	f := Form{
		ID:              c.PostForm("id"),
		Date:            c.PostForm("date"),
		StartTime:       c.PostForm("startTime"),
		StopTime:        c.PostForm("stopTime"),
		Name:            c.PostForm("name"),
		Description:     c.PostForm("description"),
		SelectedData:    c.PostForm("selectedData"),
		CandidateImages: c.PostForm("candidateImages"),
		FileData:        c.PostForm("fileData"),
		Expiry:          c.PostForm("expiry"),
		Link:            c.PostForm("link"),
	}
	return f, files, nil
}

func uploadsFrom(fhs []*multipart.FileHeader) []Upload {
	out := make([]Upload, len(fhs))
	for i, fh := range fhs {
		out[i] = Upload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Open:        func() (io.ReadCloser, error) { return fh.Open() },
		}
	}
	return out
}

// Create handles POST /api/events (multipart: fields + image files).
func (h *Handler) Create(c *gin.Context) {
	form, files, err := readForm(c)
	if err != nil {
		response.BadRequest(c, "invalid multipart body")
		return
	}
	e, err := h.svc.Create(c.Request.Context(), middleware.OwnerID(c), form, files)
	if err != nil {
		h.logFailure("create event", err)
		response.Fail(c, err)
		return
	}
	response.Created(c, gin.H{"id": e.ID, "link": e.Link})
}

// Update handles PUT /api/events/:id (multipart). The id comes from the path.
func (h *Handler) Update(c *gin.Context) {
	form, files, err := readForm(c)
	if err != nil {
		response.BadRequest(c, "invalid multipart body")
		return
	}
	e, err := h.svc.Update(c.Request.Context(), c.Param("id"), middleware.OwnerID(c), form, files)
	if err != nil {
		h.logFailure("update event", err)
		response.Fail(c, err)
		return
	}
	response.OK(c, e)
}

// Delete handles DELETE /api/events/:id.
func (h *Handler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id"), middleware.OwnerID(c)); err != nil {
		h.logFailure("delete event", err)
		response.Fail(c, err)
		return
	}
	response.NoContent(c)
}

// Get handles GET /api/events/:id. The event is loaded by RequireOwnership.
func (h *Handler) Get(c *gin.Context) {
	response.OK(c, EventFrom(c))
}

// List handles GET /api/events.
func (h *Handler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context(), middleware.OwnerID(c))
	if err != nil {
		h.logFailure("list events", err)
		response.Fail(c, err)
		return
	}
	response.OK(c, list)
}

func (h *Handler) logFailure(op string, err error) {
	h.logger.Warn(op+" failed", zap.Error(err))
}
