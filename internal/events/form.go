package events

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/eventvote/backend/internal/apperr"
	"github.com/eventvote/backend/internal/models"
	"github.com/eventvote/backend/pkg/storage"
	"github.com/eventvote/backend/pkg/validation"
)

// Form is the raw field set of a create or update request. The JSON-valued
// fields (SelectedData, CandidateImages, FileData) arrive as encoded strings.
type Form struct {
	ID              string `form:"id" binding:"required,notblank,max=128,segment"`
	Date            string `form:"date" binding:"required,notblank"`
	StartTime       string `form:"startTime" binding:"required,notblank"`
	StopTime        string `form:"stopTime" binding:"required,notblank"`
	Name            string `form:"name" binding:"required,notblank,max=200"`
	Description     string `form:"description" binding:"required,notblank"`
	SelectedData    string `form:"selectedData" binding:"required,notblank"`
	CandidateImages string `form:"candidateImages"`
	FileData        string `form:"fileData"`
	Expiry          string `form:"expiry" binding:"required,notblank"`
	Link            string `form:"link" binding:"required,notblank,max=512"`
}

// Upload is one uploaded image file, in upload order.
// A part with no filename and no bytes is a placeholder: no file at that position.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

func (u Upload) empty() bool {
	return u.Size == 0 && u.Filename == ""
}

// Input is a validated event field set.
type Input struct {
	ID           string
	Date         string
	StartTime    string
	StopTime     string
	Name         string
	Description  string
	SelectedData models.Rows
	FileData     models.Rows
	// Declared images; Image holds the caller-supplied fallback path, if any.
	CandidateImages []models.CandidateImage
	Expiry          int64
	Link            string
}

// declaredImage accepts candidateIndex as a number or a numeric string.
type declaredImage struct {
	CandidateIndex json.RawMessage `json:"candidateIndex"`
	Image          string          `json:"image"`
}

// ParseForm validates the tagged fields, decodes the JSON-valued fields and checks
// the schedule window. Every missing field is reported at once.
func ParseForm(f Form) (*Input, error) {
	if err := validation.Struct(f); err != nil {
		return nil, err
	}

	in := &Input{
		ID:          f.ID,
		Date:        strings.TrimSpace(f.Date),
		StartTime:   strings.TrimSpace(f.StartTime),
		StopTime:    strings.TrimSpace(f.StopTime),
		Name:        strings.TrimSpace(f.Name),
		Description: f.Description,
		Link:        strings.TrimSpace(f.Link),
	}
	selected, err := models.ParseRows(f.SelectedData)
	if err != nil {
		return nil, apperr.MalformedField("selectedData", err)
	}
	if len(selected) == 0 {
		e := apperr.MalformedField("selectedData", nil)
		e.Message = "selectedData must be a non-empty array"
		return nil, e
	}
	in.SelectedData = selected

	in.FileData = models.Rows{}
	if strings.TrimSpace(f.FileData) != "" {
		rows, err := models.ParseRows(f.FileData)
		if err != nil {
			return nil, apperr.MalformedField("fileData", err)
		}
		if rows != nil {
			in.FileData = rows
		}
	}

	in.CandidateImages = []models.CandidateImage{}
	if strings.TrimSpace(f.CandidateImages) != "" {
		imgs, err := parseDeclaredImages(f.CandidateImages)
		if err != nil {
			return nil, apperr.MalformedField("candidateImages", err)
		}
		in.CandidateImages = imgs
	}
	seen := make(map[int]bool, len(in.CandidateImages))
	for _, ci := range in.CandidateImages {
		if ci.CandidateIndex < 0 || ci.CandidateIndex >= len(in.SelectedData) {
			return nil, apperr.Invalid("candidateImages", fmt.Sprintf("candidateIndex %d does not address a selectedData row", ci.CandidateIndex))
		}
		if seen[ci.CandidateIndex] {
			return nil, apperr.Invalid("candidateImages", fmt.Sprintf("candidateIndex %d declared more than once", ci.CandidateIndex))
		}
		seen[ci.CandidateIndex] = true
	}

	if err := validateWindow(in); err != nil {
		return nil, err
	}
	expiry, err := strconv.ParseInt(strings.TrimSpace(f.Expiry), 10, 64)
	if err != nil || expiry <= 0 {
		return nil, apperr.Invalid("expiry", "expiry must be a positive epoch milliseconds value")
	}
	in.Expiry = expiry
	return in, nil
}

func parseDeclaredImages(s string) ([]models.CandidateImage, error) {
	var raw []declaredImage
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil, err
	}
	out := make([]models.CandidateImage, len(raw))
	for i, d := range raw {
		idx := i
		if len(d.CandidateIndex) > 0 && string(d.CandidateIndex) != "null" {
			n, err := strconv.Atoi(models.StringValue(d.CandidateIndex))
			if err != nil {
				return nil, fmt.Errorf("entry %d: candidateIndex is not an integer", i)
			}
			idx = n
		}
		out[i] = models.CandidateImage{CandidateIndex: idx, Image: strings.TrimSpace(d.Image)}
	}
	return out, nil
}

func parseClock(s string) (time.Time, error) {
	if t, err := time.Parse("15:04:05", s); err == nil {
		return t, nil
	}
	return time.Parse("15:04", s)
}

func validateWindow(in *Input) error {
	if _, err := time.Parse("2006-01-02", in.Date); err != nil {
		return apperr.Invalid("date", "date must be YYYY-MM-DD")
	}
	start, err := parseClock(in.StartTime)
	if err != nil {
		return apperr.Invalid("startTime", "startTime must be HH:MM or HH:MM:SS")
	}
	stop, err := parseClock(in.StopTime)
	if err != nil {
		return apperr.Invalid("stopTime", "stopTime must be HH:MM or HH:MM:SS")
	}
	if !stop.After(start) {
		return apperr.Invalid("stopTime", "stopTime must be after startTime")
	}
	return nil
}

// checkUploads enforces that the uploaded file count equals the declared image
// count whenever images are declared, and that every real file is an allowed image.
func checkUploads(declared []models.CandidateImage, files []Upload) error {
	if len(declared) == 0 {
		return nil
	}
	if len(files) != len(declared) {
		return apperr.Mismatch(len(declared), len(files))
	}
	for _, f := range files {
		if f.empty() {
			continue
		}
		if !storage.ValidateImageType(f.ContentType, f.Filename) {
			return apperr.Invalid("images", fmt.Sprintf("%s: only jpg, png, webp and gif images are allowed", f.Filename))
		}
		if f.Size > storage.MaxImageSize {
			return apperr.Invalid("images", fmt.Sprintf("%s: image exceeds 5MB limit", f.Filename))
		}
	}
	return nil
}
