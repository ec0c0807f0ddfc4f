package events

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventvote/backend/internal/apperr"
)

func TestParseFormListsAllMissingFields(t *testing.T) {
	_, err := ParseForm(Form{Name: "only a name", Description: "d"})
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.Validation, ae.Kind)
	assert.Equal(t,
		[]string{"id", "date", "startTime", "stopTime", "selectedData", "expiry", "link"},
		ae.Details["missing"])
}

func TestParseFormRejectsBadSelectedData(t *testing.T) {
	for _, raw := range []string{`not json`, `{"Name":"A"}`, `[]`, `[1,2]`} {
		t.Run(raw, func(t *testing.T) {
			f := validForm("evt")
			f.SelectedData = raw
			_, err := ParseForm(f)
			assert.True(t, apperr.Is(err, apperr.Malformed), "%v", err)
		})
	}
}

func TestParseFormRowsKeepKeyOrder(t *testing.T) {
	f := validForm("evt")
	f.SelectedData = `[{"zeta":1,"Name":"A","alpha":true}]`
	in, err := ParseForm(f)
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta", "Name", "alpha"}, in.SelectedData[0].Keys())
	assert.Len(t, in.FileData, 2)
}

func TestParseFormOptionalFields(t *testing.T) {
	f := validForm("evt")
	f.FileData = ""
	f.CandidateImages = ""
	in, err := ParseForm(f)
	require.NoError(t, err)
	assert.NotNil(t, in.FileData)
	assert.Empty(t, in.FileData)
	assert.Empty(t, in.CandidateImages)
	assert.Equal(t, int64(1893456000000), in.Expiry)
}

func TestParseFormCandidateImages(t *testing.T) {
	f := validForm("evt")
	f.CandidateImages = `[{"candidateIndex":"2","image":"/x.png"},{"image":""}]`
	in, err := ParseForm(f)
	require.NoError(t, err)
	require.Len(t, in.CandidateImages, 2)
	assert.Equal(t, 2, in.CandidateImages[0].CandidateIndex)
	assert.Equal(t, "/x.png", in.CandidateImages[0].Image)
	assert.Equal(t, 1, in.CandidateImages[1].CandidateIndex, "defaults to position")

	tests := map[string]string{
		"out of range": `[{"candidateIndex":3}]`,
		"negative":     `[{"candidateIndex":-1}]`,
		"duplicate":    `[{"candidateIndex":1},{"candidateIndex":1}]`,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			f := validForm("evt")
			f.CandidateImages = raw
			_, err := ParseForm(f)
			ae, ok := apperr.As(err)
			require.True(t, ok)
			assert.Equal(t, apperr.Validation, ae.Kind)
			assert.Equal(t, "candidateImages", ae.Field)
		})
	}
}

func TestParseFormWindowAndExpiry(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*Form)
		field string
	}{
		{"bad date", func(f *Form) { f.Date = "03/11/2026" }, "date"},
		{"bad start", func(f *Form) { f.StartTime = "9am" }, "startTime"},
		{"stop before start", func(f *Form) { f.StopTime = "08:00" }, "stopTime"},
		{"stop equals start", func(f *Form) { f.StopTime = "09:00:00" }, "stopTime"},
		{"expiry not a number", func(f *Form) { f.Expiry = "tomorrow" }, "expiry"},
		{"expiry zero", func(f *Form) { f.Expiry = "0" }, "expiry"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validForm("evt")
			tt.edit(&f)
			_, err := ParseForm(f)
			ae, ok := apperr.As(err)
			require.True(t, ok)
			assert.Equal(t, apperr.Validation, ae.Kind)
			assert.Equal(t, tt.field, ae.Field)
		})
	}
}

func TestParseFormRejectsIDsOutsideOnePathSegment(t *testing.T) {
	for _, id := range []string{"a/b", "E%2F1", "..", "a b", "evt?x=1", strings.Repeat("e", 129)} {
		t.Run(id, func(t *testing.T) {
			_, err := ParseForm(validForm(id))
			ae, ok := apperr.As(err)
			require.True(t, ok)
			assert.Equal(t, apperr.Validation, ae.Kind)
			assert.Equal(t, "id", ae.Field)
		})
	}
	in, err := ParseForm(validForm("Evt_2026-a"))
	require.NoError(t, err)
	assert.Equal(t, "Evt_2026-a", in.ID)
}

func TestCheckUploadsRejectsNonImages(t *testing.T) {
	f := validForm("evt")
	f.CandidateImages = declare(1)
	in, err := ParseForm(f)
	require.NoError(t, err)

	bad := upload("notes.pdf", "x")
	bad.ContentType = "application/pdf"
	err = checkUploads(in.CandidateImages, []Upload{bad})
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "images", ae.Field)

	assert.NoError(t, checkUploads(in.CandidateImages, []Upload{placeholder()}))
}
