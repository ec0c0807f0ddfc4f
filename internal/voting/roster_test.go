package voting

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/eventvote/backend/internal/models"
)

func TestMatchRoster(t *testing.T) {
	rows := models.Rows{
		models.MustRow("only", "100"),
		models.MustRow("Name", "Ann", "ID", "100"),
		models.MustRow("Name", "Bob", "ID", 200),
		models.MustRow("ID", "300", "Name", "Cy"),
		models.MustRow("Name", "Dee", "Active", true),
		models.MustRow("Name", "Eve", "ID", "100"),
	}

	tests := []struct {
		name  string
		id    string
		want  string
		found bool
	}{
		{"string equals string", `"100"`, "Ann", true},
		{"number equals string", `100`, "Ann", true},
		{"string equals number", `"200"`, "Bob", true},
		{"number equals number", `200`, "Bob", true},
		{"decimal form of a number", `200.0`, "Bob", true},
		{"exponent form of a number", `2e2`, "Bob", true},
		{"numbers compare by value only", `200.5`, "", false},
		{"string is not parsed as a number", `"2e2"`, "", false},
		{"only the second column counts", `"300"`, "", false},
		{"booleans compare as text", `"true"`, "Dee", true},
		{"no match", `"999"`, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row, ok := MatchRoster(rows, json.RawMessage(tt.id))
			assert.Equal(t, tt.found, ok)
			if tt.found {
				name, _ := row.Get("Name")
				assert.Equal(t, tt.want, models.StringValue(name))
			}
		})
	}
}

func TestMatchRosterNumericForms(t *testing.T) {
	rows := models.Rows{models.MustRow("Name", "Ann", "ID", 100)}
	for _, id := range []string{`100`, `100.0`, `1e2`, `1.00E+2`, `"100"`} {
		_, ok := MatchRoster(rows, json.RawMessage(id))
		assert.True(t, ok, id)
	}
	for _, id := range []string{`"100.0"`, `"1e2"`, `101`, `99.999`} {
		_, ok := MatchRoster(rows, json.RawMessage(id))
		assert.False(t, ok, id)
	}
}

func TestIDText(t *testing.T) {
	assert.Equal(t, "42", idText(json.RawMessage(`42`)))
	assert.Equal(t, "abc", idText(json.RawMessage(`" abc "`)))
	assert.Equal(t, "", idText(json.RawMessage(`null`)))
	assert.Equal(t, "", idText(nil))
}
