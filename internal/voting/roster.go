package voting

import (
	"bytes"
	"encoding/json"
	"math/big"
	"strings"

	"github.com/eventvote/backend/internal/models"
)

// identityColumn is the positional index of the voter identifier in a roster row.
const identityColumn = 1

// MatchRoster returns the first row whose identity value equals id, either as the
// same JSON value, as the same number (100 matches 100.0 and 1e2) or by its
// text form (100 matches "100").
func MatchRoster(rows models.Rows, id json.RawMessage) (models.Row, bool) {
	want := models.JSONText(id)
	wantText := models.StringValue(id)
	wantNum, isNum := number(id)
	for _, row := range rows {
		v, ok := row.At(identityColumn)
		if !ok {
			continue
		}
		if want != "" && models.JSONText(v) == want {
			return row, true
		}
		if isNum {
			if n, ok := number(v); ok && n.Cmp(wantNum) == 0 {
				return row, true
			}
		}
		if wantText != "" && models.StringValue(v) == wantText {
			return row, true
		}
	}
	return models.Row{}, false
}

// number reads raw as an exact rational when it is a JSON number.
func number(raw json.RawMessage) (*big.Rat, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	n, ok := v.(json.Number)
	if !ok {
		return nil, false
	}
	return new(big.Rat).SetString(n.String())
}

// rosterID is the stored voter id of a matched roster row.
func rosterID(row models.Row) string {
	v, _ := row.At(identityColumn)
	return idText(v)
}

// idText renders a request id for storage and lookups.
func idText(id json.RawMessage) string {
	return strings.TrimSpace(models.StringValue(id))
}
