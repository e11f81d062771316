package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInclusiveDays(t *testing.T) {
	start := MustParseDate("2026-03-01")
	assert.Equal(t, 1, InclusiveDays(start, start))
	assert.Equal(t, 10, InclusiveDays(start, MustParseDate("2026-03-10")))
	assert.Equal(t, 0, InclusiveDays(start, MustParseDate("2026-02-28")))
	// crosses the DST-free UTC calendar and a leap boundary
	assert.Equal(t, 366, InclusiveDays(MustParseDate("2028-01-01"), MustParseDate("2028-12-31")))
}

func TestDateJSONRoundTrip(t *testing.T) {
	payload := struct {
		Start Date  `json:"start"`
		End   *Date `json:"end"`
	}{Start: MustParseDate("2026-05-04")}

	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"start":"2026-05-04","end":null}`, string(raw))

	var decoded struct {
		Start Date `json:"start"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"start":"2026-05-04T10:30:00Z"}`), &decoded))
	assert.True(t, decoded.Start.Equal(MustParseDate("2026-05-04")))
}

func TestDateScan(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan(time.Date(2026, 7, 9, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2026-07-09", d.String())

	require.NoError(t, d.Scan([]byte("2026-07-10")))
	assert.Equal(t, "2026-07-10", d.String())

	require.NoError(t, d.Scan(nil))
	assert.True(t, d.IsZero())
}

func TestWeekend(t *testing.T) {
	assert.True(t, MustParseDate("2026-01-04").IsWeekend())  // Sunday
	assert.True(t, MustParseDate("2026-01-03").IsWeekend())  // Saturday
	assert.False(t, MustParseDate("2026-01-05").IsWeekend()) // Monday
}
