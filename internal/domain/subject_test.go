package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testStormID = "otis"

func TestSubject_Identity(t *testing.T) {
	t.Run("overview", func(t *testing.T) {
		s := Overview()
		assert.True(t, s.IsOverview())
		assert.False(t, s.IsStorm())
		assert.Empty(t, s.ID())
		assert.Equal(t, OverviewID, s.Key())
		assert.True(t, s.Equal(Subject{}), "zero value is the overview")
	})

	t.Run("storm equality ignores descriptive fields", func(t *testing.T) {
		a := Storm(StormInfo{ID: testStormID, DisplayName: "Hurricane Otis", DangerCategory: 5})
		b := Storm(StormInfo{ID: testStormID, DisplayName: "Otis", DangerCategory: 1})
		assert.True(t, a.Equal(b))
		assert.False(t, a.Equal(Overview()))
		assert.False(t, a.Equal(Storm(StormInfo{ID: "norma"})))
	})

	t.Run("display name falls back to id", func(t *testing.T) {
		assert.Equal(t, "lidia", Storm(StormInfo{ID: "lidia"}).DisplayName())
		assert.Equal(t, "Global Overview", Overview().DisplayName())
	})

	t.Run("investigation area only for storms", func(t *testing.T) {
		assert.True(t, Storm(StormInfo{ID: "invest-97L", InvestigationArea: true}).InvestigationArea())
		assert.False(t, Overview().InvestigationArea())
	})
}

func TestParseStormID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"plain", "otis", "otis", false},
		{"trimmed", "  norma ", "norma", false},
		{"empty", "", "", true},
		{"spaces only", "   ", "", true},
		{"slash", "a/b", "", true},
		{"query", "a?b", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStormID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDateKey(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid", "20251001", false},
		{"leap day", "20240229", false},
		{"not a leap year", "20250229", true},
		{"too short", "2025101", true},
		{"dashes", "2025-10-01", true},
		{"letters", "2025OCT1", true},
		{"bad month", "20251301", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ParseDateKey(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, DateKey(tt.input), d)
		})
	}
}

func TestDateKeyOf(t *testing.T) {
	ts := time.Date(2025, time.October, 1, 23, 59, 0, 0, time.UTC)
	d := DateKeyOf(ts)
	assert.Equal(t, DateKey("20251001"), d)
	assert.Equal(t, time.Date(2025, time.October, 1, 0, 0, 0, 0, time.UTC), d.Time())
}

func TestTimeSlot(t *testing.T) {
	d := DateKey("20251001")

	assert.True(t, Latest().IsLatest())
	assert.True(t, TimeSlot{}.Equal(Latest()), "zero value is latest")
	assert.True(t, Historic(d).Equal(Historic(d)))
	assert.False(t, Historic(d).Equal(Historic("20251002")))
	assert.False(t, Historic(d).Equal(Latest()))

	got, ok := Historic(d).Date()
	assert.True(t, ok)
	assert.Equal(t, d, got)
	_, ok = Latest().Date()
	assert.False(t, ok)

	assert.True(t, SlotFor(nil).IsLatest())
	assert.True(t, SlotFor(&d).Equal(Historic(d)))
	assert.Equal(t, "latest", Latest().String())
	assert.Equal(t, "20251001", Historic(d).String())
}

func TestSelectionKey_Same(t *testing.T) {
	a := SelectionKey{Subject: Overview(), Slot: Latest(), Seq: 1}
	b := SelectionKey{Subject: Overview(), Slot: Latest(), Seq: 2}

	assert.True(t, a.Same(a))
	assert.False(t, a.Same(b), "same pair from a newer generation is a different selection")
	assert.Equal(t, "overview@latest#1", a.String())
}

func TestDangerLevel(t *testing.T) {
	tests := []struct {
		category int
		want     string
	}{
		{0, "low"},
		{1, "low"},
		{2, "elevated"},
		{3, "elevated"},
		{4, "high"},
		{5, "high"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DangerLevel(tt.category), "category %d", tt.category)
	}
}
