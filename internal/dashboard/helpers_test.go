package dashboard

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/couchcryptid/stormview/internal/adapter/backend"
	"github.com/couchcryptid/stormview/internal/domain"
	"github.com/couchcryptid/stormview/internal/session"
)

// stripANSI removes ANSI escape sequences from a string.
func stripANSI(s string) string {
	var out []byte
	i := 0
	for i < len(s) {
		if s[i] == '\x1b' && i+1 < len(s) && s[i+1] == '[' {
			j := i + 2
			for j < len(s) && (s[j] < 'A' || s[j] > 'Z') && (s[j] < 'a' || s[j] > 'z') {
				j++
			}
			if j < len(s) {
				j++
			}
			i = j
		} else {
			out = append(out, s[i])
			i++
		}
	}
	return string(out)
}

// containsPlainText checks if s contains sub after stripping ANSI escapes.
func containsPlainText(s, sub string) bool {
	return strings.Contains(stripANSI(s), sub)
}

// execBatch executes a tea.Cmd, handling both single commands and batch
// commands. It returns all resulting messages. Spinner ticks are skipped
// to avoid infinite recursion.
func execBatch(t *testing.T, cmd tea.Cmd) []tea.Msg {
	t.Helper()
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var msgs []tea.Msg
		for _, c := range batch {
			msgs = append(msgs, execBatch(t, c)...)
		}
		return msgs
	}
	if _, isTick := msg.(spinner.TickMsg); isTick || msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

// drain feeds the messages produced by cmd back into the model until no
// further commands are produced.
func drain(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	for range 10 {
		msgs := execBatch(t, cmd)
		if len(msgs) == 0 {
			return m
		}
		var next []tea.Cmd
		for _, msg := range msgs {
			updated, c := m.Update(msg)
			m = updated.(Model)
			next = append(next, c)
		}
		cmd = tea.Batch(next...)
	}
	t.Fatal("commands did not settle")
	return m
}

func press(t *testing.T, m Model, k tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(k)
	return updated.(Model), cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seqOf(indices ...int) domain.ImageSequence {
	locs := make([]domain.ImageLocator, 0, len(indices))
	for _, i := range indices {
		locs = append(locs, domain.ImageLocator{
			Index:   i,
			Address: "http://storms.test/api/storms/img/" + string(rune('0'+i)),
			Buster:  "1698192000000",
		})
	}
	return domain.NewSequence(locs)
}

// fakeBackend serves imagery and detail from fixed tables.
type fakeBackend struct {
	mu         sync.Mutex
	sequences  map[string]domain.ImageSequence
	failures   map[string]error
	storms     []domain.StormRecord
	detailErr  error
	broken     map[int]bool
	slotsAsked []domain.TimeSlot
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		sequences: map[string]domain.ImageSequence{
			domain.OverviewID: seqOf(0, 1),
			"otis":            seqOf(0, 1, 2),
			"lee":             seqOf(0),
		},
		failures: map[string]error{},
		storms: []domain.StormRecord{
			{ID: "otis", Name: "Hurricane Otis", Category: 5, WindSpeed: 270, Pressure: 922, Status: "warning"},
			{ID: "lee", Name: "Tropical Storm Lee", Category: 1, Status: "active"},
			{ID: "invest-97l", Name: "Invest 97L", Category: 0},
		},
		broken: map[int]bool{},
	}
}

func (f *fakeBackend) Resolve(_ context.Context, s domain.Subject, _ domain.TimeSlot) (domain.ImageSequence, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s.InvestigationArea() {
		return domain.NoIndividualImagery(), nil
	}
	if err := f.failures[s.Key()]; err != nil {
		return domain.ImageSequence{}, err
	}
	return f.sequences[s.Key()], nil
}

func (f *fakeBackend) FetchDetail(_ context.Context, s domain.Subject, slot domain.TimeSlot) (domain.Detail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.slotsAsked = append(f.slotsAsked, slot)
	if f.detailErr != nil {
		return domain.Detail{}, f.detailErr
	}
	return domain.Detail{Subject: s, Slot: slot, Source: "storms.json", Storms: f.storms}, nil
}

func (f *fakeBackend) inspect(_ context.Context, loc domain.ImageLocator) (backend.ImageInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.broken[loc.Index] {
		return backend.ImageInfo{}, errors.New("decode failed")
	}
	return backend.ImageInfo{Index: loc.Index, URL: loc.URL(), Format: "png", Width: 640, Height: 480, Bytes: 2048}, nil
}

// newTestModel builds a sized model over fb and runs its Init commands.
func newTestModel(t *testing.T, fb *fakeBackend) Model {
	t.Helper()
	m := newUnstartedModel(fb)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = updated.(Model)
	return drain(t, m, m.Init())
}

func newUnstartedModel(fb *fakeBackend) Model {
	machine := session.New(fb, nil, discard())
	details := session.NewDetailFetcher(fb, nil, discard())
	return NewModel(machine, details,
		WithSubjectSource(fb),
		WithImageInspector(fb.inspect),
	)
}
