package domain

import (
	"fmt"
	"strings"
	"time"
)

// OverviewID is the identifier used for the overview subject in logs, events and keys.
const OverviewID = "overview"

type subjectKind int

const (
	kindOverview subjectKind = iota
	kindStorm
)

// StormInfo describes a single storm or investigation area.
type StormInfo struct {
	ID                string
	DisplayName       string
	InvestigationArea bool
	DangerCategory    int
}

// Subject is either the overview map or one storm. The zero value is the overview.
type Subject struct {
	kind  subjectKind
	storm StormInfo
}

// Overview returns the overview subject.
func Overview() Subject {
	return Subject{kind: kindOverview}
}

// Storm returns a storm subject. The id must be non-empty; see ParseStormID.
func Storm(info StormInfo) Subject {
	return Subject{kind: kindStorm, storm: info}
}

// ParseStormID validates a storm id as it appears in backend paths.
func ParseStormID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("storm id is empty")
	}
	if strings.ContainsAny(id, "/?#") {
		return "", fmt.Errorf("storm id %q contains path characters", id)
	}
	return id, nil
}

// IsOverview reports whether s is the overview subject.
func (s Subject) IsOverview() bool { return s.kind == kindOverview }

// IsStorm reports whether s is a storm subject.
func (s Subject) IsStorm() bool { return s.kind == kindStorm }

// ID returns the storm id, or the empty string for the overview.
func (s Subject) ID() string {
	if s.kind == kindOverview {
		return ""
	}
	return s.storm.ID
}

// Key returns the id used in logs and events: the storm id, or OverviewID.
func (s Subject) Key() string {
	if s.kind == kindOverview {
		return OverviewID
	}
	return s.storm.ID
}

// Info returns the storm description. It is the zero value for the overview.
func (s Subject) Info() StormInfo { return s.storm }

// InvestigationArea reports whether s is a storm flagged as an investigation area.
func (s Subject) InvestigationArea() bool {
	return s.kind == kindStorm && s.storm.InvestigationArea
}

// DisplayName returns a human readable name.
func (s Subject) DisplayName() string {
	if s.kind == kindOverview {
		return "Global Overview"
	}
	if s.storm.DisplayName != "" {
		return s.storm.DisplayName
	}
	return s.storm.ID
}

// Equal compares identity only: kind and storm id.
func (s Subject) Equal(o Subject) bool {
	if s.kind != o.kind {
		return false
	}
	return s.kind == kindOverview || s.storm.ID == o.storm.ID
}

func (s Subject) String() string { return s.Key() }

// DangerLevel buckets a storm category into the dashboard's three alert levels.
func DangerLevel(category int) string {
	switch {
	case category >= 4:
		return "high"
	case category >= 2:
		return "elevated"
	default:
		return "low"
	}
}

// DateKey is an 8-digit YYYYMMDD calendar date key.
type DateKey string

const dateKeyLayout = "20060102"

// ParseDateKey validates s as a YYYYMMDD calendar date.
func ParseDateKey(s string) (DateKey, error) {
	s = strings.TrimSpace(s)
	if len(s) != 8 {
		return "", fmt.Errorf("date %q: want 8 digits YYYYMMDD", s)
	}
	if _, err := time.Parse(dateKeyLayout, s); err != nil {
		return "", fmt.Errorf("date %q: %w", s, err)
	}
	return DateKey(s), nil
}

// DateKeyOf formats t as a date key in t's location.
func DateKeyOf(t time.Time) DateKey {
	return DateKey(t.Format(dateKeyLayout))
}

// Time returns the date at midnight UTC.
func (d DateKey) Time() time.Time {
	t, err := time.Parse(dateKeyLayout, string(d))
	if err != nil {
		return time.Time{}
	}
	return t
}

type slotKind int

const (
	slotLatest slotKind = iota
	slotHistoric
)

// TimeSlot pins a view to the latest run or to a historical date. The zero value is Latest.
type TimeSlot struct {
	kind slotKind
	date DateKey
}

// Latest returns the latest time slot.
func Latest() TimeSlot { return TimeSlot{kind: slotLatest} }

// Historic returns the time slot for a specific date.
func Historic(d DateKey) TimeSlot { return TimeSlot{kind: slotHistoric, date: d} }

// SlotFor maps an optional date to a slot: nil is Latest.
func SlotFor(d *DateKey) TimeSlot {
	if d == nil {
		return Latest()
	}
	return Historic(*d)
}

// IsLatest reports whether t is the latest slot.
func (t TimeSlot) IsLatest() bool { return t.kind == slotLatest }

// Date returns the date of a historic slot and false for Latest.
func (t TimeSlot) Date() (DateKey, bool) {
	if t.kind != slotHistoric {
		return "", false
	}
	return t.date, true
}

// Equal compares by tag and, for historic slots, by date.
func (t TimeSlot) Equal(o TimeSlot) bool {
	return t.kind == o.kind && t.date == o.date
}

func (t TimeSlot) String() string {
	if t.kind == slotLatest {
		return "latest"
	}
	return string(t.date)
}

// SelectionKey correlates an in-flight fetch with the selection that started it.
type SelectionKey struct {
	Subject Subject
	Slot    TimeSlot
	Seq     uint64
}

// Same reports whether k and o identify the same selection generation.
func (k SelectionKey) Same(o SelectionKey) bool {
	return k.Seq == o.Seq && k.Subject.Equal(o.Subject) && k.Slot.Equal(o.Slot)
}

func (k SelectionKey) String() string {
	return fmt.Sprintf("%s@%s#%d", k.Subject.Key(), k.Slot, k.Seq)
}
