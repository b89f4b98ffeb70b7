// Package dashboard implements the interactive terminal viewer: a storm list
// on the left, the selected subject's imagery carousel and detail record on
// the right.
package dashboard

import (
	"context"

	"github.com/couchcryptid/stormview/internal/adapter/backend"
	"github.com/couchcryptid/stormview/internal/carousel"
	"github.com/couchcryptid/stormview/internal/domain"
	"github.com/couchcryptid/stormview/internal/session"
)

// Focus represents which part of the dashboard has keyboard focus.
type Focus int

const (
	FocusList Focus = iota // Storm list and carousel navigation.
	FocusDate              // Date entry field.
)

// --- Consumer-side interfaces ---

// SubjectSource lists the storms known for a slot.
type SubjectSource interface {
	FetchDetail(ctx context.Context, subject domain.Subject, slot domain.TimeSlot) (domain.Detail, error)
}

// ImageInspector loads the image behind a locator and reports how it decoded.
type ImageInspector func(ctx context.Context, loc domain.ImageLocator) (backend.ImageInfo, error)

// --- tea.Msg types ---

// ImageryMsg carries the result of an imagery fetch.
type ImageryMsg struct {
	Result session.Result
}

// DetailMsg carries the result of a detail fetch.
type DetailMsg struct {
	Result session.DetailResult
}

// SubjectsMsg carries the storm list for a slot.
type SubjectsMsg struct {
	Slot   domain.TimeSlot
	Detail domain.Detail
	Err    error
}

// ImageSettledMsg reports that the image shown under Token finished loading.
type ImageSettledMsg struct {
	Token carousel.Token
	Info  backend.ImageInfo
	Err   error
}
