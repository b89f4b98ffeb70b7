package dashboard

import (
	"fmt"
	"strings"

	"github.com/couchcryptid/stormview/internal/domain"
	"github.com/couchcryptid/stormview/internal/session"
)

const (
	dotCurrent = "●"
	dotOther   = "○"
	dotBroken  = "✕"
)

// viewLeft renders the storm list, the selected slot and the sidebar stats.
func (m Model) viewLeft() string {
	var b strings.Builder
	_, slot := m.machine.Selection()
	b.WriteString(titleStyle.Render("Storms"))
	b.WriteString(dimStyle.Render(" · " + slotLabel(slot)))
	b.WriteString("\n\n")

	for i, s := range m.list {
		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}
		b.WriteString(cursor + m.subjectLine(s) + "\n")
	}

	if m.listErr != "" {
		b.WriteString("\n" + errorStyle.Render(m.listErr) + "\n")
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("active %d  severe %d  warnings %d",
		m.stats.Active, m.stats.Severe, m.stats.Warnings)))

	if m.focus == FocusDate {
		b.WriteString("\n\ndate (YYYYMMDD): " + m.dateInput + "_")
		if m.dateErr != "" {
			b.WriteString("\n" + errorStyle.Render(m.dateErr))
		}
	}
	return b.String()
}

func (m Model) subjectLine(s domain.Subject) string {
	if s.IsOverview() {
		return s.DisplayName()
	}
	line := DangerBadge(s.Info().DangerCategory) + " " + s.DisplayName()
	if s.InvestigationArea() {
		line += dimStyle.Render(" (invest)")
	}
	return line
}

// viewRight renders the imagery carousel for the current selection and,
// when open, the detail pane below it.
func (m Model) viewRight() string {
	v := m.machine.View()
	subject, slot := m.machine.Selection()

	var b strings.Builder
	b.WriteString(titleStyle.Render(subject.DisplayName()))
	b.WriteString(dimStyle.Render(" · " + slotLabel(slot)))
	b.WriteString("\n\n")
	b.WriteString(m.viewImagery(v))

	if m.showDetail {
		b.WriteString("\n\n")
		b.WriteString(m.viewDetail(subject))
	}
	return b.String()
}

func (m Model) viewImagery(v session.View) string {
	switch v.State.Phase {
	case domain.PhaseIdle:
		return dimStyle.Render("select a storm to view imagery")
	case domain.PhaseLoading:
		return m.spinner.View() + " loading imagery..."
	case domain.PhaseFailed:
		return errorStyle.Render("error retrieving imagery: " + v.State.Reason())
	}

	if v.State.Sequence.NoImageryExpected() {
		return dimStyle.Render(domain.NoImageryMessage)
	}
	if v.Len == 0 {
		return dimStyle.Render("no imagery available")
	}

	var b strings.Builder
	b.WriteString(dots(v) + "\n")
	b.WriteString(fmt.Sprintf("image %d/%d\n", v.Index+1, v.Len))
	switch {
	case v.Pending:
		b.WriteString(m.spinner.View() + " loading image...")
	case v.IsBroken(v.Index):
		b.WriteString(errorStyle.Render("image failed to load"))
	case m.hasInfo && m.infoToken == v.Token:
		b.WriteString(fmt.Sprintf("%s %dx%d  %d bytes", m.info.Format, m.info.Width, m.info.Height, m.info.Bytes))
	}
	b.WriteString("\n" + dimStyle.Render(v.Current.URL()))
	return b.String()
}

// dots renders one marker per image: filled for the current position and a
// cross for images that failed to load.
func dots(v session.View) string {
	marks := make([]string, v.Len)
	for i := range marks {
		switch {
		case v.IsBroken(i):
			marks[i] = errorStyle.Render(dotBroken)
		case i == v.Index:
			marks[i] = activeDotStyle.Render(dotCurrent)
		default:
			marks[i] = dimStyle.Render(dotOther)
		}
	}
	return strings.Join(marks, " ")
}

func (m Model) viewDetail(subject domain.Subject) string {
	st := m.details.State()
	switch st.Phase {
	case domain.PhaseIdle:
		return ""
	case domain.PhaseLoading:
		return m.spinner.View() + " loading details..."
	case domain.PhaseFailed:
		return errorStyle.Render("error retrieving details: " + st.Reason())
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Details"))
	if st.Detail.Source != "" {
		b.WriteString(dimStyle.Render(" · " + st.Detail.Source))
	}
	b.WriteString("\n")
	if len(st.Detail.Storms) == 0 {
		b.WriteString(dimStyle.Render("no storm records"))
		return b.String()
	}
	for _, r := range st.Detail.Storms {
		if subject.IsStorm() && r.ID != subject.ID() {
			continue
		}
		b.WriteString(recordLine(r) + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func recordLine(r domain.StormRecord) string {
	name := r.Name
	if name == "" {
		name = r.ID
	}
	parts := []string{DangerBadge(r.Category) + " " + name}
	if r.WindSpeed > 0 {
		parts = append(parts, fmt.Sprintf("%.0f km/h", r.WindSpeed))
	}
	if r.Pressure > 0 {
		parts = append(parts, fmt.Sprintf("%.0f mb", r.Pressure))
	}
	if r.Location != "" {
		parts = append(parts, r.Location)
	}
	if r.Status != "" {
		parts = append(parts, r.Status)
	}
	return strings.Join(parts, " · ")
}

func slotLabel(slot domain.TimeSlot) string {
	if d, ok := slot.Date(); ok {
		return d.Time().Format("2006-01-02")
	}
	return "latest"
}
