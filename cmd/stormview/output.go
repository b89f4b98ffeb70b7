package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/stormview/internal/adapter/backend"
	"github.com/couchcryptid/stormview/internal/domain"
	"github.com/couchcryptid/stormview/internal/session"
)

// report is a command result that can also print itself as plain text.
type report interface {
	writeText(w io.Writer) error
}

// writeOutput renders r in the requested format: text, json or yaml.
func writeOutput(w io.Writer, format string, r report) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	case "", "text":
		return r.writeText(w)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

type imageReport struct {
	Index     int    `json:"index" yaml:"index"`
	URL       string `json:"url" yaml:"url"`
	Cacheable bool   `json:"cacheable" yaml:"cacheable"`
	Status    string `json:"status,omitempty" yaml:"status,omitempty"` // ok or broken, probe only
	Format    string `json:"format,omitempty" yaml:"format,omitempty"`
	Width     int    `json:"width,omitempty" yaml:"width,omitempty"`
	Height    int    `json:"height,omitempty" yaml:"height,omitempty"`
}

type resolveReport struct {
	Subject   string        `json:"subject" yaml:"subject"`
	Slot      string        `json:"slot" yaml:"slot"`
	Images    int           `json:"images" yaml:"images"`
	NoImagery bool          `json:"no_imagery,omitempty" yaml:"no_imagery,omitempty"`
	Message   string        `json:"message,omitempty" yaml:"message,omitempty"`
	Broken    []int         `json:"broken,omitempty" yaml:"broken,omitempty"`
	Sequence  []imageReport `json:"sequence" yaml:"sequence"`
}

func newResolveReport(v session.View, infos []backend.ImageInfo, probed bool) resolveReport {
	seq := v.State.Sequence
	r := resolveReport{
		Subject:   v.Key.Subject.Key(),
		Slot:      v.Key.Slot.String(),
		Images:    seq.Len(),
		NoImagery: seq.NoImageryExpected(),
		Sequence:  make([]imageReport, 0, seq.Len()),
	}
	switch {
	case seq.NoImageryExpected():
		r.Message = domain.NoImageryMessage
	case seq.Empty():
		r.Message = "no imagery available"
	}

	for i, loc := range seq.Locators() {
		img := imageReport{Index: loc.Index, URL: loc.URL(), Cacheable: loc.Cacheable}
		if probed {
			if v.IsBroken(i) {
				img.Status = "broken"
				r.Broken = append(r.Broken, loc.Index)
			} else {
				img.Status = "ok"
				img.Format, img.Width, img.Height = infos[i].Format, infos[i].Width, infos[i].Height
			}
		}
		r.Sequence = append(r.Sequence, img)
	}
	return r
}

func (r resolveReport) writeText(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "%s on %s: %d images\n", r.Subject, r.Slot, r.Images); err != nil {
		return err
	}
	if r.Message != "" {
		_, err := fmt.Fprintln(w, r.Message)
		return err
	}
	for _, img := range r.Sequence {
		line := fmt.Sprintf("  %3d  %s", img.Index, img.URL)
		switch img.Status {
		case "ok":
			line += fmt.Sprintf("  ok %s %dx%d", img.Format, img.Width, img.Height)
		case "broken":
			line += "  broken"
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

type detailOutput struct {
	Subject string               `json:"subject" yaml:"subject"`
	Slot    string               `json:"slot" yaml:"slot"`
	Date    string               `json:"date,omitempty" yaml:"date,omitempty"`
	Source  string               `json:"source,omitempty" yaml:"source,omitempty"`
	Stats   domain.StormStats    `json:"stats" yaml:"stats"`
	Storms  []domain.StormRecord `json:"storms" yaml:"storms"`
}

func detailReport(d domain.Detail) detailOutput {
	storms := d.Storms
	if storms == nil {
		storms = []domain.StormRecord{}
	}
	return detailOutput{
		Subject: d.Subject.Key(),
		Slot:    d.Slot.String(),
		Date:    d.Date,
		Source:  d.Source,
		Stats:   domain.Stats(d.Storms),
		Storms:  storms,
	}
}

func (d detailOutput) writeText(w io.Writer) error {
	header := fmt.Sprintf("%s on %s: %d storms (%d severe, %d warnings)",
		d.Subject, d.Slot, d.Stats.Active, d.Stats.Severe, d.Stats.Warnings)
	if d.Source != "" {
		header += " from " + d.Source
	}
	if _, err := fmt.Fprintln(w, header); err != nil {
		return err
	}
	for _, r := range d.Storms {
		fields := []string{r.ID, fmt.Sprintf("C%d", r.Category)}
		if r.Name != "" {
			fields = append(fields, r.Name)
		}
		if r.WindSpeed > 0 {
			fields = append(fields, fmt.Sprintf("%.0f km/h", r.WindSpeed))
		}
		if r.Pressure > 0 {
			fields = append(fields, fmt.Sprintf("%.0f mb", r.Pressure))
		}
		if r.Location != "" {
			fields = append(fields, r.Location)
		}
		if r.Status != "" {
			fields = append(fields, r.Status)
		}
		if r.IsInvestigationArea() {
			fields = append(fields, "investigation area")
		}
		if _, err := fmt.Fprintln(w, "  "+strings.Join(fields, "  ")); err != nil {
			return err
		}
	}
	return nil
}

type rainReport struct {
	domain.RainSummary `yaml:",inline"`
}

func (r rainReport) writeText(w io.Writer) error {
	_, err := fmt.Fprintf(w,
		"rain map %s: %d points, max %.2f at (%.2f, %.2f), mean %.2f\n",
		r.Timestamp, r.Points, r.MaxRain, r.Wettest.Lat, r.Wettest.Lon, r.MeanRain)
	return err
}
