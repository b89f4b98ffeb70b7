package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/couchcryptid/stormview/internal/domain"
)

// dateStormsResponse is the body of GET /date/{date}/storms.
type dateStormsResponse struct {
	Date       string                     `json:"date"`
	Directory  string                     `json:"directory"`
	TotalFiles int                        `json:"total_files"`
	Data       map[string]json.RawMessage `json:"data"`
}

// dateStormResponse is the body of GET /date/{date}/storms/{id}.
type dateStormResponse struct {
	Date    string          `json:"date"`
	StormID string          `json:"storm_id"`
	File    string          `json:"file"`
	Data    json.RawMessage `json:"data"`
}

// FetchDetail fetches the structured record for subject on slot.
func (c *Client) FetchDetail(ctx context.Context, subject domain.Subject, slot domain.TimeSlot) (domain.Detail, error) {
	detail := domain.Detail{Subject: subject, Slot: slot}
	date, historic := slot.Date()

	var err error
	switch {
	case subject.IsOverview() && !historic:
		err = c.latestStorms(ctx, &detail)
	case !historic:
		err = c.latestStorm(ctx, subject.ID(), &detail)
	case subject.IsOverview():
		err = c.dateStorms(ctx, date, &detail)
	default:
		err = c.dateStorm(ctx, date, subject.ID(), &detail)
	}
	if err != nil {
		return domain.Detail{}, fmt.Errorf("fetch detail for %s@%s: %w", subject.Key(), slot, err)
	}
	return detail, nil
}

func (c *Client) latestStorms(ctx context.Context, d *domain.Detail) error {
	const endpoint = "storms"
	var raw json.RawMessage
	body, err := c.getJSON(ctx, endpoint, c.url("storms"), &raw)
	if err != nil {
		return err
	}
	storms, err := decodeStorms(raw)
	if err != nil {
		return c.malformed(endpoint, err)
	}
	c.record(endpoint, "")
	d.Storms, d.Raw = storms, body
	return nil
}

func (c *Client) latestStorm(ctx context.Context, id string, d *domain.Detail) error {
	const endpoint = "storm"
	var raw json.RawMessage
	body, err := c.getJSON(ctx, endpoint, c.url("storms", id), &raw)
	if err != nil {
		return err
	}
	storms, err := decodeStorms(raw)
	if err != nil {
		return c.malformed(endpoint, err)
	}
	c.record(endpoint, "")
	d.Storms, d.Raw = withDefaultID(storms, id), body
	return nil
}

func (c *Client) dateStorms(ctx context.Context, date domain.DateKey, d *domain.Detail) error {
	const endpoint = "date_storms"
	var resp dateStormsResponse
	body, err := c.getJSON(ctx, endpoint, c.url("date", string(date), "storms"), &resp)
	if err != nil {
		return err
	}

	files := make([]string, 0, len(resp.Data))
	for name := range resp.Data {
		files = append(files, name)
	}
	sort.Strings(files)

	var storms []domain.StormRecord
	for _, name := range files {
		recs, err := decodeStorms(resp.Data[name])
		if err != nil {
			// The service reports unreadable files inline; skip them.
			c.logger.Debug("skipping unreadable storm file", "date", date, "file", name, "error", err)
			continue
		}
		storms = append(storms, withDefaultID(recs, stormIDFromFile(name))...)
	}

	c.record(endpoint, "")
	d.Date, d.Source, d.Storms, d.Raw = resp.Date, resp.Directory, storms, body
	return nil
}

func (c *Client) dateStorm(ctx context.Context, date domain.DateKey, id string, d *domain.Detail) error {
	const endpoint = "date_storm"
	var resp dateStormResponse
	body, err := c.getJSON(ctx, endpoint, c.url("date", string(date), "storms", id), &resp)
	if err != nil {
		return err
	}
	storms, err := decodeStorms(resp.Data)
	if err != nil {
		return c.malformed(endpoint, err)
	}
	c.record(endpoint, "")
	d.Date, d.Source, d.Storms, d.Raw = resp.Date, resp.File, withDefaultID(storms, id), body
	return nil
}

func (c *Client) malformed(endpoint string, err error) error {
	c.record(endpoint, domain.FailureMalformed)
	return domain.NewFailure(domain.FailureMalformed, http.StatusOK,
		"malformed response from the storm service", fmt.Errorf("decode %s: %w", endpoint, err))
}

// decodeStorms accepts a single record, a list of records, or an object
// wrapping a "storms" list. An object that carries an "error" key is rejected.
func decodeStorms(raw json.RawMessage) ([]domain.StormRecord, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	switch raw[0] {
	case '[':
		var recs []domain.StormRecord
		if err := json.Unmarshal(raw, &recs); err != nil {
			return nil, err
		}
		return recs, nil
	case '{':
		var env struct {
			Storms json.RawMessage `json:"storms"`
			Error  string          `json:"error"`
		}
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, err
		}
		if env.Error != "" {
			return nil, errors.New(env.Error)
		}
		if len(env.Storms) > 0 {
			return decodeStorms(env.Storms)
		}
		var rec domain.StormRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, err
		}
		if rec.ID == "" && rec.Name == "" {
			return nil, nil
		}
		return []domain.StormRecord{rec}, nil
	default:
		return nil, fmt.Errorf("unexpected JSON value starting with %q", raw[0])
	}
}

// withDefaultID fills in a missing id on single-record responses.
func withDefaultID(recs []domain.StormRecord, id string) []domain.StormRecord {
	if len(recs) == 1 && recs[0].ID == "" {
		recs[0].ID = id
	}
	return recs
}

// stormIDFromFile turns a backend file stem like "tormenta_otis" into "otis".
func stormIDFromFile(name string) string {
	name = strings.TrimSuffix(name, ".json")
	if i := strings.LastIndexByte(name, '_'); i >= 0 && i < len(name)-1 {
		return name[i+1:]
	}
	return name
}
