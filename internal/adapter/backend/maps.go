package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/couchcryptid/stormview/internal/domain"
)

// listResponse is the body of both map listing endpoints.
type listResponse struct {
	Date        string         `json:"date"`
	StormID     string         `json:"storm_id,omitempty"`
	TotalImages int            `json:"total_images"`
	Images      *[]listedImage `json:"images"`
}

type listedImage struct {
	Index    *int   `json:"index"`
	Filename string `json:"filename"`
}

// ListGeneralMaps lists the general-map image indices published on date.
func (c *Client) ListGeneralMaps(ctx context.Context, date domain.DateKey) ([]int, error) {
	u := c.url("date", string(date), "maps", "general", "list")
	indices, err := c.list(ctx, "list_general", u)
	if err != nil {
		return nil, fmt.Errorf("list general maps: %w", err)
	}
	return indices, nil
}

// ListStormMaps lists the image indices published for one storm on date.
func (c *Client) ListStormMaps(ctx context.Context, date domain.DateKey, stormID string) ([]int, error) {
	u := c.url("date", string(date), "maps", stormID, "list")
	indices, err := c.list(ctx, "list_storm", u)
	if err != nil {
		return nil, fmt.Errorf("list storm %s maps: %w", stormID, err)
	}
	return indices, nil
}

func (c *Client) list(ctx context.Context, endpoint, u string) ([]int, error) {
	var resp listResponse
	if _, err := c.getJSON(ctx, endpoint, u, &resp); err != nil {
		return nil, err
	}
	if resp.Images == nil {
		c.record(endpoint, domain.FailureMalformed)
		return nil, domain.NewFailure(domain.FailureMalformed, http.StatusOK,
			"malformed response from the storm service", errors.New("listing has no images field"))
	}
	indices := make([]int, 0, len(*resp.Images))
	for i, img := range *resp.Images {
		if img.Index == nil {
			c.record(endpoint, domain.FailureMalformed)
			return nil, domain.NewFailure(domain.FailureMalformed, http.StatusOK,
				"malformed response from the storm service", fmt.Errorf("listing entry %d has no index", i))
		}
		indices = append(indices, *img.Index)
	}
	c.record(endpoint, "")
	return indices, nil
}

// GeneralMapAddress is the address of one historic general-map image.
func (c *Client) GeneralMapAddress(date domain.DateKey, index int) string {
	return c.url("date", string(date), "maps", "general", strconv.Itoa(index))
}

// StormMapAddress is the address of one historic storm image.
func (c *Client) StormMapAddress(date domain.DateKey, stormID string, index int) string {
	return c.url("date", string(date), "maps", stormID, strconv.Itoa(index))
}

// ProbeGeneralMap checks that the latest general map exists and returns its address.
func (c *Client) ProbeGeneralMap(ctx context.Context) (string, error) {
	u := c.url("maps")
	if err := c.probe(ctx, "probe_general", u); err != nil {
		return "", fmt.Errorf("probe general map: %w", err)
	}
	return u, nil
}

// ProbeStormMap checks that the latest image for a storm exists and returns its address.
func (c *Client) ProbeStormMap(ctx context.Context, stormID string) (string, error) {
	u := c.url("maps", stormID)
	if err := c.probe(ctx, "probe_storm", u); err != nil {
		return "", fmt.Errorf("probe storm %s map: %w", stormID, err)
	}
	return u, nil
}

// probe issues a HEAD request, retrying with GET when the server does not
// allow HEAD on the route.
func (c *Client) probe(ctx context.Context, endpoint, u string) error {
	_, err := c.do(ctx, http.MethodHead, endpoint, u, 0)
	var f *domain.Failure
	if errors.As(err, &f) && (f.Status == http.StatusMethodNotAllowed || f.Status == http.StatusNotImplemented) {
		_, err = c.do(ctx, http.MethodGet, endpoint, u, maxImageBody)
	}
	if err != nil {
		return err
	}
	c.record(endpoint, "")
	return nil
}
