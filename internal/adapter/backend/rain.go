package backend

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/couchcryptid/stormview/internal/domain"
)

// FetchRainMap fetches the realtime interpolated rain map.
func (c *Client) FetchRainMap(ctx context.Context, gridSize, density int) (domain.RainMap, error) {
	const endpoint = "realtime"
	params := url.Values{
		"grid_size": {strconv.Itoa(gridSize)},
		"density":   {strconv.Itoa(density)},
	}
	u := c.rainURL + "/realtime?" + params.Encode()

	var m domain.RainMap
	if _, err := c.getJSON(ctx, endpoint, u, &m); err != nil {
		return domain.RainMap{}, fmt.Errorf("fetch rain map: %w", err)
	}
	c.record(endpoint, "")
	return m, nil
}
