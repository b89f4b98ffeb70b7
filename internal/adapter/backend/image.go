package backend

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"  // register GIF
	_ "image/jpeg" // register JPEG
	_ "image/png"  // register PNG
	"net/http"

	_ "golang.org/x/image/tiff" // register TIFF
	_ "golang.org/x/image/webp" // register WebP

	"github.com/couchcryptid/stormview/internal/domain"
)

// ImageSource loads the bytes behind an image locator.
type ImageSource interface {
	Load(ctx context.Context, loc domain.ImageLocator) ([]byte, error)
}

// ImageInfo describes a decoded image.
type ImageInfo struct {
	Index  int    `json:"index" yaml:"index"`
	URL    string `json:"url" yaml:"url"`
	Format string `json:"format" yaml:"format"`
	Width  int    `json:"width" yaml:"width"`
	Height int    `json:"height" yaml:"height"`
	Bytes  int    `json:"bytes" yaml:"bytes"`
}

// Load fetches the image at the locator's cache-busted URL.
func (c *Client) Load(ctx context.Context, loc domain.ImageLocator) ([]byte, error) {
	const endpoint = "image"
	body, err := c.do(ctx, http.MethodGet, endpoint, loc.URL(), maxImageBody)
	if err != nil {
		return nil, fmt.Errorf("load image %d: %w", loc.Index, err)
	}
	c.record(endpoint, "")
	return body, nil
}

// Inspect loads a locator through src and confirms the bytes decode as an
// image. It is the headless rendering surface: a nil error means the image
// would display, any error means the slot is broken.
func Inspect(ctx context.Context, src ImageSource, loc domain.ImageLocator) (ImageInfo, error) {
	data, err := src.Load(ctx, loc)
	if err != nil {
		return ImageInfo{}, err
	}
	info, err := DecodeInfo(data)
	if err != nil {
		return ImageInfo{}, domain.NewFailure(domain.FailureMalformed, http.StatusOK,
			"image could not be decoded", fmt.Errorf("decode image %d: %w", loc.Index, err))
	}
	info.Index = loc.Index
	info.URL = loc.URL()
	return info, nil
}

// DecodeInfo reads the image header to find its format and dimensions.
func DecodeInfo(data []byte) (ImageInfo, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ImageInfo{}, err
	}
	return ImageInfo{
		Format: format,
		Width:  cfg.Width,
		Height: cfg.Height,
		Bytes:  len(data),
	}, nil
}
