package detector

import (
	"bytes"
	"fmt"
	"image"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
)

// ImageSource identifies one room photo to analyze. Data carries the encoded
// image bytes when the caller already holds them; URL allows a refetch when
// those bytes turn out to be unreadable.
type ImageSource struct {
	ID   string
	URL  string
	Data []byte
}

// Key returns the cache identity of the source.
func (s ImageSource) Key() string {
	if s.ID != "" {
		return s.ID
	}
	return s.URL
}

// decodeImage decodes encoded image bytes. The standard decoders are tried
// first; WebP gets an explicit fallback since interior photo CDNs serve it
// heavily.
func decodeImage(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image payload")
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err == nil {
		return img, nil
	}
	if webpImg, webpErr := webp.Decode(bytes.NewReader(data)); webpErr == nil {
		return webpImg, nil
	}
	return nil, fmt.Errorf("decode image: %w", err)
}
