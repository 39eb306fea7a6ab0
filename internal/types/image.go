package types

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

const defaultImageMIMEType = "image/png"

var ErrNotImage = errors.New("payload is not an image")

// ImagePayload is an attached problem-statement image.
type ImagePayload struct {
	MIMEType string
	Data     []byte
}

// Empty reports whether no image is attached.
func (p *ImagePayload) Empty() bool {
	return p == nil || len(p.Data) == 0
}

// DecodeImage decodes a base64 payload with its media type. An empty media
// type falls back to image/png.
func DecodeImage(mimeType, b64 string) (*ImagePayload, error) {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if mimeType == "" {
		mimeType = defaultImageMIMEType
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, fmt.Errorf("%w: %s", ErrNotImage, mimeType)
	}
	b64 = strings.TrimSpace(b64)
	if b64 == "" {
		return nil, fmt.Errorf("image data is empty")
	}
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return &ImagePayload{MIMEType: mimeType, Data: data}, nil
}

// DecodeDataURL splits a "data:<mime>;base64,<payload>" URL as produced by
// a browser FileReader.
func DecodeDataURL(u string) (*ImagePayload, error) {
	head, payload, ok := strings.Cut(strings.TrimSpace(u), ",")
	if !ok || !strings.HasPrefix(head, "data:") {
		return nil, fmt.Errorf("malformed data url")
	}
	mimeType := strings.TrimPrefix(head, "data:")
	mimeType, _, _ = strings.Cut(mimeType, ";")
	return DecodeImage(mimeType, payload)
}

// Base64 returns the standard base64 encoding of the image bytes.
func (p *ImagePayload) Base64() string {
	if p.Empty() {
		return ""
	}
	return base64.StdEncoding.EncodeToString(p.Data)
}
