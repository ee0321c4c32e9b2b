// Package media converts images to and from the data URLs carried by turn requests.
package media

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"
	"os"
	"strings"

	"github.com/xiaot623/seawatch/internal/domain"
)

// FrameQuality is the JPEG quality used for sampled frames.
const FrameQuality = 60

// MaxFrameWidth bounds the width of sampled frames.
const MaxFrameWidth = 640

// ParseDataURL parses a base64 image data URL into an attachment.
func ParseDataURL(s string) (domain.MediaAttachment, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(s), "data:")
	if !ok {
		return domain.MediaAttachment{}, fmt.Errorf("%w: not a data url", domain.ErrInvalidMedia)
	}
	meta, data, ok := strings.Cut(rest, ",")
	if !ok {
		return domain.MediaAttachment{}, fmt.Errorf("%w: missing payload", domain.ErrInvalidMedia)
	}
	mime, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return domain.MediaAttachment{}, fmt.Errorf("%w: payload is not base64", domain.ErrInvalidMedia)
	}
	if !strings.HasPrefix(mime, "image/") {
		return domain.MediaAttachment{}, fmt.Errorf("%w: unsupported type %q", domain.ErrInvalidMedia, mime)
	}
	if data == "" {
		return domain.MediaAttachment{}, fmt.Errorf("%w: empty payload", domain.ErrInvalidMedia)
	}
	if _, err := base64.StdEncoding.DecodeString(data); err != nil {
		return domain.MediaAttachment{}, fmt.Errorf("%w: %v", domain.ErrInvalidMedia, err)
	}
	return domain.MediaAttachment{MimeType: mime, Data: data}, nil
}

// ParseDataURLs parses every data URL, failing on the first invalid one.
func ParseDataURLs(urls []string) ([]domain.MediaAttachment, error) {
	out := make([]domain.MediaAttachment, 0, len(urls))
	for i, u := range urls {
		m, err := ParseDataURL(u)
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", i, err)
		}
		out = append(out, m)
	}
	return out, nil
}

// Encode returns raw image bytes as an attachment, sniffing the mime type.
func Encode(data []byte) (domain.MediaAttachment, error) {
	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		return domain.MediaAttachment{}, fmt.Errorf("%w: detected %q", domain.ErrInvalidMedia, mime)
	}
	return domain.MediaAttachment{
		MimeType: mime,
		Data:     base64.StdEncoding.EncodeToString(data),
	}, nil
}

// EncodeFile reads an image file into an attachment.
func EncodeFile(path string) (domain.MediaAttachment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.MediaAttachment{}, fmt.Errorf("failed to read image: %w", err)
	}
	return Encode(data)
}

// EncodeFrame downscales a frame to MaxFrameWidth and encodes it as JPEG.
func EncodeFrame(frame image.Image) (domain.MediaAttachment, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, downscale(frame, MaxFrameWidth), &jpeg.Options{Quality: FrameQuality}); err != nil {
		return domain.MediaAttachment{}, fmt.Errorf("failed to encode frame: %w", err)
	}
	return domain.MediaAttachment{
		MimeType: "image/jpeg",
		Data:     base64.StdEncoding.EncodeToString(buf.Bytes()),
	}, nil
}

// downscale resizes with nearest-neighbour sampling, keeping the aspect ratio.
func downscale(src image.Image, maxWidth int) image.Image {
	b := src.Bounds()
	if b.Dx() <= maxWidth {
		return src
	}
	w := maxWidth
	h := b.Dy() * maxWidth / b.Dx()
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		sy := b.Min.Y + y*b.Dy()/h
		for x := 0; x < w; x++ {
			sx := b.Min.X + x*b.Dx()/w
			dst.Set(x, y, src.At(sx, sy))
		}
	}
	return dst
}
