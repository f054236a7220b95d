package render

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

const (
	defaultMaxPixels = 100 * 1000 * 1000 // 100 megapixels
	// Terminal cells are roughly twice as tall as they are wide.
	cellAspect = 2
)

// ramp maps luminance to characters, dark to light.
const ramp = "@%#*+=-:. "

// ImagePreviewer turns raster images into character art.
type ImagePreviewer struct {
	MaxPixels int // Total pixel count limit for decode (width * height)
}

// NewImagePreviewer creates a previewer with defaults.
func NewImagePreviewer() *ImagePreviewer {
	return &ImagePreviewer{MaxPixels: defaultMaxPixels}
}

// Preview renders data into at most maxWidth columns and maxRows rows.
// Images too large to decode and undecodable data return an error; callers
// fall back to a placeholder.
func (p *ImagePreviewer) Preview(data []byte, maxWidth, maxRows int) ([]string, error) {
	if maxWidth <= 0 || maxRows <= 0 {
		return nil, fmt.Errorf("no room for image preview: %dx%d", maxWidth, maxRows)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("image decode failed: %w", err)
	}
	pixels := uint64(cfg.Width) * uint64(cfg.Height)
	if p.MaxPixels > 0 && pixels > uint64(p.MaxPixels) {
		return nil, fmt.Errorf("image too large to decode: %dx%d (%d pixels)", cfg.Width, cfg.Height, pixels)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return nil, fmt.Errorf("empty image: %dx%d", cfg.Width, cfg.Height)
	}

	src, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("image decode failed: %w", err)
	}

	cols, rows := fitCells(cfg.Width, cfg.Height, maxWidth, maxRows)
	gray := imaging.Grayscale(imaging.Resize(src, cols, rows, imaging.Box))

	out := make([]string, 0, rows)
	bounds := gray.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		var sb strings.Builder
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			sb.WriteByte(shade(gray.NRGBAAt(x, y).R, gray.NRGBAAt(x, y).A))
		}
		out = append(out, sb.String())
	}
	return out, nil
}

// fitCells scales a w x h pixel image into a cell grid no larger than
// maxWidth x maxRows, keeping the aspect ratio.
func fitCells(w, h, maxWidth, maxRows int) (cols, rows int) {
	cols = min(w, maxWidth)
	rows = max(1, cols*h/(w*cellAspect))
	if rows > maxRows {
		rows = maxRows
		cols = max(1, rows*w*cellAspect/h)
		cols = min(cols, maxWidth)
	}
	return cols, rows
}

// shade picks the ramp character for an 8-bit gray value. Transparent
// pixels read as background.
func shade(v, alpha uint8) byte {
	if alpha < 0x80 {
		return ' '
	}
	return ramp[int(v)*(len(ramp)-1)/255]
}
