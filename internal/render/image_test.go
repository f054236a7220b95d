package render

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
)

func encodePNG(t *testing.T, w, h int, fill func(x, y int) color.Color) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, fill(x, y))
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode failed: %v", err)
	}
	return buf.Bytes()
}

func TestFitCells(t *testing.T) {
	tests := []struct {
		name               string
		w, h               int
		maxWidth, maxRows  int
		wantCols, wantRows int
	}{
		{name: "small image keeps its width", w: 10, h: 10, maxWidth: 40, maxRows: 20, wantCols: 10, wantRows: 5},
		{name: "wide image limited by width", w: 200, h: 100, maxWidth: 40, maxRows: 20, wantCols: 40, wantRows: 10},
		{name: "tall image limited by rows", w: 100, h: 400, maxWidth: 40, maxRows: 10, wantCols: 5, wantRows: 10},
		{name: "at least one row", w: 100, h: 1, maxWidth: 40, maxRows: 10, wantCols: 40, wantRows: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cols, rows := fitCells(tt.w, tt.h, tt.maxWidth, tt.maxRows)
			if cols != tt.wantCols || rows != tt.wantRows {
				t.Errorf("fitCells() = (%d, %d), want (%d, %d)", cols, rows, tt.wantCols, tt.wantRows)
			}
		})
	}
}

func TestShade(t *testing.T) {
	if got := shade(0, 255); got != '@' {
		t.Errorf("shade(black) = %q, want '@'", got)
	}
	if got := shade(255, 255); got != ' ' {
		t.Errorf("shade(white) = %q, want ' '", got)
	}
	if got := shade(0, 0); got != ' ' {
		t.Errorf("shade(transparent) = %q, want ' '", got)
	}
}

func TestImagePreviewer_Preview(t *testing.T) {
	// Left half black, right half white.
	data := encodePNG(t, 8, 8, func(x, y int) color.Color {
		if x < 4 {
			return color.Black
		}
		return color.White
	})

	rows, err := NewImagePreviewer().Preview(data, 8, 10)
	if err != nil {
		t.Fatalf("Preview failed: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("len(rows) = %d, want 4", len(rows))
	}
	for _, row := range rows {
		if len(row) != 8 {
			t.Errorf("row %q is %d wide, want 8", row, len(row))
		}
		if !strings.HasPrefix(row, "@@") || !strings.HasSuffix(row, "  ") {
			t.Errorf("row %q should be dark on the left and light on the right", row)
		}
	}
}

func TestImagePreviewer_Errors(t *testing.T) {
	small := encodePNG(t, 4, 4, func(x, y int) color.Color { return color.Black })

	tests := []struct {
		name      string
		previewer *ImagePreviewer
		data      []byte
		width     int
		rows      int
	}{
		{name: "not an image", previewer: NewImagePreviewer(), data: []byte("nope"), width: 10, rows: 10},
		{name: "too many pixels", previewer: &ImagePreviewer{MaxPixels: 8}, data: small, width: 10, rows: 10},
		{name: "no room", previewer: NewImagePreviewer(), data: small, width: 0, rows: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.previewer.Preview(tt.data, tt.width, tt.rows); err == nil {
				t.Error("Preview() error = nil, want an error")
			}
		})
	}
}
