package frame

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/pthm-cable/boids/components"
)

func pixel(t *testing.T, img image.Image, x, y int) color.RGBA {
	t.Helper()
	return color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
}

func TestRenderColors(t *testing.T) {
	views := []components.AgentView{
		{X: 100, Y: 100, VX: 1, Predated: true},
		{X: 200, Y: 200, VX: 1, IsPredator: true},
	}
	img := Render(views, 400, 400, 200)

	if b := img.Bounds(); b.Dx() != 200 || b.Dy() != 200 {
		t.Fatalf("bounds = %v, want 200x200", b)
	}
	if got := pixel(t, img, 100, 100); got != PredatorColor {
		t.Errorf("predator pixel = %v, want %v", got, PredatorColor)
	}
	if got := pixel(t, img, 49, 49); got != PredatedColor {
		t.Errorf("predated boid pixel = %v, want %v", got, PredatedColor)
	}
	if got := pixel(t, img, 180, 20); got != Background {
		t.Errorf("empty pixel = %v, want %v", got, Background)
	}
}

func TestRenderSize(t *testing.T) {
	tests := []struct {
		name          string
		worldW        float64
		worldH        float64
		width         int
		wantW, wantH  int
	}{
		{"aspect kept", 400, 200, 200, 200, 100},
		{"clamped low", 400, 400, 1, MinWidth, MinWidth},
		{"clamped high", 100, 50, 10000, MaxWidth, MaxWidth / 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Render(nil, tt.worldW, tt.worldH, tt.width).Bounds()
			if b.Dx() != tt.wantW || b.Dy() != tt.wantH {
				t.Errorf("size = %dx%d, want %dx%d", b.Dx(), b.Dy(), tt.wantW, tt.wantH)
			}
		})
	}
}

func TestEncodePNG(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodePNG(&buf, []components.AgentView{{X: 10, Y: 10, VY: 1}}, 100, 100, 64); err != nil {
		t.Fatalf("EncodePNG: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decoding output: %v", err)
	}
	if img.Bounds().Dx() != 64 {
		t.Errorf("width = %d, want 64", img.Bounds().Dx())
	}
}

func TestRecorder(t *testing.T) {
	if r, err := NewRecorder("", 10, 64); r != nil || err != nil {
		t.Fatalf("NewRecorder(\"\") = %v, %v; want nil, nil", r, err)
	}

	dir := filepath.Join(t.TempDir(), "frames")
	r, err := NewRecorder(dir, 10, 64)
	if err != nil {
		t.Fatal(err)
	}

	if path, err := r.Capture(5, nil, 100, 100); path != "" || err != nil {
		t.Errorf("Capture(5) = %q, %v; want skipped", path, err)
	}
	path, err := r.Capture(20, nil, 100, 100)
	if err != nil {
		t.Fatalf("Capture(20): %v", err)
	}
	if want := filepath.Join(dir, "frame_00000020.png"); path != want {
		t.Errorf("path = %s, want %s", path, want)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("frame not written: %v", err)
	}
}
