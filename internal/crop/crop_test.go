package crop

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// testImage draws a white square on black so crops can be checked by color.
func testImage(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 40; y < 60; y++ {
		for x := 40; x < 60; x++ {
			img.Set(x, y, color.White)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestFaceCrop(t *testing.T) {
	data := testImage(t, 100, 100)

	got, err := FaceCrop(data, Region{X: 40, Y: 40, Width: 20, Height: 20}, 112)
	if err != nil {
		t.Fatalf("FaceCrop failed: %v", err)
	}

	bounds := got.Bounds()
	if bounds.Dx() != 112 || bounds.Dy() != 112 {
		t.Errorf("crop size = %dx%d; want 112x112", bounds.Dx(), bounds.Dy())
	}

	// The white square covers the region center after scaling.
	r, g, b, _ := got.At(56, 56).RGBA()
	if r>>8 < 200 || g>>8 < 200 || b>>8 < 200 {
		t.Errorf("center pixel = (%d, %d, %d); want near white", r>>8, g>>8, b>>8)
	}
}

func TestFaceCropClipsToBounds(t *testing.T) {
	data := testImage(t, 100, 100)

	// A region at the image edge must clip rather than fail.
	if _, err := FaceCrop(data, Region{X: 90, Y: 90, Width: 20, Height: 20}, 64); err != nil {
		t.Errorf("FaceCrop at edge failed: %v", err)
	}
}

func TestFaceCropInvalidInput(t *testing.T) {
	data := testImage(t, 100, 100)

	tests := []struct {
		name   string
		data   []byte
		region Region
		size   int
	}{
		{"zero width", data, Region{X: 10, Y: 10, Width: 0, Height: 20}, 112},
		{"negative height", data, Region{X: 10, Y: 10, Width: 20, Height: -5}, 112},
		{"zero size", data, Region{X: 10, Y: 10, Width: 20, Height: 20}, 0},
		{"not an image", []byte("garbage"), Region{X: 0, Y: 0, Width: 10, Height: 10}, 112},
		{"region outside image", data, Region{X: 500, Y: 500, Width: 20, Height: 20}, 112},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := FaceCrop(tc.data, tc.region, tc.size); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestWriteTemp(t *testing.T) {
	dir := t.TempDir()
	imagePath := filepath.Join(dir, "photo.png")
	if err := os.WriteFile(imagePath, testImage(t, 100, 100), 0o644); err != nil {
		t.Fatalf("failed to write test image: %v", err)
	}

	outPath, err := WriteTemp(imagePath, Region{X: 40, Y: 40, Width: 20, Height: 20}, 160, dir)
	if err != nil {
		t.Fatalf("WriteTemp failed: %v", err)
	}
	defer os.Remove(outPath)

	info, err := os.Stat(outPath)
	if err != nil {
		t.Fatalf("crop file missing: %v", err)
	}
	if info.Size() == 0 {
		t.Error("crop file is empty")
	}
}

func TestWriteTempMissingImage(t *testing.T) {
	_, err := WriteTemp("/does/not/exist.jpg", Region{X: 0, Y: 0, Width: 10, Height: 10}, 112, t.TempDir())
	if err == nil {
		t.Error("expected error for missing image")
	}
}
