// Package crop cuts face regions out of photos and scales them to the
// input size an embedding model expects.
package crop

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

// Region is a face bounding box in pixel coordinates.
type Region struct {
	X      int
	Y      int
	Width  int
	Height int
}

// DefaultMargin is the fraction of the box size added around the face
// so the crop keeps some context for the model.
const DefaultMargin = 0.2

// FaceCrop decodes an image, cuts out the face region with a margin and
// scales the result to size x size pixels.
func FaceCrop(data []byte, region Region, size int) (*image.RGBA, error) {
	if region.Width <= 0 || region.Height <= 0 {
		return nil, fmt.Errorf("invalid region %dx%d", region.Width, region.Height)
	}
	if size <= 0 {
		return nil, fmt.Errorf("invalid target size %d", size)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	rect := expand(region, img.Bounds())
	if rect.Empty() {
		return nil, fmt.Errorf("region %+v lies outside the image", region)
	}

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, rect, draw.Over, nil)
	return dst, nil
}

// expand grows the region by DefaultMargin on each side and clips it to
// the image bounds.
func expand(region Region, bounds image.Rectangle) image.Rectangle {
	mx := int(float64(region.Width) * DefaultMargin)
	my := int(float64(region.Height) * DefaultMargin)

	rect := image.Rect(
		region.X-mx,
		region.Y-my,
		region.X+region.Width+mx,
		region.Y+region.Height+my,
	)
	return rect.Intersect(bounds)
}

// WriteTemp crops a face out of the image file and writes the scaled
// result as a JPEG into dir. The caller removes the file when done.
func WriteTemp(imagePath string, region Region, size int, dir string) (string, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}

	cropped, err := FaceCrop(data, region, size)
	if err != nil {
		return "", err
	}

	outPath := filepath.Join(dir, fmt.Sprintf("face_crop_%s.jpg", uuid.NewString()))
	f, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("failed to create crop file: %w", err)
	}
	defer f.Close()

	if err := jpeg.Encode(f, cropped, &jpeg.Options{Quality: 92}); err != nil {
		os.Remove(outPath)
		return "", fmt.Errorf("failed to encode crop: %w", err)
	}
	return outPath, nil
}
