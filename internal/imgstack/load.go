package imgstack

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/tiff"
)

// LoadPlane loads a single-channel intensity plane from an image file.
// 16-bit grayscale TIFF is the expected input; Gray16 values map directly
// to 0..65535. 8-bit and color inputs are converted via their 16-bit
// grayscale luminance so the saturation sentinel stays consistent.
func LoadPlane(path string) (*Plane, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}

	return FromImage(img), nil
}

// FromImage converts a decoded image to a float32 plane.
func FromImage(img image.Image) *Plane {
	bounds := img.Bounds()
	plane := NewPlane(bounds.Dx(), bounds.Dy())

	switch src := img.(type) {
	case *image.Gray16:
		for y := 0; y < plane.Height; y++ {
			row := src.Pix[y*src.Stride : y*src.Stride+plane.Width*2]
			for x := 0; x < plane.Width; x++ {
				v := uint16(row[x*2])<<8 | uint16(row[x*2+1])
				plane.Pix[y*plane.Width+x] = float32(v)
			}
		}
	case *image.Gray:
		for y := 0; y < plane.Height; y++ {
			row := src.Pix[y*src.Stride : y*src.Stride+plane.Width]
			for x := 0; x < plane.Width; x++ {
				// Widen 8-bit to the 16-bit working range.
				plane.Pix[y*plane.Width+x] = float32(uint16(row[x]) * 257)
			}
		}
	default:
		for y := 0; y < plane.Height; y++ {
			for x := 0; x < plane.Width; x++ {
				r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
				lum := (299*uint32(r) + 587*uint32(g) + 114*uint32(b)) / 1000
				plane.Pix[y*plane.Width+x] = float32(lum)
			}
		}
	}
	return plane
}

// LoadStack loads an ordered frame stack, one file per frame.
func LoadStack(paths []string) (*Stack, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("stack requires at least one frame path")
	}
	stack := &Stack{Frames: make([]*Plane, 0, len(paths))}
	for _, path := range paths {
		plane, err := LoadPlane(path)
		if err != nil {
			return nil, err
		}
		stack.Frames = append(stack.Frames, plane)
	}
	return stack, nil
}

// SupportedFormats returns the list of supported image file extensions.
func SupportedFormats() []string {
	return []string{".tiff", ".tif", ".png", ".jpg", ".jpeg"}
}

// IsSupportedFormat checks if the given path has a supported extension.
func IsSupportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range SupportedFormats() {
		if ext == format {
			return true
		}
	}
	return false
}
