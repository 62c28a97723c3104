package locate

import (
	"image"

	"chip-quant/internal/imgstack"
	"chip-quant/pkg/geometry"

	"gocv.io/x/gocv"
)

// HoughDetector is the production primary pass: Gaussian blur followed by a
// Hough gradient circle transform on the 8-bit normalized crop, with the
// polarity (bright feature on dark background) guaranteed by the upstream
// contrast normalization.
type HoughDetector struct {
	DP          float64 // Accumulator resolution ratio
	CannyThresh float64 // Upper Canny threshold
	AccumThresh float64 // Accumulator vote threshold
}

// DefaultHoughDetector returns the detector tuning used for fluorescence
// crops.
func DefaultHoughDetector() HoughDetector {
	return HoughDetector{
		DP:          1.2,
		CannyThresh: 80,
		AccumThresh: 25,
	}
}

// DetectCircles implements CircleDetector. Returned centers are
// accumulator-ordered, strongest first.
func (d HoughDetector) DetectCircles(crop *imgstack.Plane, minRadius, maxRadius int) []geometry.Point2D {
	data := make([]byte, len(crop.Pix))
	for i, v := range crop.Pix {
		data[i] = byte(v)
	}

	m, err := gocv.NewMatFromBytes(crop.Height, crop.Width, gocv.MatTypeCV8U, data)
	if err != nil {
		return nil
	}
	defer m.Close()

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(m, &blurred, image.Point{X: 5, Y: 5}, 1.5, 1.5, gocv.BorderDefault)

	// Candidate circles for the same feature cluster tightly; a minimum
	// separation of the radius band keeps duplicates out.
	minDist := float64(maxRadius)
	if minDist < 1 {
		minDist = 1
	}

	circles := gocv.NewMat()
	defer circles.Close()
	gocv.HoughCirclesWithParams(blurred, &circles, gocv.HoughGradient, d.DP, minDist,
		d.CannyThresh, d.AccumThresh, minRadius, maxRadius)

	if circles.Empty() || circles.Cols() == 0 {
		return nil
	}

	found := make([]geometry.Point2D, 0, circles.Cols())
	for i := 0; i < circles.Cols(); i++ {
		cx := circles.GetFloatAt(0, i*3)
		cy := circles.GetFloatAt(0, i*3+1)
		found = append(found, geometry.Point2D{X: float64(cx), Y: float64(cy)})
	}
	return found
}
