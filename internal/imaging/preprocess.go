package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	_ "golang.org/x/image/webp"
)

// Preprocess prepares a check image for OCR: decode, grayscale, and Otsu
// binarization, re-encoded as PNG. Binarized text on a clean background is
// what the OCR engines extract best from.
func Preprocess(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	gray := toGray(img)
	threshold := otsuThreshold(gray)
	binarize(gray, threshold)

	var buf bytes.Buffer
	if err := png.Encode(&buf, gray); err != nil {
		return nil, fmt.Errorf("failed to encode preprocessed image: %w", err)
	}
	return buf.Bytes(), nil
}

func toGray(img image.Image) *image.Gray {
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			gray.Set(x, y, color.GrayModel.Convert(img.At(x, y)))
		}
	}
	return gray
}

// otsuThreshold computes the threshold that minimizes intra-class variance
// over the grayscale histogram.
func otsuThreshold(gray *image.Gray) uint8 {
	var hist [256]int
	total := 0
	bounds := gray.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			hist[gray.GrayAt(x, y).Y]++
			total++
		}
	}
	if total == 0 {
		return 128
	}

	var sum float64
	for i, c := range hist {
		sum += float64(i) * float64(c)
	}

	var sumB, wB float64
	var maxVar float64
	best := uint8(128)
	for t := 0; t < 256; t++ {
		wB += float64(hist[t])
		if wB == 0 {
			continue
		}
		wF := float64(total) - wB
		if wF == 0 {
			break
		}
		sumB += float64(t) * float64(hist[t])
		mB := sumB / wB
		mF := (sum - sumB) / wF
		v := wB * wF * (mB - mF) * (mB - mF)
		if v > maxVar {
			maxVar = v
			best = uint8(t)
		}
	}
	return best
}

func binarize(gray *image.Gray, threshold uint8) {
	for i, v := range gray.Pix {
		if v > threshold {
			gray.Pix[i] = 255
		} else {
			gray.Pix[i] = 0
		}
	}
}
