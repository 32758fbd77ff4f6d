package services

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"math"
	"os"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const jpegQuality = 85

// resizeImage downsizes the image at path in place when either dimension
// exceeds maxDimension, keeping the aspect ratio. Formats Go cannot
// re-encode (gif animations aside, webp in particular) are left untouched.
func resizeImage(path string, maxDimension int) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	src, format, err := image.Decode(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxDimension && h <= maxDimension {
		return nil
	}

	newW, newH := scaledDimensions(w, h, maxDimension)
	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Src, nil)

	var buf bytes.Buffer
	switch format {
	case "jpeg":
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality})
	case "png":
		err = png.Encode(&buf, dst)
	case "gif":
		err = gif.Encode(&buf, dst, nil)
	default:
		return fmt.Errorf("re-encoding %s is not supported, keeping original", format)
	}
	if err != nil {
		return fmt.Errorf("failed to re-encode image: %w", err)
	}

	return os.WriteFile(path, buf.Bytes(), 0644)
}

// scaledDimensions shrinks (w, h) so the larger side equals maxDimension,
// rounding the other side to the nearest pixel.
func scaledDimensions(w, h, maxDimension int) (int, int) {
	if w > h {
		scale := float64(maxDimension) / float64(w)
		return maxDimension, int(math.Round(float64(h) * scale))
	}
	scale := float64(maxDimension) / float64(h)
	return int(math.Round(float64(w) * scale)), maxDimension
}

// ImageInfo reports the dimensions and format of a stored image.
func ImageInfo(path string) (width, height int, format string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, "", err
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, "", fmt.Errorf("failed to read image info: %w", err)
	}
	return cfg.Width, cfg.Height, format, nil
}
