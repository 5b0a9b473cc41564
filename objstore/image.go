package objstore

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"

	"golang.org/x/image/draw"
)

const (
	// MaxUploadSize bounds a single image upload.
	MaxUploadSize = 10 << 20
	maxImageWidth = 1600
	jpegQuality   = 82
)

// Downscale reads an uploaded image and, when it is wider than 1600px,
// scales it down keeping the aspect ratio. The result is encoded in the
// source format so the stored extension stays truthful. It returns the
// encoded bytes and their content type.
func Downscale(src io.Reader) ([]byte, string, error) {
	raw, err := io.ReadAll(io.LimitReader(src, MaxUploadSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("read upload: %w", err)
	}
	if len(raw) > MaxUploadSize {
		return nil, "", fmt.Errorf("upload exceeds %d bytes", MaxUploadSize)
	}
	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	contentType := "image/" + format

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxImageWidth || format == "gif" {
		// Small images and GIFs (which may be animated) are stored untouched.
		return raw, contentType, nil
	}

	newH := h * maxImageWidth / w
	dst := image.NewRGBA(image.Rect(0, 0, maxImageWidth, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	switch format {
	case "jpeg":
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality})
	case "png":
		err = png.Encode(&buf, dst)
	default:
		err = gif.Encode(&buf, dst, nil)
	}
	if err != nil {
		return nil, "", fmt.Errorf("encode %s: %w", format, err)
	}
	return buf.Bytes(), contentType, nil
}
