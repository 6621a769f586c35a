package renderer

import (
	"bytes"
	"image"

	"github.com/disintegration/imaging"

	"github.com/ByLCY/parchment/errs"
)

// DefaultJPEGQuality 在 85–90 区间内，兼顾纸张纹理与文件大小。
const DefaultJPEGQuality = 88

// PNGRenderer 无损编码。
type PNGRenderer struct{}

// Render implements Renderer.
func (PNGRenderer) Render(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, errs.E(errs.EncodingFailure, "renderer.PNG", err)
	}
	return buf.Bytes(), nil
}

// JPEGRenderer 以给定质量编码；Quality <= 0 时使用 DefaultJPEGQuality。
type JPEGRenderer struct {
	Quality int
}

// Render implements Renderer.
func (r JPEGRenderer) Render(img image.Image) ([]byte, error) {
	q := r.Quality
	if q <= 0 {
		q = DefaultJPEGQuality
	}
	if q > 100 {
		q = 100
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(q)); err != nil {
		return nil, errs.E(errs.EncodingFailure, "renderer.JPEG", err)
	}
	return buf.Bytes(), nil
}

// Load 读取 PNG/JPEG 文件，主要用于回读校验。
func Load(path string) (image.Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, errs.E(errs.EncodingFailure, "renderer.Load", err)
	}
	return img, nil
}
