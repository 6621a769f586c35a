package canvasrenderer

import (
	"bytes"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
)

func sampleImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(200 + x%40), G: 190, B: uint8(150 + y%60), A: 255})
		}
	}
	return img
}

func TestRenderProducesPDF(t *testing.T) {
	r := NewRenderer(Meta{Title: "Brief", Keywords: []string{"pergament"}})
	data, err := r.Render(sampleImage(60, 80))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Fatalf("output is not a PDF: %q", data[:min(len(data), 16)])
	}
}

func TestRenderRejectsEmptyImage(t *testing.T) {
	if _, err := NewRenderer(Meta{}).Render(image.NewRGBA(image.Rect(0, 0, 0, 0))); err == nil {
		t.Fatalf("expected error for empty image")
	}
	if _, err := NewRenderer(Meta{}).Render(nil); err == nil {
		t.Fatalf("expected error for nil image")
	}
}

func TestSetSavesEveryFormat(t *testing.T) {
	dir := t.TempDir()
	set := Set(88, Meta{Title: "Vorlage"})
	img := sampleImage(40, 30)
	for _, name := range []string{"a.png", "a.jpg", "a.pdf"} {
		path := filepath.Join(dir, name)
		if err := set.Save(path, img); err != nil {
			t.Fatalf("save %s: %v", name, err)
		}
		info, err := os.Stat(path)
		if err != nil || info.Size() == 0 {
			t.Fatalf("%s not written: %v", name, err)
		}
	}
}
