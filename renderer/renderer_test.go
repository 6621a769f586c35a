package renderer_test

import (
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/ByLCY/parchment/errs"
	"github.com/ByLCY/parchment/renderer"
)

func noisyImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		if i%4 == 3 {
			img.Pix[i] = 255
			continue
		}
		img.Pix[i] = uint8((i * 37) % 251)
	}
	return img
}

func TestParseFormat(t *testing.T) {
	cases := map[string]renderer.Format{
		"png": renderer.PNG, ".PNG": renderer.PNG, "jpg": renderer.JPEG,
		"jpeg": renderer.JPEG, "pdf": renderer.PDF,
	}
	for in, want := range cases {
		got, err := renderer.ParseFormat(in)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := renderer.ParseFormat("tiff"); !errors.Is(err, errs.ErrEncodingFailure) {
		t.Fatalf("expected EncodingFailure, got %v", err)
	}
	if renderer.JPEG.Ext() != ".jpg" || renderer.PDF.Ext() != ".pdf" {
		t.Fatalf("unexpected extensions")
	}
}

func TestPNGRoundTripIsPixelIdentical(t *testing.T) {
	dir := t.TempDir()
	src := noisyImage(31, 17)
	set := renderer.Set{renderer.PNG: renderer.PNGRenderer{}}
	path := filepath.Join(dir, "out.png")
	if err := set.Save(path, src); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := renderer.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Bounds() != src.Bounds() {
		t.Fatalf("bounds changed: %v", got.Bounds())
	}
	for y := 0; y < 17; y++ {
		for x := 0; x < 31; x++ {
			r1, g1, b1, a1 := src.At(x, y).RGBA()
			r2, g2, b2, a2 := got.At(x, y).RGBA()
			if r1 != r2 || g1 != g2 || b1 != b2 || a1 != a2 {
				t.Fatalf("pixel (%d,%d) changed", x, y)
			}
		}
	}
}

func TestJPEGRoundTripKeepsDimensions(t *testing.T) {
	dir := t.TempDir()
	set := renderer.Set{renderer.JPEG: renderer.JPEGRenderer{}}
	path := filepath.Join(dir, "out.jpg")
	if err := set.Save(path, noisyImage(64, 48)); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := renderer.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Bounds().Dx() != 64 || got.Bounds().Dy() != 48 {
		t.Fatalf("dimensions changed: %v", got.Bounds())
	}
}

func TestSaveUnknownExtension(t *testing.T) {
	set := renderer.Set{renderer.PNG: renderer.PNGRenderer{}}
	err := set.Save(filepath.Join(t.TempDir(), "out.bmp"), noisyImage(2, 2))
	if !errors.Is(err, errs.ErrEncodingFailure) {
		t.Fatalf("expected EncodingFailure, got %v", err)
	}
	err = set.Save(filepath.Join(t.TempDir(), "out.pdf"), noisyImage(2, 2))
	if !errors.Is(err, errs.ErrEncodingFailure) {
		t.Fatalf("missing encoder must be EncodingFailure, got %v", err)
	}
}

type failingRenderer struct{}

func (failingRenderer) Render(image.Image) ([]byte, error) {
	return nil, errors.New("boom")
}

func TestFailedEncodeLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	set := renderer.Set{renderer.PNG: failingRenderer{}}
	path := filepath.Join(dir, "out.png")
	if err := set.Save(path, noisyImage(2, 2)); !errors.Is(err, errs.ErrEncodingFailure) {
		t.Fatalf("expected EncodingFailure, got %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("failed save left files behind: %v", entries)
	}
}

func TestWriteFileReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "file.bin")
	if err := renderer.WriteFile(path, []byte("old")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := renderer.WriteFile(path, []byte("new")); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "new" {
		t.Fatalf("unexpected content %q", data)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %v", entries)
	}
}
