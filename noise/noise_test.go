package noise

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/ByLCY/parchment/errs"
)

// fixedSource 按顺序循环返回预设值，用于替换真实随机源。
type fixedSource struct {
	values []int
	i      int
}

func (f *fixedSource) IntN(n int) int {
	v := f.values[f.i%len(f.values)] % n
	f.i++
	return v
}

func (f *fixedSource) NormFloat64() float64 { return 0 }

func TestGenerateDeterministic(t *testing.T) {
	a, err := GenerateSeeded(64, 48, 3, -12, 12, 7)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	b, err := GenerateSeeded(64, 48, 3, -12, 12, 7)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(a.Values) != 64*48*3 {
		t.Fatalf("unexpected field size %d", len(a.Values))
	}
	for i := range a.Values {
		if a.Values[i] != b.Values[i] {
			t.Fatalf("field differs at %d: %d vs %d", i, a.Values[i], b.Values[i])
		}
	}
}

func TestGenerateSeedChangesField(t *testing.T) {
	a, _ := GenerateSeeded(32, 32, 3, -10, 10, 7)
	b, _ := GenerateSeeded(32, 32, 3, -10, 10, 8)
	same := true
	for i := range a.Values {
		if a.Values[i] != b.Values[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatalf("different seeds produced identical fields")
	}
}

func TestGenerateRange(t *testing.T) {
	f, err := GenerateSeeded(50, 40, 3, -12, 12, 11)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	sawLow := false
	for _, v := range f.Values {
		if v < -12 || v >= 12 {
			t.Fatalf("value %d outside [-12, 12)", v)
		}
		if v == -12 {
			sawLow = true
		}
	}
	if !sawLow {
		t.Fatalf("expected the inclusive lower bound to appear in 6000 samples")
	}
}

func TestGenerateRejectsBadInput(t *testing.T) {
	cases := []struct {
		w, h, c, lo, hi int
	}{
		{0, 10, 3, -1, 1},
		{10, -1, 3, -1, 1},
		{10, 10, 0, -1, 1},
		{10, 10, 3, 5, 5},
		{10, 10, 3, -40000, 0},
		{10, 10, 3, 0, 40000},
	}
	for _, tc := range cases {
		_, err := GenerateSeeded(tc.w, tc.h, tc.c, tc.lo, tc.hi, 1)
		if !errors.Is(err, errs.ErrInvalidDimension) {
			t.Fatalf("%+v: expected InvalidDimension, got %v", tc, err)
		}
	}
}

func TestGenerateAcceptsFullInt16Range(t *testing.T) {
	f, err := GenerateSeeded(4, 4, 1, -32768, 32768, 3)
	if err != nil {
		t.Fatalf("full int16 range must be accepted: %v", err)
	}
	if len(f.Values) != 16 {
		t.Fatalf("unexpected field size %d", len(f.Values))
	}
}

func TestApplyClampsInsteadOfWrapping(t *testing.T) {
	src := &fixedSource{values: []int{0, 39}}
	f, err := Generate(2, 1, 3, -20, 20, src)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	base := color.RGBA{R: 250, G: 5, B: 128, A: 255}
	img := Apply(base, f)
	for x := 0; x < 2; x++ {
		for c := 0; c < 3; c++ {
			b := []int{250, 5, 128}[c]
			want := Clamp(b + f.At(x, 0, c))
			got := img.Pix[img.PixOffset(x, 0)+c]
			if got != want {
				t.Fatalf("pixel %d channel %d: got %d want %d", x, c, got, want)
			}
		}
	}
	// 250 + 19 必须饱和到 255，5 - 20 必须饱和到 0
	if got := img.Pix[img.PixOffset(1, 0)]; got != 255 {
		t.Fatalf("expected saturation at 255, got %d", got)
	}
	if got := img.Pix[img.PixOffset(1, 0)+1]; got != 0 {
		t.Fatalf("expected saturation at 0, got %d", got)
	}
}

func TestClamp(t *testing.T) {
	for in, want := range map[int]uint8{-300: 0, -1: 0, 0: 0, 17: 17, 255: 255, 256: 255, 1000: 255} {
		if got := Clamp(in); got != want {
			t.Fatalf("Clamp(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestTextureDeterministicWithBlur(t *testing.T) {
	opts := TextureOptions{
		Width: 40, Height: 30,
		Base: color.RGBA{R: 238, G: 227, B: 203, A: 255},
		Low:  -12, High: 12, Seed: 7, BlurRadius: DefaultBlurRadius,
	}
	a, err := Texture(opts)
	if err != nil {
		t.Fatalf("texture: %v", err)
	}
	b, err := Texture(opts)
	if err != nil {
		t.Fatalf("texture: %v", err)
	}
	if a.Bounds().Dx() != 40 || a.Bounds().Dy() != 30 {
		t.Fatalf("unexpected bounds %v", a.Bounds())
	}
	if !bytes.Equal(a.Pix, b.Pix) {
		t.Fatalf("texture not reproducible")
	}
}

func TestTextureBlurSmoothsNoise(t *testing.T) {
	base := TextureOptions{
		Width: 40, Height: 40,
		Base: color.RGBA{R: 128, G: 128, B: 128, A: 255},
		Low:  -30, High: 30, Seed: 3,
	}
	raw, _ := Texture(base)
	base.BlurRadius = 0.8
	smooth, _ := Texture(base)
	if spread(smooth) >= spread(raw) {
		t.Fatalf("blur should reduce neighbour differences: raw=%d blurred=%d", spread(raw), spread(smooth))
	}
}

func spread(img interface{ RGBAAt(x, y int) color.RGBA }) int {
	total := 0
	for y := 0; y < 40; y++ {
		for x := 1; x < 40; x++ {
			d := int(img.RGBAAt(x, y).R) - int(img.RGBAAt(x-1, y).R)
			if d < 0 {
				d = -d
			}
			total += d
		}
	}
	return total
}

func TestPerturbClampsInPlace(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	copy(img.Pix, []uint8{250, 5, 100, 255, 0, 0, 0, 255})
	f := Field{Width: 2, Height: 1, Channels: 1, Values: []int16{10, -10}}
	if err := Perturb(img, f); err != nil {
		t.Fatalf("perturb: %v", err)
	}
	want := []uint8{255, 15, 110, 255, 0, 0, 0, 255}
	if !bytes.Equal(img.Pix, want) {
		t.Fatalf("got %v, want %v", img.Pix, want)
	}
	if err := Perturb(img, Field{Width: 3, Height: 1, Channels: 1, Values: make([]int16, 3)}); !errors.Is(err, errs.ErrInvalidDimension) {
		t.Fatalf("expected InvalidDimension, got %v", err)
	}
}

func TestNewRandMatchesSource(t *testing.T) {
	a, b := NewSource(3), NewRand(3)
	for i := 0; i < 8; i++ {
		if x, y := a.IntN(1000), b.IntN(1000); x != y {
			t.Fatalf("sequences diverge at %d: %d vs %d", i, x, y)
		}
	}
}
