// Package clip 逐帧合成黄昏废墟短片：渐变天空、烟雾、视差剪影、落雪、
// 胶片颗粒与带闪烁的棕褐调色，镜头缓慢右移。
package clip

import (
	"image"
	"image/color"
	"image/draw"
	"log/slog"
	"math"
	"time"

	"github.com/disintegration/imaging"
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"

	"github.com/ByLCY/parchment/errs"
	"github.com/ByLCY/parchment/internal/logging"
	"github.com/ByLCY/parchment/mask"
	"github.com/ByLCY/parchment/noise"
	"github.com/ByLCY/parchment/surface"
)

// Options 描述短片参数。
type Options struct {
	Width    int
	Height   int
	FPS      int
	Duration time.Duration
	// PanPx 是整段镜头向右平移的像素数。
	PanPx float64
	// Ease 控制镜头速度曲线，nil 表示匀速。
	Ease ease.TweenFunc

	SmokeSeed     uint64
	RuinSeed      uint64
	SnowSeed      uint64
	GrainSeed     uint64
	GrainStrength float64
	Snowflakes    int
	Ruins         int

	Logger *slog.Logger
}

// DefaultOptions 对应 1280×720、24 fps、12 秒的成片。
func DefaultOptions() Options {
	return Options{
		Width:         1280,
		Height:        720,
		FPS:           24,
		Duration:      12 * time.Second,
		PanPx:         120,
		Ease:          ease.Linear,
		SmokeSeed:     42,
		RuinSeed:      7,
		SnowSeed:      99,
		GrainSeed:     5,
		GrainStrength: 0.07,
		Snowflakes:    800,
		Ruins:         26,
	}
}

var (
	skyTop    = [3]float64{40, 40, 45}
	skyBottom = [3]float64{95, 90, 85}
	smokeTint = color.NRGBA{R: 80, G: 75, B: 70, A: 255}
	rubble    = color.RGBA{R: 15, G: 15, B: 18, A: 255}
	street    = color.RGBA{R: 20, G: 20, B: 22, A: 255}
)

// Scene 生成各帧。背景只构建一次；每帧的剪影与雪花用固定种子重新生成，帧之间互不依赖。
type Scene struct {
	opts       Options
	background *image.RGBA
	pan        *gween.Tween
	logger     *slog.Logger
}

// NewScene 校验参数并预先构建背景。
func NewScene(opts Options) (*Scene, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, errs.Errorf(errs.InvalidDimension, "clip.NewScene", "画面尺寸必须为正: %dx%d", opts.Width, opts.Height)
	}
	if opts.FPS <= 0 || opts.Duration <= 0 {
		return nil, errs.Errorf(errs.InvalidDimension, "clip.NewScene", "帧率与时长必须为正: fps=%d duration=%s", opts.FPS, opts.Duration)
	}
	fn := opts.Ease
	if fn == nil {
		fn = ease.Linear
	}
	s := &Scene{
		opts:   opts,
		pan:    gween.New(0, float32(opts.PanPx), float32(opts.Duration.Seconds()), fn),
		logger: logging.Or(opts.Logger),
	}
	bg, err := s.buildBackground()
	if err != nil {
		return nil, err
	}
	s.background = bg
	return s, nil
}

// Frames 返回帧数 round(fps × 秒数)。
func (s *Scene) Frames() int {
	return int(math.Round(float64(s.opts.FPS) * s.opts.Duration.Seconds()))
}

// FrameTime 返回第 i 帧的时间（秒）。
func (s *Scene) FrameTime(i int) float64 {
	return float64(i) / float64(s.opts.FPS)
}

// CameraX 返回时间 t 的镜头水平偏移。
func (s *Scene) CameraX(t float64) float64 {
	x, _ := s.pan.Set(float32(t))
	return float64(x)
}

// Frame 合成第 i 帧。
func (s *Scene) Frame(i int) (*image.RGBA, error) {
	if i < 0 || i >= s.Frames() {
		return nil, errs.Errorf(errs.InvalidDimension, "clip.Frame", "帧序号越界: %d", i)
	}
	return s.Render(s.FrameTime(i))
}

// Render 合成时间 t 的画面。
func (s *Scene) Render(t float64) (*image.RGBA, error) {
	img := image.NewRGBA(s.background.Rect)
	draw.Draw(img, img.Bounds(), s.background, image.Point{}, draw.Src)
	c := surface.FromImage(img)

	s.drawRuins(c, s.CameraX(t))
	s.drawSnow(c, t)
	if err := s.addGrain(c); err != nil {
		return nil, err
	}
	return Grade(c.Image(), Flicker(t)), nil
}

// buildBackground 画出自上而下的黄昏渐变，再以模糊后的正态噪声为权重混入烟雾色。
func (s *Scene) buildBackground() (*image.RGBA, error) {
	w, h := s.opts.Width, s.opts.Height
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		t := float64(y) / float64(max(h-1, 1))
		var px [4]uint8
		for c := 0; c < 3; c++ {
			px[c] = uint8(skyTop[c]*(1-t) + skyBottom[c]*t)
		}
		px[3] = 0xff
		for x := 0; x < w; x++ {
			copy(img.Pix[img.PixOffset(x, y):], px[:])
		}
	}

	smoke := smokeField(max(w/4, 1), max(h/4, 1), s.opts.SmokeSeed)
	resized := imaging.Resize(smoke, w, h, imaging.Linear)
	gray := image.NewGray(resized.Bounds())
	draw.Draw(gray, gray.Bounds(), resized, image.Point{}, draw.Src)
	return mask.Tint(img, smokeTint, mask.Blur(mask.FromGray(gray), 3))
}

// smokeField 生成 σ=18 的正态噪声，线性拉伸到 0..255。
func smokeField(w, h int, seed uint64) *image.Gray {
	src := noise.NewSource(seed)
	values := make([]float64, w*h)
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := range values {
		v := src.NormFloat64() * 18
		values[i] = v
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	g := image.NewGray(image.Rect(0, 0, w, h))
	span := hi - lo + 1e-6
	for i, v := range values {
		g.Pix[i] = uint8((v - lo) / span * 255)
	}
	return g
}
