package document

import (
	"image"
	"image/color"

	"github.com/ByLCY/parchment/errs"
	"github.com/ByLCY/parchment/layout"
	"github.com/ByLCY/parchment/mask"
)

// DefaultMargin 是暗角、折痕和污渍共用的边距比例。
const DefaultMargin = 0.025

// VignetteOverlay 让纸张边缘向 Edge 颜色柔和过渡。
type VignetteOverlay struct {
	Margin   float64
	Feather  float64
	Edge     color.NRGBA
	Required bool
}

func (o VignetteOverlay) Name() string   { return "vignette" }
func (o VignetteOverlay) Optional() bool { return !o.Required }

func (o VignetteOverlay) Apply(env *Env) error {
	m, err := mask.Vignette(env.Width(), env.Height(), o.Margin, o.Feather)
	if err != nil {
		return err
	}
	return env.Canvas.Composite(o.Edge, m)
}

// FoldOverlay 在给定高度画一道半透明的折痕。
type FoldOverlay struct {
	Y        layout.Coord
	Color    color.NRGBA
	Width    int
	Feather  float64
	Margin   float64
	Required bool
}

func (o FoldOverlay) Name() string   { return "fold" }
func (o FoldOverlay) Optional() bool { return !o.Required }

func (o FoldOverlay) Apply(env *Env) error {
	w, h := env.Width(), env.Height()
	y := int(o.Y.Resolve(h, 0))
	if y < 0 || y >= h {
		return errs.Errorf(errs.InvalidDimension, "document.fold", "折痕位置 %d 超出页面高度 %d", y, h)
	}
	margin := mask.MarginFor(w, h, o.Margin)
	m, err := mask.Band(w, h, []int{y}, o.Width, o.Feather, margin, w-margin)
	if err != nil {
		return err
	}
	return env.Canvas.Tint(o.Color, m)
}

// StainsOverlay 沿左边距每隔 Every 放一块小椭圆污渍。
type StainsOverlay struct {
	Margin   float64
	Every    layout.Coord
	W, H     int
	Color    color.NRGBA
	Required bool
}

func (o StainsOverlay) Name() string   { return "stains" }
func (o StainsOverlay) Optional() bool { return !o.Required }

func (o StainsOverlay) Apply(env *Env) error {
	w, h := env.Width(), env.Height()
	step := int(o.Every.Resolve(h, 0))
	if step < 1 {
		return errs.Errorf(errs.InvalidDimension, "document.stains", "污渍间距必须 >= 1px: %d", step)
	}
	margin := mask.MarginFor(w, h, o.Margin)
	var rects []image.Rectangle
	for y := margin; y < h-margin; y += step {
		rects = append(rects, image.Rect(margin, y, margin+o.W, y+o.H))
	}
	m, err := mask.Ellipses(w, h, rects)
	if err != nil {
		return err
	}
	return env.Canvas.Tint(o.Color, m)
}

// FrameOverlay 描一个矩形书写框。
type FrameOverlay struct {
	X1, Y1, X2, Y2 layout.Coord
	Color          color.NRGBA
	Width          float64
	Required       bool
}

func (o FrameOverlay) Name() string   { return "frame" }
func (o FrameOverlay) Optional() bool { return !o.Required }

func (o FrameOverlay) Apply(env *Env) error {
	if o.Width <= 0 {
		return errs.Errorf(errs.InvalidDimension, "document.frame", "线宽必须为正: %g", o.Width)
	}
	w, h := env.Width(), env.Height()
	env.Canvas.DrawRect(
		o.X1.Resolve(w, 0), o.Y1.Resolve(h, 0),
		o.X2.Resolve(w, 0), o.Y2.Resolve(h, 0),
		inkOr(o.Color), o.Width,
	)
	return nil
}

// LinesOverlay 在 [Y1+Start, Y2-Stop) 内每隔 Every 像素画一条书写辅助线，左右各缩进 Inset。
type LinesOverlay struct {
	X1, X2, Y1, Y2 layout.Coord
	Start, Stop    layout.Coord
	Every          int
	Inset          float64
	Color          color.NRGBA
	Width          float64
	Required       bool
}

func (o LinesOverlay) Name() string   { return "lines" }
func (o LinesOverlay) Optional() bool { return !o.Required }

func (o LinesOverlay) Apply(env *Env) error {
	if o.Every < 1 {
		return errs.Errorf(errs.InvalidDimension, "document.lines", "行距必须 >= 1px: %d", o.Every)
	}
	w, h := env.Width(), env.Height()
	x1 := o.X1.Resolve(w, 0) + o.Inset
	x2 := o.X2.Resolve(w, 0) - o.Inset
	y := o.Y1.Resolve(h, 0) + o.Start.Resolve(h, 0)
	end := o.Y2.Resolve(h, 0) - o.Stop.Resolve(h, 0)
	for ; y < end; y += float64(o.Every) {
		env.Canvas.DrawLine(x1, y, x2, y, inkOr(o.Color), o.Width)
	}
	return nil
}
