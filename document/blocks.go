package document

import (
	"image/color"

	"github.com/ByLCY/parchment/binding"
	"github.com/ByLCY/parchment/fonts"
	"github.com/ByLCY/parchment/layout"
)

// DefaultLineSpacing 是标签与段落的默认行距比例。
const DefaultLineSpacing = 0.2

var defaultInk = color.NRGBA{R: 25, G: 20, B: 15, A: 255}

// inkOr 把零值颜色替换为默认墨色。
func inkOr(c color.NRGBA) color.NRGBA {
	if c == (color.NRGBA{}) {
		return defaultInk
	}
	return c
}

func (e *Env) face(spec FontSpec) (*fonts.Handle, error) {
	return e.Fonts.Resolve(spec.Size, spec.Bold)
}

func (e *Env) text(s string) string {
	return binding.Interpolate(s, e.Data)
}

// LabelBlock 绘制单行文本，X 为对齐锚点。
type LabelBlock struct {
	Font    FontSpec
	X, Y    layout.Coord
	DX, DY  float64
	Align   string
	Color   color.NRGBA
	Spacing float64
	Text    string
}

func (b LabelBlock) Draw(env *Env, cursor float64) (float64, error) {
	face, err := env.face(b.Font)
	if err != nil {
		return cursor, err
	}
	text := env.text(b.Text)
	y := b.Y.Resolve(env.Height(), cursor) + b.DY
	anchor := b.X.Resolve(env.Width(), 0) + b.DX
	x := layout.AlignX(anchor, face.Measure(text), b.Align)
	if err := env.Canvas.DrawText(x, y, text, face, inkOr(b.Color)); err != nil {
		return cursor, err
	}
	return y + float64(layout.Advance(face.PixelSize(), b.Spacing)), nil
}

// ParagraphBlock 在 Width 宽的栏内折行绘制文本，返回终点游标。
type ParagraphBlock struct {
	Font    FontSpec
	X, Y    layout.Coord
	Width   layout.Coord
	Spacing float64
	Color   color.NRGBA
	Text    string
}

func (b ParagraphBlock) Draw(env *Env, cursor float64) (float64, error) {
	face, err := env.face(b.Font)
	if err != nil {
		return cursor, err
	}
	x := b.X.Resolve(env.Width(), 0)
	y := b.Y.Resolve(env.Height(), cursor)
	width := b.Width.Resolve(env.Width(), 0)
	if b.Width.Kind == layout.CoordRelative {
		width = b.Width.Value
	}
	if width == 0 {
		width = float64(env.Width()) - 2*x
	}
	res, err := env.Engine.Draw(env.Canvas, layout.Block{
		Text:        env.text(b.Text),
		Face:        face,
		MaxWidth:    width,
		Color:       inkOr(b.Color),
		LineSpacing: b.Spacing,
	}, x, y)
	if err != nil {
		return cursor, err
	}
	env.Logger.Debug("段落排版完成", "lines", len(res.Lines), "columns", res.Columns, "end", res.EndY)
	return res.EndY, nil
}

// RuleBlock 画一条直线，不移动游标。
type RuleBlock struct {
	X1, Y1, X2, Y2 layout.Coord
	Color          color.NRGBA
	Width          float64
}

func (b RuleBlock) Draw(env *Env, cursor float64) (float64, error) {
	w, h := env.Width(), env.Height()
	env.Canvas.DrawLine(
		b.X1.Resolve(w, 0), b.Y1.Resolve(h, cursor),
		b.X2.Resolve(w, 0), b.Y2.Resolve(h, cursor),
		inkOr(b.Color), b.Width,
	)
	return cursor, nil
}

// SpacerBlock 只把游标下移 Height 像素。
type SpacerBlock struct {
	Height float64
}

func (b SpacerBlock) Draw(_ *Env, cursor float64) (float64, error) {
	return cursor + b.Height, nil
}
