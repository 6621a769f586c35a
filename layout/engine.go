package layout

import (
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/ByLCY/parchment/errs"
)

// Surface 是可以绘制单行文本的画布。(x, y) 为行的左上角。
type Surface interface {
	DrawText(x, y float64, text string, face Face, c color.Color) error
}

// Block 是一组逻辑段落：文本、字体、最大宽度、颜色与行距比例。
type Block struct {
	Text        string
	Face        Face
	MaxWidth    float64
	Color       color.Color
	LineSpacing float64
}

// Result 是一个 Block 排版后的结果。
type Result struct {
	Lines   []Line
	Columns int
	Advance int
	X       float64
	StartY  float64
	EndY    float64
	// Width 是最宽一行的实测像素宽度。
	Width float64
}

// Height 返回块占用的纵向高度。
func (r Result) Height() float64 { return r.EndY - r.StartY }

// Bounds 返回块的包围盒（向外取整），用于检查块之间不重叠。
func (r Result) Bounds() image.Rectangle {
	return image.Rect(
		int(math.Floor(r.X)), int(math.Floor(r.StartY)),
		int(math.Ceil(r.X+r.Width)), int(math.Ceil(r.EndY)),
	)
}

// Engine 在一次渲染内缓存每个字体的平均字宽，参考字母表每个字号只测量一次。
type Engine struct {
	avg map[Face]float64
}

// NewEngine creates an engine with an empty width cache.
func NewEngine() *Engine {
	return &Engine{avg: map[Face]float64{}}
}

// Columns 与包级 Columns 相同，但复用缓存的平均字宽。
func (e *Engine) Columns(face Face, maxWidthPx float64) (int, error) {
	if face == nil {
		return 0, errs.Errorf(errs.ResourceUnavailable, "layout.Columns", "缺少字体")
	}
	avg, ok := e.avg[face]
	if !ok {
		avg = AverageGlyphWidth(face)
		e.avg[face] = avg
	}
	return ColumnsFor(avg, maxWidthPx)
}

// Layout 计算块的折行与终点游标，不绘制。
func (e *Engine) Layout(b Block, x, y float64) (Result, error) {
	cols, err := e.Columns(b.Face, b.MaxWidth)
	if err != nil {
		return Result{}, err
	}
	lines := Wrap(b.Text, cols)
	adv := Advance(b.Face.PixelSize(), b.LineSpacing)
	var width float64
	for _, line := range lines {
		if !line.Blank {
			width = math.Max(width, b.Face.Measure(line.Text))
		}
	}
	return Result{
		Width:   width,
		Lines:   lines,
		Columns: cols,
		Advance: adv,
		X:       x,
		StartY:  y,
		EndY:    y + float64(adv*len(lines)),
	}, nil
}

// Draw 排版并逐行绘制，返回终点 y 供下一个块接续。
func (e *Engine) Draw(s Surface, b Block, x, y float64) (Result, error) {
	res, err := e.Layout(b, x, y)
	if err != nil {
		return Result{}, err
	}
	col := b.Color
	if col == nil {
		col = color.Black
	}
	cursor := y
	for _, line := range res.Lines {
		if !line.Blank {
			if err := s.DrawText(x, cursor, line.Text, b.Face, col); err != nil {
				return Result{}, err
			}
		}
		cursor += float64(res.Advance)
	}
	return res, nil
}

// WrapAndDraw 把 text 折行后从 (x, y) 起逐行绘制，返回终点 y。
func WrapAndDraw(s Surface, x, y float64, text string, face Face, maxWidthPx float64, c color.Color, lineSpacing float64) (float64, error) {
	res, err := NewEngine().Draw(s, Block{
		Text:        text,
		Face:        face,
		MaxWidth:    maxWidthPx,
		Color:       c,
		LineSpacing: lineSpacing,
	}, x, y)
	if err != nil {
		return y, err
	}
	return res.EndY, nil
}

// AlignX 返回宽度为 width 的内容相对锚点 anchor 的左边缘。
func AlignX(anchor, width float64, align string) float64 {
	switch strings.ToLower(align) {
	case "center", "middle":
		return anchor - width/2
	case "right", "end":
		return anchor - width
	default:
		return anchor
	}
}
