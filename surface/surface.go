// Package surface 提供以左上角为原点、1 单位 = 1 像素的位图画布。
// 线、矩形、椭圆与文本经 tdewolff/canvas 的光栅器绘制，模糊与贴图交给 imaging。
package surface

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"

	"github.com/ByLCY/parchment/errs"
	"github.com/ByLCY/parchment/layout"
	"github.com/ByLCY/parchment/mask"
)

// Canvas 是一次渲染独占的可变位图。
type Canvas struct {
	img *image.RGBA
	ctx *canvas.Context
}

var _ layout.Surface = (*Canvas)(nil)

// TextFace 是能提供画布字体面的字体句柄（fonts.Handle 实现了它）。
type TextFace interface {
	layout.Face
	Face(col color.Color) *canvas.FontFace
	Ascent() float64
}

// New 创建 width×height、以 bg 填满的画布。
func New(width, height int, bg color.Color) (*Canvas, error) {
	if width <= 0 || height <= 0 {
		return nil, errs.Errorf(errs.InvalidDimension, "surface.New", "画布尺寸必须为正: %dx%d", width, height)
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	if bg == nil {
		bg = color.White
	}
	draw.Draw(img, img.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	return FromImage(img), nil
}

// FromImage 在已有图像上绘制；原点不在 (0,0) 的图像会被复制一份。
func FromImage(img *image.RGBA) *Canvas {
	if img.Rect.Min != (image.Point{}) {
		shifted := image.NewRGBA(image.Rect(0, 0, img.Rect.Dx(), img.Rect.Dy()))
		draw.Draw(shifted, shifted.Bounds(), img, img.Rect.Min, draw.Src)
		img = shifted
	}
	c := &Canvas{img: img}
	c.bind()
	return c
}

func (c *Canvas) bind() {
	ras := rasterizer.FromImage(c.img, canvas.DPMM(1.0), canvas.LinearColorSpace{})
	ctx := canvas.NewContext(ras)
	ctx.SetCoordSystem(canvas.CartesianIV) // 与页面坐标一致，左上角为原点
	c.ctx = ctx
}

// Image 返回底层图像。
func (c *Canvas) Image() *image.RGBA { return c.img }

// Bounds returns the pixel rectangle of the canvas.
func (c *Canvas) Bounds() image.Rectangle { return c.img.Bounds() }

// Width returns the canvas width in pixels.
func (c *Canvas) Width() int { return c.img.Rect.Dx() }

// Height returns the canvas height in pixels.
func (c *Canvas) Height() int { return c.img.Rect.Dy() }

// DrawLine 以 width 像素粗细描一条直线。
func (c *Canvas) DrawLine(x0, y0, x1, y1 float64, col color.Color, width float64) {
	if width <= 0 {
		width = 1
	}
	p := &canvas.Path{}
	p.MoveTo(0, 0)
	p.LineTo(x1-x0, y1-y0)
	c.ctx.SetFillColor(canvas.Transparent)
	c.ctx.SetStrokeColor(col)
	c.ctx.SetStrokeWidth(width)
	c.ctx.DrawPath(x0, y0, p)
}

// DrawRect 描矩形边框，(x0,y0)-(x1,y1) 为对角。
func (c *Canvas) DrawRect(x0, y0, x1, y1 float64, col color.Color, width float64) {
	if width <= 0 {
		width = 1
	}
	x0, y0, x1, y1 = ordered(x0, y0, x1, y1)
	c.ctx.SetFillColor(canvas.Transparent)
	c.ctx.SetStrokeColor(col)
	c.ctx.SetStrokeWidth(width)
	c.ctx.DrawPath(x0, y0, canvas.Rectangle(x1-x0, y1-y0))
}

// FillRect 填充矩形，不描边。
func (c *Canvas) FillRect(x0, y0, x1, y1 float64, col color.Color) {
	x0, y0, x1, y1 = ordered(x0, y0, x1, y1)
	c.ctx.SetFillColor(col)
	c.ctx.SetStrokeColor(canvas.Transparent)
	c.ctx.DrawPath(x0, y0, canvas.Rectangle(x1-x0, y1-y0))
}

// FillEllipse 以 (cx, cy) 为中心填充半径 rx、ry 的椭圆。
func (c *Canvas) FillEllipse(cx, cy, rx, ry float64, col color.Color) {
	c.ctx.SetFillColor(col)
	c.ctx.SetStrokeColor(canvas.Transparent)
	c.ctx.DrawPath(cx, cy, canvas.Ellipse(rx, ry))
}

// FillPolygon 填充由 pts 围成的多边形。
func (c *Canvas) FillPolygon(pts []image.Point, col color.Color) {
	if len(pts) < 3 {
		return
	}
	p := &canvas.Path{}
	p.MoveTo(float64(pts[0].X), float64(pts[0].Y))
	for _, pt := range pts[1:] {
		p.LineTo(float64(pt.X), float64(pt.Y))
	}
	p.Close()
	c.ctx.SetFillColor(col)
	c.ctx.SetStrokeColor(canvas.Transparent)
	c.ctx.DrawPath(0, 0, p)
}

// DrawText 实现 layout.Surface：(x, y) 为行顶，基线落在 y + Ascent。
func (c *Canvas) DrawText(x, y float64, text string, face layout.Face, col color.Color) error {
	if text == "" {
		return nil
	}
	tf, ok := face.(TextFace)
	if !ok {
		return errs.Errorf(errs.ResourceUnavailable, "surface.DrawText", "字体 %T 无法用于绘制", face)
	}
	if col == nil {
		col = color.Black
	}
	ff := tf.Face(col)
	c.ctx.DrawText(x, y+tf.Ascent(), canvas.NewTextLine(ff, text, canvas.Left))
	return nil
}

// DrawTextAligned 以 anchor 为对齐锚点绘制单行文本，返回文本左边缘。
func (c *Canvas) DrawTextAligned(anchor, y float64, text string, face TextFace, col color.Color, align string) (float64, error) {
	x := layout.AlignX(anchor, face.Measure(text), align)
	return x, c.DrawText(x, y, text, face, col)
}

// Blur 对整张画布做高斯模糊，sigma <= 0 时不处理。
func (c *Canvas) Blur(sigma float64) {
	if sigma <= 0 {
		return
	}
	c.replace(imaging.Blur(c.img, sigma))
}

// Paste 把 img 原样贴到 at 处，覆盖目标像素。
func (c *Canvas) Paste(img image.Image, at image.Point) {
	c.replace(imaging.Paste(c.img, img, at))
}

// AlphaComposite 以 opacity（0..1）把 img 叠加到 at 处，尊重 img 自身的 alpha。
func (c *Canvas) AlphaComposite(img image.Image, at image.Point, opacity float64) {
	if opacity <= 0 {
		return
	}
	if opacity > 1 {
		opacity = 1
	}
	c.replace(imaging.Overlay(c.img, img, at, opacity))
}

// Composite 用软蒙版把纯色 overlay 合成到画布上（蒙版 255 处保留画布）。
func (c *Canvas) Composite(overlay color.Color, m *mask.Mask) error {
	out, err := mask.Composite(c.img, overlay, m)
	if err != nil {
		return err
	}
	c.replace(out)
	return nil
}

// Tint 以蒙版为权重把带 alpha 的颜色叠到画布上。
func (c *Canvas) Tint(col color.NRGBA, m *mask.Mask) error {
	out, err := mask.Tint(c.img, col, m)
	if err != nil {
		return err
	}
	c.replace(out)
	return nil
}

// Clone 复制画布，用于在继续绘制前保存快照。
func (c *Canvas) Clone() *Canvas {
	img := image.NewRGBA(c.img.Rect)
	draw.Draw(img, img.Bounds(), c.img, c.img.Rect.Min, draw.Src)
	return FromImage(img)
}

// replace 把新图像写回原缓冲区，光栅器继续指向同一块内存。
func (c *Canvas) replace(src image.Image) {
	draw.Draw(c.img, c.img.Bounds(), src, src.Bounds().Min, draw.Src)
}

func ordered(x0, y0, x1, y1 float64) (float64, float64, float64, float64) {
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	return x0, y0, x1, y1
}
