package basemap

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/ByLCY/parchment/geo"
	"github.com/ByLCY/parchment/surface"
)

// drawNorthArrow 在地图左下角画一支指向上方的箭头，箭头上方标 "N"。
func drawNorthArrow(c *surface.Canvas, r image.Rectangle, face surface.TextFace, dpi float64) error {
	w, h := float64(r.Dx()), float64(r.Dy())
	x := float64(r.Min.X) + 0.05*w
	tail := float64(r.Min.Y) + h*(1-0.08)
	tip := float64(r.Min.Y) + h*(1-0.13)
	head := math.Max(4, 12*dpi/72)
	c.DrawLine(x, tail, x, tip+head, color.Black, math.Max(1, 4*dpi/72))
	c.FillPolygon([]image.Point{
		{X: int(math.Round(x)), Y: int(math.Round(tip))},
		{X: int(math.Round(x - head/2)), Y: int(math.Round(tip + head))},
		{X: int(math.Round(x + head/2)), Y: int(math.Round(tip + head))},
	}, color.Black)
	ascent := face.Ascent()
	_, err := c.DrawTextAligned(x, tip-ascent*1.2, "N", face, color.Black, "center")
	return err
}

// drawScaleBar 在地图右下角画比例尺，长度取 1、2、5×10^n 中最接近地图宽度五分之一的值。
func drawScaleBar(c *surface.Canvas, r image.Rectangle, e geo.Extent, face surface.TextFace, dpi float64) error {
	lengthM := geo.ScaleLength(e.Width())
	if lengthM <= 0 {
		return nil
	}
	w, h := float64(r.Dx()), float64(r.Dy())
	lengthPx := lengthM / (e.Width() / w)
	margin := 0.02 * w
	x0 := math.Min(float64(r.Min.X)+0.82*w, float64(r.Max.X)-margin-lengthPx)
	y := float64(r.Min.Y) + h*(1-0.05)
	stroke := math.Max(1, 3*dpi/72)
	tick := 2 * stroke

	c.DrawLine(x0, y, x0+lengthPx, y, color.Black, stroke)
	c.DrawLine(x0, y-tick, x0, y+tick, color.Black, stroke)
	c.DrawLine(x0+lengthPx, y-tick, x0+lengthPx, y+tick, color.Black, stroke)
	ty := y - tick - face.Ascent()*1.2
	_, err := c.DrawTextAligned(x0+lengthPx/2, ty, ScaleLabel(lengthM), face, color.Black, "center")
	return err
}

// ScaleLabel 格式化比例尺长度；不足 1 km 时以米表示。
func ScaleLabel(lengthM float64) string {
	if lengthM < 1000 {
		return fmt.Sprintf("%d m", int(lengthM))
	}
	return fmt.Sprintf("%d km", int(lengthM/1000))
}
