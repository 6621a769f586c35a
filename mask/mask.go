// Package mask 构建灰度软遮罩（暗角、折痕、污渍）并通过遮罩做线性混合。
package mask

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"

	"github.com/ByLCY/parchment/errs"
)

// Mask 是单通道混合权重，0 表示完全取背景，255 表示完全取前景。
type Mask struct {
	width  int
	height int
	data   []uint8
}

// New 创建全 0 的遮罩。
func New(width, height int) *Mask {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Mask{width: width, height: height, data: make([]uint8, width*height)}
}

// Bounds returns the mask dimensions as an image.Rectangle.
func (m *Mask) Bounds() image.Rectangle { return image.Rect(0, 0, m.width, m.height) }

// Width returns the mask width.
func (m *Mask) Width() int { return m.width }

// Height returns the mask height.
func (m *Mask) Height() int { return m.height }

// At returns the value at (x, y), 0 outside the mask.
func (m *Mask) At(x, y int) uint8 {
	if x < 0 || x >= m.width || y < 0 || y >= m.height {
		return 0
	}
	return m.data[y*m.width+x]
}

// Set ignores coordinates outside the mask.
func (m *Mask) Set(x, y int, v uint8) {
	if x < 0 || x >= m.width || y < 0 || y >= m.height {
		return
	}
	m.data[y*m.width+x] = v
}

// Fill sets every value.
func (m *Mask) Fill(v uint8) {
	for i := range m.data {
		m.data[i] = v
	}
}

// FillRect 以闭区间 [x0,x1]×[y0,y1] 填充，超出部分裁掉。
func (m *Mask) FillRect(x0, y0, x1, y1 int, v uint8) {
	x0, x1 = max(x0, 0), min(x1, m.width-1)
	y0, y1 = max(y0, 0), min(y1, m.height-1)
	for y := y0; y <= y1; y++ {
		row := m.data[y*m.width : (y+1)*m.width]
		for x := x0; x <= x1; x++ {
			row[x] = v
		}
	}
}

// FillEllipse 填充外接矩形 r 内的椭圆。
func (m *Mask) FillEllipse(r image.Rectangle, v uint8) {
	if r.Empty() {
		return
	}
	cx := float64(r.Min.X+r.Max.X) / 2
	cy := float64(r.Min.Y+r.Max.Y) / 2
	rx := float64(r.Dx()) / 2
	ry := float64(r.Dy()) / 2
	for y := r.Min.Y; y <= r.Max.Y; y++ {
		dy := (float64(y) - cy) / ry
		for x := r.Min.X; x <= r.Max.X; x++ {
			dx := (float64(x) - cx) / rx
			if dx*dx+dy*dy <= 1 {
				m.Set(x, y, v)
			}
		}
	}
}

// Invert replaces every value v by 255-v.
func (m *Mask) Invert() {
	for i := range m.data {
		m.data[i] = 255 - m.data[i]
	}
}

// Clone creates a copy of the mask.
func (m *Mask) Clone() *Mask {
	c := New(m.width, m.height)
	copy(c.data, m.data)
	return c
}

// Gray 把遮罩转成 *image.Gray，便于交给图像库处理。
func (m *Mask) Gray() *image.Gray {
	g := image.NewGray(m.Bounds())
	copy(g.Pix, m.data)
	return g
}

// FromGray 从灰度图构建遮罩。
func FromGray(g *image.Gray) *Mask {
	b := g.Bounds()
	m := New(b.Dx(), b.Dy())
	for y := 0; y < m.height; y++ {
		copy(m.data[y*m.width:(y+1)*m.width], g.Pix[g.PixOffset(b.Min.X, b.Min.Y+y):])
	}
	return m
}

// Blur 返回高斯模糊后的新遮罩，radius 为标准差；radius<=0 时返回副本。
func Blur(m *Mask, radius float64) *Mask {
	if radius <= 0 || m.width == 0 || m.height == 0 {
		return m.Clone()
	}
	blurred := imaging.Blur(m.Gray(), radius)
	out := New(m.width, m.height)
	for y := 0; y < m.height; y++ {
		for x := 0; x < m.width; x++ {
			out.data[y*m.width+x] = blurred.Pix[blurred.PixOffset(x, y)]
		}
	}
	return out
}

// MarginFor 返回 marginFraction × min(width, height) 取整后的边距。
func MarginFor(width, height int, marginFraction float64) int {
	return int(float64(min(width, height)) * marginFraction)
}

// Vignette 构建暗角遮罩：内缩 margin 的不透明矩形，再按 margin×featherRatio 模糊，
// 最终不存在硬边。
func Vignette(width, height int, marginFraction, featherRatio float64) (*Mask, error) {
	if width <= 0 || height <= 0 {
		return nil, errs.Errorf(errs.InvalidDimension, "mask.Vignette", "尺寸必须为正: %dx%d", width, height)
	}
	margin := MarginFor(width, height, marginFraction)
	m := New(width, height)
	m.FillRect(margin, margin, width-margin, height-margin, 255)
	return Blur(m, float64(margin)*featherRatio), nil
}

// Band 构建线状遮罩：仅在每个 y 处、x0..x1 范围内 thickness 像素高的线上不透明，
// feather>0 时再做模糊。
func Band(width, height int, ys []int, thickness int, feather float64, x0, x1 int) (*Mask, error) {
	if width <= 0 || height <= 0 {
		return nil, errs.Errorf(errs.InvalidDimension, "mask.Band", "尺寸必须为正: %dx%d", width, height)
	}
	if thickness < 1 {
		thickness = 1
	}
	m := New(width, height)
	for _, y := range ys {
		top := y - thickness/2
		m.FillRect(x0, top, x1, top+thickness-1, 255)
	}
	if feather > 0 {
		m = Blur(m, feather)
	}
	return m, nil
}

// Ellipses 构建由若干椭圆组成的污渍遮罩。
func Ellipses(width, height int, rects []image.Rectangle) (*Mask, error) {
	if width <= 0 || height <= 0 {
		return nil, errs.Errorf(errs.InvalidDimension, "mask.Ellipses", "尺寸必须为正: %dx%d", width, height)
	}
	m := New(width, height)
	for _, r := range rects {
		m.FillEllipse(r, 255)
	}
	return m, nil
}

// Composite 逐像素逐通道做线性混合：
//
//	result = base × (m/255) + overlay × (1 − m/255)
//
// 不做 gamma 校正；结果四舍五入到 8 位，避免多次合成后出现色带。
func Composite(base image.Image, overlay color.Color, m *Mask) (*image.RGBA, error) {
	b := base.Bounds()
	if m == nil || b.Dx() != m.width || b.Dy() != m.height {
		return nil, errs.Errorf(errs.InvalidDimension, "mask.Composite", "遮罩尺寸与画布不一致: canvas=%dx%d", b.Dx(), b.Dy())
	}
	oc := color.RGBAModel.Convert(overlay).(color.RGBA)
	ov := [3]int{int(oc.R), int(oc.G), int(oc.B)}

	src := toRGBA(base)
	out := image.NewRGBA(image.Rect(0, 0, m.width, m.height))
	for y := 0; y < m.height; y++ {
		for x := 0; x < m.width; x++ {
			w := int(m.data[y*m.width+x])
			si := src.PixOffset(b.Min.X+x, b.Min.Y+y)
			di := out.PixOffset(x, y)
			for c := 0; c < 3; c++ {
				out.Pix[di+c] = blend(int(src.Pix[si+c]), ov[c], w)
			}
			out.Pix[di+3] = src.Pix[si+3]
		}
	}
	return out, nil
}

// Tint 以 m×c.A/255 为权重把颜色 c 混入 base，用于半透明的折痕和污渍。
func Tint(base image.Image, c color.NRGBA, m *Mask) (*image.RGBA, error) {
	if m == nil {
		return nil, errs.Errorf(errs.InvalidDimension, "mask.Tint", "遮罩为空")
	}
	weights := New(m.width, m.height)
	a := int(c.A)
	for i, v := range m.data {
		weights.data[i] = uint8((int(v)*a + 127) / 255)
	}
	weights.Invert()
	return Composite(base, color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff}, weights)
}

// blend 计算 (b×w + o×(255−w)) / 255 并四舍五入。
func blend(b, o, w int) uint8 {
	return uint8((b*w + o*(255-w) + 127) / 255)
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	out := image.NewRGBA(b)
	draw.Draw(out, b, img, b.Min, draw.Src)
	return out
}
