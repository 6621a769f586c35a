// Package noise 生成可复现的逐像素扰动场，并把它叠加到纯色底上形成纸张纹理。
//
// 同一 seed 与尺寸必须得到逐字节相同的结果，黄金图回归测试依赖这一点。
package noise

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"math/rand/v2"

	"github.com/disintegration/imaging"

	"github.com/ByLCY/parchment/errs"
)

// DefaultBlurRadius 对应纤维质感所需的轻微高斯模糊。
const DefaultBlurRadius = 0.7

// RandomSource 是噪声生成所需的随机数来源，测试中可替换为固定序列。
type RandomSource interface {
	// IntN 返回 [0, n) 内的均匀整数。
	IntN(n int) int
	// NormFloat64 返回标准正态分布的样本。
	NormFloat64() float64
}

// NewSource 返回以 seed 初始化的 PCG 随机源，跨平台输出一致。
func NewSource(seed uint64) RandomSource {
	return NewRand(seed)
}

// NewRand 返回与 NewSource 相同序列的 *rand.Rand，供需要浮点均匀分布的调用方使用。
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Field 是按 (y, x, c) 行优先存放的整数扰动。
type Field struct {
	Width    int
	Height   int
	Channels int
	Values   []int16
}

// At 返回 (x, y) 处第 c 个通道的扰动。
func (f Field) At(x, y, c int) int {
	return int(f.Values[(y*f.Width+x)*f.Channels+c])
}

// Generate 生成取值在 [low, high) 的扰动场。
func Generate(width, height, channels, low, high int, src RandomSource) (Field, error) {
	if width <= 0 || height <= 0 || channels <= 0 {
		return Field{}, errs.Errorf(errs.InvalidDimension, "noise.Generate", "尺寸必须为正: %dx%dx%d", width, height, channels)
	}
	if low >= high {
		return Field{}, errs.Errorf(errs.InvalidDimension, "noise.Generate", "区间无效: low=%d high=%d", low, high)
	}
	if low < math.MinInt16 || high-1 > math.MaxInt16 {
		return Field{}, errs.Errorf(errs.InvalidDimension, "noise.Generate", "区间超出 int16 范围: low=%d high=%d", low, high)
	}
	if src == nil {
		src = NewSource(0)
	}
	span := high - low
	values := make([]int16, width*height*channels)
	for i := range values {
		values[i] = int16(low + src.IntN(span))
	}
	return Field{Width: width, Height: height, Channels: channels, Values: values}, nil
}

// GenerateSeeded 等价于 Generate(..., NewSource(seed))。
func GenerateSeeded(width, height, channels, low, high int, seed uint64) (Field, error) {
	return Generate(width, height, channels, low, high, NewSource(seed))
}

// Apply 把扰动叠加到纯色底上并做饱和截断（不回绕）。
// 扰动场的前三个通道分别作用于 R、G、B；单通道场三个通道共用。
func Apply(base color.RGBA, f Field) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	channels := [3]int{int(base.R), int(base.G), int(base.B)}
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			off := img.PixOffset(x, y)
			for c := 0; c < 3; c++ {
				fc := c
				if fc >= f.Channels {
					fc = f.Channels - 1
				}
				img.Pix[off+c] = Clamp(channels[c] + f.At(x, y, fc))
			}
			img.Pix[off+3] = 0xff
		}
	}
	return img
}

// Perturb 把扰动场原地叠加到 img 的 RGB 通道上，尺寸必须一致。
func Perturb(img *image.RGBA, f Field) error {
	b := img.Bounds()
	if b.Dx() != f.Width || b.Dy() != f.Height {
		return errs.Errorf(errs.InvalidDimension, "noise.Perturb", "扰动场 %dx%d 与图像 %dx%d 不一致", f.Width, f.Height, b.Dx(), b.Dy())
	}
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			off := img.PixOffset(b.Min.X+x, b.Min.Y+y)
			for c := 0; c < 3; c++ {
				fc := min(c, f.Channels-1)
				img.Pix[off+c] = Clamp(int(img.Pix[off+c]) + f.At(x, y, fc))
			}
		}
	}
	return nil
}

// Clamp 把通道值饱和到 [0, 255]。
func Clamp(v int) uint8 {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	default:
		return uint8(v)
	}
}

// TextureOptions 描述一张羊皮纸底纹。
type TextureOptions struct {
	Width      int
	Height     int
	Base       color.RGBA
	Low        int
	High       int
	Seed       uint64
	BlurRadius float64 // 0 表示不模糊
	Source     RandomSource
}

// Texture 依次执行：生成扰动、叠加到底色、轻微模糊。
func Texture(opts TextureOptions) (*image.RGBA, error) {
	src := opts.Source
	if src == nil {
		src = NewSource(opts.Seed)
	}
	field, err := Generate(opts.Width, opts.Height, 3, opts.Low, opts.High, src)
	if err != nil {
		return nil, err
	}
	img := Apply(opts.Base, field)
	if opts.BlurRadius > 0 {
		img = toRGBA(imaging.Blur(img, opts.BlurRadius))
	}
	return img, nil
}

func toRGBA(src image.Image) *image.RGBA {
	if rgba, ok := src.(*image.RGBA); ok {
		return rgba
	}
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}
