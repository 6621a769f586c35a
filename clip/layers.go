package clip

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"

	"github.com/ByLCY/parchment/noise"
	"github.com/ByLCY/parchment/surface"
)

// drawRuins 画出地平线（0.62H）上的建筑剪影。越高的楼离镜头越近，随镜头移动得越快。
func (s *Scene) drawRuins(c *surface.Canvas, cameraX float64) {
	w, h := c.Width(), c.Height()
	horizon := float64(int(float64(h) * 0.62))
	rng := noise.NewSource(s.opts.RuinSeed)
	between := func(lo, hi int) int { return lo + rng.IntN(hi-lo+1) }

	for i := 0; i < s.opts.Ruins; i++ {
		bw := between(40, 160)
		bh := between(80, 280)
		shift := int(cameraX * (0.3 + 0.7*float64(bh)/280))
		x := float64(floorMod(i*90-shift, w+200) - 100)
		y := horizon - float64(bh)
		col := color.RGBA{
			R: uint8(25 + between(0, 10)),
			G: uint8(25 + between(0, 10)),
			B: uint8(28 + between(0, 10)),
			A: 255,
		}
		c.FillRect(x, y, x+float64(bw), horizon, col)
		// 缺口
		for n := between(2, 6); n > 0; n-- {
			rx := x + float64(between(0, bw))
			ry := y + float64(between(0, bh))
			rw := float64(between(8, 22))
			rh := float64(between(8, 22))
			c.FillRect(rx, ry, rx+rw, ry+rh, rubble)
		}
	}
	c.FillRect(0, horizon, float64(w), float64(h), street)
}

// drawSnow 画出随时间向右下飘落的雪花；每七片中有一片更大更亮。
func (s *Scene) drawSnow(c *surface.Canvas, t float64) {
	w, h := float64(c.Width()), float64(c.Height())
	rng := noise.NewRand(s.opts.SnowSeed)
	for i := 0; i < s.opts.Snowflakes; i++ {
		sx := float64(int(math.Mod(rng.Float64()*(w+100)+t*60+float64(i*3), w+100)) - 50)
		sy := float64(int(math.Mod(rng.Float64()*(h+200)+t*120+float64(i*5), h+200)) - 100)
		r, alpha := 1.0, uint8(110)
		if i%7 == 0 {
			r, alpha = 2, 160
		}
		c.FillEllipse(sx, sy, r, r, color.NRGBA{R: 240, G: 240, B: 240, A: alpha})
	}
}

// addGrain 叠加 ±strength×255 的均匀颗粒并轻微模糊。
func (s *Scene) addGrain(c *surface.Canvas) error {
	amp := int(255 * s.opts.GrainStrength)
	if amp <= 0 {
		return nil
	}
	f, err := noise.GenerateSeeded(c.Width(), c.Height(), 3, -amp, amp, s.opts.GrainSeed)
	if err != nil {
		return err
	}
	if err := noise.Perturb(c.Image(), f); err != nil {
		return err
	}
	c.Blur(0.3)
	return nil
}

// Flicker 返回时间 t 的亮度系数 0.96 + 0.08·sin(2π·0.7·t)。
func Flicker(t float64) float64 {
	return 0.96 + 0.08*math.Sin(2*math.Pi*0.7*t)
}

// Grade 把图像转为带棕褐色调的单色，并乘以亮度系数 gain。
func Grade(img image.Image, gain float64) *image.RGBA {
	src := imaging.Clone(img)
	b := src.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for i := 0; i < len(src.Pix); i += 4 {
		gray := float64(src.Pix[i])*0.3 + float64(src.Pix[i+1])*0.59 + float64(src.Pix[i+2])*0.11
		out.Pix[i] = clampChannel(gray * 1.05 * gain)
		out.Pix[i+1] = clampChannel(gray * 0.95 * gain)
		out.Pix[i+2] = clampChannel(gray * 0.9 * gain)
		out.Pix[i+3] = 0xff
	}
	return out
}

func clampChannel(v float64) uint8 {
	return noise.Clamp(int(v))
}

func floorMod(a, m int) int {
	r := a % m
	if r < 0 {
		r += m
	}
	return r
}
