package clip

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"math"
	"path/filepath"

	"github.com/ByLCY/parchment/errs"
	"github.com/ByLCY/parchment/renderer"
)

// EncodeGIF 把全部帧编码为循环播放的动画 GIF，使用固定的 Plan9 调色板并做误差扩散。
func (s *Scene) EncodeGIF(ctx context.Context) ([]byte, error) {
	n := s.Frames()
	delay := max(1, int(math.Round(100/float64(s.opts.FPS))))
	anim := &gif.GIF{
		Image: make([]*image.Paletted, 0, n),
		Delay: make([]int, 0, n),
	}
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		frame, err := s.Frame(i)
		if err != nil {
			return nil, err
		}
		p := image.NewPaletted(frame.Bounds(), palette.Plan9)
		draw.FloydSteinberg.Draw(p, p.Bounds(), frame, image.Point{})
		anim.Image = append(anim.Image, p)
		anim.Delay = append(anim.Delay, delay)
		if (i+1)%s.opts.FPS == 0 {
			s.logger.Debug("帧进度", "frame", i+1, "total", n)
		}
	}
	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, anim); err != nil {
		return nil, errs.E(errs.EncodingFailure, "clip.EncodeGIF", err)
	}
	return buf.Bytes(), nil
}

// WriteGIF 编码后原子地写入 path。
func (s *Scene) WriteGIF(ctx context.Context, path string) error {
	data, err := s.EncodeGIF(ctx)
	if err != nil {
		return err
	}
	if err := renderer.WriteFile(path, data); err != nil {
		return err
	}
	s.logger.Info("已写入", "path", path, "frames", s.Frames())
	return nil
}

// WriteFrames 把每帧写为 dir/base_0000.png 这样的编号 PNG，返回写出的路径。
func (s *Scene) WriteFrames(ctx context.Context, dir, base string) ([]string, error) {
	set := renderer.Set{renderer.PNG: renderer.PNGRenderer{}}
	n := s.Frames()
	paths := make([]string, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return paths, err
		}
		frame, err := s.Frame(i)
		if err != nil {
			return paths, err
		}
		path := filepath.Join(dir, fmt.Sprintf("%s_%04d.png", base, i))
		if err := set.Save(path, frame); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	s.logger.Info("已写入帧序列", "dir", dir, "frames", n)
	return paths, nil
}
