package document

import (
	"image/color"
	"log/slog"

	"github.com/ByLCY/parchment/fonts"
	"github.com/ByLCY/parchment/layout"
	"github.com/ByLCY/parchment/renderer"
	"github.com/ByLCY/parchment/surface"
)

// Plan 描述一页文档：底纹、按序叠加的效果、按序绘制的块以及输出。
type Plan struct {
	Name   string
	Meta   Meta
	Width  int
	Height int

	Texture  TextureStep
	Overlays []Overlay
	Blocks   []Block

	// Output 是输出文件名主干；Suffix 追加在最终文件上。
	Output string
	Suffix string
	// Snapshot 非空时另存一份中间结果，文件名为 Output+Snapshot。
	// 快照取自前 SnapshotAt 个叠加效果之后；SnapshotAt 小于 0 或超出叠加数量时取自全部叠加之后。
	Snapshot   string
	SnapshotAt int
	Formats    []renderer.Format
}

// Meta 是写入 PDF 的文档信息。
type Meta struct {
	Title    string
	Subject  string
	Author   string
	Keywords []string
}

// TextureStep 是必需的底纹步骤：先生成噪声底纹，Vignette 非空时再合成暗角。
type TextureStep struct {
	Base     color.RGBA
	Low      int
	High     int
	Blur     float64
	Seed     uint64
	Vignette Overlay
}

// DefaultTexture 是羊皮纸底色与 ±12 的扰动。
func DefaultTexture() TextureStep {
	return TextureStep{
		Base: color.RGBA{R: 238, G: 227, B: 203, A: 255},
		Low:  -12,
		High: 12,
		Blur: 0.7,
		Seed: 7,
	}
}

// Env 是绘制步骤共享的上下文，只在一次渲染内有效。
type Env struct {
	Canvas *surface.Canvas
	Fonts  *fonts.Provider
	Engine *layout.Engine
	Data   map[string]any
	Logger *slog.Logger
}

// Width returns the canvas width in pixels.
func (e *Env) Width() int { return e.Canvas.Width() }

// Height returns the canvas height in pixels.
func (e *Env) Height() int { return e.Canvas.Height() }

// Overlay 是叠加在底纹上的效果。可选效果失败时记录警告并跳过。
type Overlay interface {
	Name() string
	Optional() bool
	Apply(env *Env) error
}

// Block 是按顺序绘制的内容，接收当前游标并返回新的游标。
type Block interface {
	Draw(env *Env, cursor float64) (float64, error)
}

// FontSpec 引用计划中的字体资源。
type FontSpec struct {
	Name string
	Size int
	Bold bool
}
