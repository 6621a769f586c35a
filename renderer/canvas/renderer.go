package canvasrenderer

import (
	"bytes"
	"fmt"
	"image"
	"strings"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"

	"github.com/ByLCY/parchment/renderer"
)

// DefaultDPI 把像素换算为纸面尺寸：A4 的 2480×3508 像素正好是 210×297 毫米。
const DefaultDPI = 300.0

// Meta 写入 PDF 文档信息。
type Meta struct {
	Title    string
	Subject  string
	Keywords []string
	Author   string
	Creator  string
}

// Renderer 通过 github.com/tdewolff/canvas 把位图嵌入单页 PDF。
type Renderer struct {
	DPI  float64
	Meta Meta
}

var _ renderer.Renderer = (*Renderer)(nil)

// NewRenderer creates a PDF renderer at DefaultDPI.
func NewRenderer(meta Meta) *Renderer {
	return &Renderer{DPI: DefaultDPI, Meta: meta}
}

// Render 生成页面尺寸与位图物理尺寸一致的 PDF。
func (r *Renderer) Render(img image.Image) ([]byte, error) {
	if img == nil {
		return nil, fmt.Errorf("渲染图像为空")
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("图像尺寸为空: %v", b)
	}
	dpi := r.DPI
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	res := canvas.DPI(dpi)
	width := float64(b.Dx()) / res.DPMM()
	height := float64(b.Dy()) / res.DPMM()

	c := canvas.New(width, height)
	ctx := canvas.NewContext(c)
	ctx.DrawImage(0, 0, img, res)

	var buf bytes.Buffer
	writer := pdf.New(&buf, width, height, nil)
	r.applyMeta(writer)
	c.RenderTo(writer)
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("写入 PDF 失败: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) applyMeta(writer *pdf.PDF) {
	if writer == nil {
		return
	}
	meta := r.Meta
	if meta.Creator == "" {
		meta.Creator = "parchment"
	}
	keywords := strings.Join(meta.Keywords, ", ")
	writer.SetInfo(meta.Title, meta.Subject, keywords, meta.Author, meta.Creator)
}

// Set 返回覆盖 PNG、JPEG 与 PDF 的渲染器集合。
func Set(jpegQuality int, meta Meta) renderer.Set {
	return renderer.Set{
		renderer.PNG:  renderer.PNGRenderer{},
		renderer.JPEG: renderer.JPEGRenderer{Quality: jpegQuality},
		renderer.PDF:  NewRenderer(meta),
	}
}
