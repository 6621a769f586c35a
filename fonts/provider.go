package fonts

import (
	"fmt"
	"image/color"
	"log/slog"
	"strings"
	"sync"

	"github.com/tdewolff/canvas"

	"github.com/ByLCY/parchment/errs"
	"github.com/ByLCY/parchment/internal/logging"
)

// Provider 懒加载字体并在一次渲染内缓存，按 (像素字号, 字重) 复用 Handle。
type Provider struct {
	locator Locator
	logger  *slog.Logger

	mu       sync.Mutex
	families map[bool]*familyEntry
	handles  map[handleKey]*Handle
}

type familyEntry struct {
	family *canvas.FontFamily
	source string
}

type handleKey struct {
	size int
	bold bool
}

// NewProvider creates a provider; a nil locator means DefaultLocator(nil).
func NewProvider(locator Locator, logger *slog.Logger) *Provider {
	if locator == nil {
		locator = DefaultLocator(nil)
	}
	return &Provider{
		locator:  locator,
		logger:   logging.Or(logger),
		families: map[bool]*familyEntry{},
		handles:  map[handleKey]*Handle{},
	}
}

// Resolve 返回给定像素字号与字重的字体句柄。首选字体缺失时降级到内置字体，不会中断渲染。
func (p *Provider) Resolve(pixelSize int, bold bool) (*Handle, error) {
	if pixelSize <= 0 {
		return nil, errs.Errorf(errs.InvalidDimension, "fonts.Resolve", "字号必须为正: %d", pixelSize)
	}
	key := handleKey{size: pixelSize, bold: bold}

	p.mu.Lock()
	defer p.mu.Unlock()

	if h, ok := p.handles[key]; ok {
		return h, nil
	}
	entry, err := p.ensureFamily(bold)
	if err != nil {
		return nil, err
	}
	h := &Handle{
		size:   pixelSize,
		bold:   bold,
		source: entry.source,
		family: entry.family,
	}
	h.face = h.Face(color.Black)
	p.handles[key] = h
	return h, nil
}

func (p *Provider) ensureFamily(bold bool) (*familyEntry, error) {
	if entry, ok := p.families[bold]; ok {
		return entry, nil
	}
	src, err := p.locator.Locate(bold)
	if err != nil {
		p.logger.Warn("首选字体不可用，回退到内置字体", "bold", bold, "kind", errs.ResourceUnavailable, "err", err)
		src, _ = Builtin.Locate(bold)
	}
	family, err := loadFamily(src)
	if err != nil && !strings.HasPrefix(src.Name, "embed:") {
		p.logger.Warn("字体无法解析，回退到内置字体", "path", src.Name, "err", err)
		src, _ = Builtin.Locate(bold)
		family, err = loadFamily(src)
	}
	if err != nil {
		return nil, errs.E(errs.ResourceUnavailable, "fonts.Resolve", err)
	}
	if _, isBuiltin := p.locator.(builtinLocator); strings.HasPrefix(src.Name, "embed:") && !isBuiltin {
		p.logger.Warn("首选字体不可用，使用内置字体", "font", src.Name, "bold", bold, "kind", errs.ResourceUnavailable)
	}
	entry := &familyEntry{family: family, source: src.Name}
	p.families[bold] = entry
	return entry, nil
}

func loadFamily(src Source) (*canvas.FontFamily, error) {
	family := canvas.NewFontFamily(familyName(src))
	if err := family.LoadFont(src.Data, 0, canvas.FontRegular); err != nil {
		return nil, fmt.Errorf("加载字体 %s 失败: %w", src.Name, err)
	}
	return family, nil
}

func familyName(src Source) string {
	if src.Bold {
		return "parchment-bold"
	}
	return "parchment-regular"
}

// Handle 是已解析的字体引用，创建后不再修改。
type Handle struct {
	size   int
	bold   bool
	source string
	family *canvas.FontFamily
	face   *canvas.FontFace
}

// PixelSize returns the em size in pixels.
func (h *Handle) PixelSize() int { return h.size }

// Bold reports the requested weight.
func (h *Handle) Bold() bool { return h.bold }

// Source 返回字体来源（文件路径或 embed:名称）。
func (h *Handle) Source() string { return h.source }

// Face 返回带颜色的画布字体面，用于绘制。
func (h *Handle) Face(col color.Color) *canvas.FontFace {
	return h.family.Face(PixelsToPoints(float64(h.size)), col, canvas.FontRegular, canvas.FontNormal)
}

// Measure 返回文本的像素宽度；同一句柄同一字符串的结果恒定。
func (h *Handle) Measure(text string) float64 {
	if text == "" {
		return 0
	}
	return h.face.TextWidth(text)
}

// Ascent 返回基线以上的像素高度。
func (h *Handle) Ascent() float64 {
	return h.face.Metrics().Ascent
}
