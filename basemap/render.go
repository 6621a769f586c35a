package basemap

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"
	"path/filepath"
	"time"

	"github.com/ByLCY/parchment/errs"
	"github.com/ByLCY/parchment/fonts"
	"github.com/ByLCY/parchment/geo"
	"github.com/ByLCY/parchment/internal/logging"
	"github.com/ByLCY/parchment/layout"
	"github.com/ByLCY/parchment/renderer"
	canvasrenderer "github.com/ByLCY/parchment/renderer/canvas"
	"github.com/ByLCY/parchment/surface"
)

// Geocoder 把地名解析为范围，geo.Nominatim 实现了它。
type Geocoder interface {
	Geocode(ctx context.Context, query string) (geo.Place, error)
}

// Options 描述一张地图页。
type Options struct {
	Place string
	// Width/Height 是整页像素尺寸，地图占标题栏以下的部分。
	Width   int
	Height  int
	DPI     float64
	BufferM float64
	Title   string
	Sources []Source

	Geocoder    Geocoder
	Fetcher     *Fetcher
	FontLocator fonts.Locator

	OutputDir string
	BaseName  string
	Date      time.Time
	Logger    *slog.Logger
}

// DefaultOptions 对应 14×20 英寸、300 DPI 的海报。
func DefaultOptions() Options {
	return Options{
		Place:     "Stadt Schwarzatal, Thüringen, Deutschland",
		Width:     4200,
		Height:    6000,
		DPI:       300,
		Title:     "Schwarzatal - Satellit, Infrastruktur & Höhenmodell",
		OutputDir: "output",
		BaseName:  "schwarzatal_map",
	}
}

// Result 汇总一次地图渲染。
type Result struct {
	Place   geo.Place
	Extent  geo.Extent
	Zoom    int
	Paths   []string
	Skipped []string
}

// Render 执行地理编码、瓦片拼接、装饰与保存。必需图层失败时不写出任何文件。
func Render(ctx context.Context, opts Options) (Result, error) {
	var result Result
	logger := logging.Or(opts.Logger)
	if opts.Width <= 0 || opts.Height <= 0 {
		return result, errs.Errorf(errs.InvalidDimension, "basemap.Render", "页面尺寸必须为正: %dx%d", opts.Width, opts.Height)
	}
	dpi := opts.DPI
	if dpi <= 0 {
		dpi = canvasrenderer.DefaultDPI
	}
	sources := opts.Sources
	if len(sources) == 0 {
		sources = DefaultSources()
	}
	geocoder := opts.Geocoder
	if geocoder == nil {
		geocoder = geo.NewNominatim()
	}
	fetcher := opts.Fetcher
	if fetcher == nil {
		fetcher = NewFetcher()
	}
	date := opts.Date
	if date.IsZero() {
		date = time.Now()
	}

	provider := fonts.NewProvider(fontLocator(opts.FontLocator), logger)
	titleFace, err := provider.Resolve(points(11, dpi), true)
	if err != nil {
		return result, err
	}
	textFace, err := provider.Resolve(points(11, dpi), false)
	if err != nil {
		return result, err
	}
	lineAdvance := float64(layout.Advance(titleFace.PixelSize(), 0.2))
	pad := float64(titleFace.PixelSize()) / 2
	band := int(math.Ceil(3*lineAdvance + 2*pad))
	if opts.Height <= band {
		return result, errs.Errorf(errs.InvalidDimension, "basemap.Render", "页面高度 %d 放不下标题栏 %d", opts.Height, band)
	}
	mapRect := image.Rect(0, band, opts.Width, opts.Height)

	logger.Info("地理编码", "place", opts.Place)
	place, err := geocoder.Geocode(ctx, opts.Place)
	if err != nil {
		return result, fmt.Errorf("地理编码失败: %w", err)
	}
	result.Place = place
	extent := fitAspect(place.BBox.Mercator().Buffer(opts.BufferM), mapRect.Dx(), mapRect.Dy())
	result.Extent = extent
	zoom := fitZoom(extent, geo.Zoom(extent.Width(), mapRect.Dx()))
	result.Zoom = zoom
	logger.Debug("地图范围", "extent", extent, "zoom", zoom)

	page, err := surface.New(opts.Width, opts.Height, color.White)
	if err != nil {
		return result, err
	}
	var applied []Source
	for _, src := range sources {
		layer, err := fetcher.Stitch(ctx, src, extent, zoom, mapRect.Dx(), mapRect.Dy())
		if err != nil {
			if !src.Optional {
				return result, fmt.Errorf("图层 %s 不可用: %w", src.Name, err)
			}
			logger.Warn("可选图层不可用，已跳过", "layer", src.Name, "err", err)
			result.Skipped = append(result.Skipped, src.Name)
			continue
		}
		opacity := src.Opacity
		if opacity <= 0 {
			opacity = 1
		}
		page.AlphaComposite(layer, mapRect.Min, opacity)
		applied = append(applied, src)
	}

	arrowFace, err := provider.Resolve(points(12, dpi), true)
	if err != nil {
		return result, err
	}
	scaleFace, err := provider.Resolve(points(9, dpi), false)
	if err != nil {
		return result, err
	}
	if err := drawNorthArrow(page, mapRect, arrowFace, dpi); err != nil {
		return result, err
	}
	if err := drawScaleBar(page, mapRect, extent, scaleFace, dpi); err != nil {
		return result, err
	}

	title := opts.Title
	if title == "" {
		title = DefaultOptions().Title
	}
	lines := []struct {
		text string
		face *fonts.Handle
	}{
		{title, titleFace},
		{"Region: " + place.DisplayName, textFace},
		{fmt.Sprintf("Daten: %s - Stand %s", Credits(applied), date.Format("2006-01-02")), textFace},
	}
	y := pad
	for _, l := range lines {
		if _, err := page.DrawTextAligned(float64(opts.Width)/2, y, l.text, l.face, color.Black, "center"); err != nil {
			return result, err
		}
		y += lineAdvance
	}

	set := renderer.Set{
		renderer.PNG: renderer.PNGRenderer{},
		renderer.PDF: &canvasrenderer.Renderer{DPI: dpi, Meta: canvasrenderer.Meta{
			Title:   title,
			Subject: place.DisplayName,
		}},
	}
	base := opts.BaseName
	if base == "" {
		base = DefaultOptions().BaseName
	}
	for _, f := range []renderer.Format{renderer.PNG, renderer.PDF} {
		path := filepath.Join(opts.OutputDir, base+f.Ext())
		if err := set.Save(path, page.Image()); err != nil {
			return result, err
		}
		result.Paths = append(result.Paths, path)
		logger.Info("已写入", "path", path)
	}
	return result, nil
}

func fontLocator(l fonts.Locator) fonts.Locator {
	if l != nil {
		return l
	}
	return fonts.DefaultLocator(nil)
}

// points 把磅值换算为给定 DPI 下的像素字号。
func points(pt, dpi float64) int {
	return max(1, int(math.Round(pt*dpi/72)))
}

// fitAspect 以中心为基准扩展 e，使其宽高比与 w×h 一致，地图不被拉伸。
func fitAspect(e geo.Extent, w, h int) geo.Extent {
	if w <= 0 || h <= 0 || e.Width() <= 0 || e.Height() <= 0 {
		return e
	}
	target := float64(w) / float64(h)
	cx, cy := (e.MinX+e.MaxX)/2, (e.MinY+e.MaxY)/2
	hw, hh := e.Width()/2, e.Height()/2
	if e.Width()/e.Height() < target {
		hw = hh * target
	} else {
		hh = hw / target
	}
	return geo.Extent{MinX: cx - hw, MinY: cy - hh, MaxX: cx + hw, MaxY: cy + hh}
}
