// Package document 按页面计划依次执行底纹、叠加效果、文字与保存，
// 并为每种文档类型提供入口函数。
package document

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/ByLCY/parchment/binding"
	"github.com/ByLCY/parchment/dsl"
	"github.com/ByLCY/parchment/errs"
	"github.com/ByLCY/parchment/fonts"
	"github.com/ByLCY/parchment/internal/logging"
	"github.com/ByLCY/parchment/layout"
	"github.com/ByLCY/parchment/noise"
	"github.com/ByLCY/parchment/plans"
	"github.com/ByLCY/parchment/renderer"
	canvasrenderer "github.com/ByLCY/parchment/renderer/canvas"
	"github.com/ByLCY/parchment/surface"
)

// Result 汇总一次渲染。
type Result struct {
	Paths []string
	// Skipped 是失败后被跳过的可选叠加效果。
	Skipped []string
	// States 记录实际经过的阶段。
	States []State
	// Cursor 是最后一个块之后的纵向游标。
	Cursor float64
}

// Renderer 执行页面计划。一次 Render 调用独占自己的画布与字体缓存。
type Renderer struct {
	cfg Config
}

// NewRenderer validates cfg and returns a renderer bound to it.
func NewRenderer(cfg Config) (*Renderer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Renderer{cfg: cfg}, nil
}

// Render 依次推进 Init → TextureBuilt → OverlaysApplied → TextRendered → Saved。
// 所有文件都在 Saved 阶段才写出。
func (r *Renderer) Render(ctx context.Context, plan *Plan) (result Result, err error) {
	if err := ctx.Err(); err != nil {
		return result, err
	}
	if plan == nil {
		return result, fmt.Errorf("页面计划为空")
	}
	cfg := r.cfg
	logger := logging.Or(cfg.Logger).With("plan", plan.Name)
	m := newMachine()
	defer func() { result.States = m.visited }()

	width, height := plan.Width, plan.Height
	if cfg.Width > 0 {
		width = cfg.Width
	}
	if cfg.Height > 0 {
		height = cfg.Height
	}
	tex := plan.Texture
	if cfg.Seed != nil {
		tex.Seed = *cfg.Seed
	}
	img, err := noise.Texture(noise.TextureOptions{
		Width:      width,
		Height:     height,
		Base:       tex.Base,
		Low:        tex.Low,
		High:       tex.High,
		Seed:       tex.Seed,
		BlurRadius: tex.Blur,
	})
	if err != nil {
		return result, fmt.Errorf("生成底纹失败: %w", err)
	}

	tag := plans.Match(cfg.Locale)
	env := &Env{
		Canvas: surface.FromImage(img),
		Fonts:  fonts.NewProvider(cfg.locator(), logger),
		Engine: layout.NewEngine(),
		Data:   binding.RenderData(cfg.date(), tag, cfg.Place, cfg.Data),
		Logger: logger,
	}
	if tex.Vignette != nil {
		if err := applyOverlay(env, tex.Vignette, &result); err != nil {
			return result, err
		}
	}
	if err := m.advance(TextureBuilt); err != nil {
		return result, err
	}
	logger.Debug("底纹完成", "width", width, "height", height, "seed", tex.Seed)

	var snapshot *surface.Canvas
	for i, o := range plan.Overlays {
		if plan.Snapshot != "" && i == plan.SnapshotAt {
			snapshot = env.Canvas.Clone()
		}
		if err := applyOverlay(env, o, &result); err != nil {
			return result, err
		}
	}
	if plan.Snapshot != "" && snapshot == nil {
		snapshot = env.Canvas.Clone()
	}
	if err := m.advance(OverlaysApplied); err != nil {
		return result, err
	}

	cursor := 0.0
	for i, b := range plan.Blocks {
		next, err := b.Draw(env, cursor)
		if err != nil {
			return result, fmt.Errorf("绘制第 %d 个块失败: %w", i+1, err)
		}
		cursor = next
	}
	result.Cursor = cursor
	if err := m.advance(TextRendered); err != nil {
		return result, err
	}

	set := canvasrenderer.Set(cfg.JPEGQuality, canvasrenderer.Meta{
		Title:    env.text(plan.Meta.Title),
		Subject:  env.text(plan.Meta.Subject),
		Author:   plan.Meta.Author,
		Keywords: plan.Meta.Keywords,
	})
	base := plan.Output
	if cfg.BaseName != "" {
		base = cfg.BaseName
	}
	if base == "" {
		base = plan.Name
	}
	formats := cfg.Formats
	if len(formats) == 0 {
		formats = plan.Formats
	}
	if len(formats) == 0 {
		formats = []renderer.Format{renderer.PNG, renderer.JPEG}
	}
	if snapshot != nil {
		paths, err := save(set, cfg.OutputDir, base+plan.Snapshot, formats, snapshot)
		result.Paths = append(result.Paths, paths...)
		if err != nil {
			return result, err
		}
	}
	paths, err := save(set, cfg.OutputDir, base+plan.Suffix, formats, env.Canvas)
	result.Paths = append(result.Paths, paths...)
	if err != nil {
		return result, err
	}
	if err := m.advance(Saved); err != nil {
		return result, err
	}
	for _, p := range result.Paths {
		logger.Info("已写入", "path", p)
	}
	return result, nil
}

// applyOverlay 执行一个叠加效果。可选效果失败时记录警告并计入 Skipped，必需效果的失败原样返回。
func applyOverlay(env *Env, o Overlay, result *Result) error {
	err := o.Apply(env)
	if err == nil {
		return nil
	}
	if !o.Optional() {
		return fmt.Errorf("叠加效果 %s 失败: %w", o.Name(), err)
	}
	env.Logger.Warn("可选叠加效果失败，已跳过", "overlay", o.Name(), "kind", errs.KindOf(err), "err", err)
	result.Skipped = append(result.Skipped, o.Name())
	return nil
}

func save(set renderer.Set, dir, name string, formats []renderer.Format, c *surface.Canvas) ([]string, error) {
	var paths []string
	for _, f := range formats {
		path := filepath.Join(dir, name+f.Ext())
		if err := set.Save(path, c.Image()); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// RenderPlan 渲染已解析的计划文档。
func RenderPlan(ctx context.Context, doc *dsl.Document, cfg Config) ([]string, error) {
	plan, err := FromDSL(doc)
	if err != nil {
		return nil, err
	}
	r, err := NewRenderer(cfg)
	if err != nil {
		return nil, err
	}
	res, err := r.Render(ctx, plan)
	return res.Paths, err
}

// RenderBuiltin 按语言环境加载内置计划并渲染。
func RenderBuiltin(ctx context.Context, name string, cfg Config) ([]string, error) {
	doc, _, err := plans.Load(name, cfg.Locale)
	if err != nil {
		return nil, err
	}
	return RenderPlan(ctx, doc, cfg)
}

// RenderLetter 生成带标题、正文与签名栏的旧式书信。
func RenderLetter(ctx context.Context, cfg Config) ([]string, error) {
	return RenderBuiltin(ctx, "letter", cfg)
}

// RenderBlank 生成不含文字的空白羊皮纸。
func RenderBlank(ctx context.Context, cfg Config) ([]string, error) {
	return RenderBuiltin(ctx, "blank", cfg)
}

// RenderTemplate 先保存空白页，再保存带边框、横线与占位文字的模板。
func RenderTemplate(ctx context.Context, cfg Config) ([]string, error) {
	return RenderBuiltin(ctx, "template", cfg)
}

// RenderSummary 生成分节的说明页。
func RenderSummary(ctx context.Context, cfg Config) ([]string, error) {
	return RenderBuiltin(ctx, "summary", cfg)
}

// RenderPlanFile 读取并渲染用户编写的计划文件。
func RenderPlanFile(ctx context.Context, path string, cfg Config) ([]string, error) {
	doc, err := dsl.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("解析计划文件失败: %w", err)
	}
	return RenderPlan(ctx, doc, cfg)
}
