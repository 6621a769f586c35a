package document

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/ByLCY/parchment/dsl"
	"github.com/ByLCY/parchment/errs"
	"github.com/ByLCY/parchment/layout"
)

// pagePresets 是 300 dpi 下的常用纸张像素尺寸。
var pagePresets = map[string][2]int{
	"A4": {2480, 3508},
	"A5": {1748, 2480},
	"A3": {3508, 4961},
}

type resourceSet struct {
	fonts  map[string]FontSpec
	colors map[string]color.NRGBA
}

// FromDSL 把解析后的计划文档转换为可执行的 Plan。
func FromDSL(doc *dsl.Document) (*Plan, error) {
	if doc == nil {
		return nil, fmt.Errorf("计划文档为空")
	}
	page := doc.Page()
	if page == nil {
		return nil, fmt.Errorf("计划 %s 缺少 page 段", doc.Name)
	}
	res, err := collectResources(doc)
	if err != nil {
		return nil, err
	}
	plan := &Plan{
		Name:       doc.Name,
		Output:     doc.Name,
		Texture:    DefaultTexture(),
		SnapshotAt: -1,
	}
	if err := collectMeta(doc, plan); err != nil {
		return nil, err
	}
	w, h, err := resolvePageSize(page)
	if err != nil {
		return nil, err
	}
	plan.Width, plan.Height = w, h

	for _, cmd := range page.Commands {
		if err := addCommand(plan, cmd, res); err != nil {
			return nil, fmt.Errorf("%s: %w", cmd.Pos, err)
		}
	}
	return plan, nil
}

func addCommand(plan *Plan, cmd *dsl.Command, res resourceSet) error {
	switch cmd.Name {
	case "texture":
		_, attrs, err := splitArgs(cmd.Args, false)
		if err != nil {
			return err
		}
		return parseTexture(&plan.Texture, attrs, res)
	case "vignette", "fold", "stains", "frame", "lines":
		_, attrs, err := splitArgs(cmd.Args, false)
		if err != nil {
			return err
		}
		o, err := parseOverlay(cmd.Name, attrs, res)
		if err != nil {
			return err
		}
		if cmd.Name == "vignette" {
			plan.Texture.Vignette = o
			return nil
		}
		plan.Overlays = append(plan.Overlays, o)
	case "snapshot":
		if len(cmd.Args) > 0 || cmd.Body != nil {
			return fmt.Errorf("snapshot 不接受参数")
		}
		if plan.SnapshotAt >= 0 {
			return fmt.Errorf("snapshot 只能出现一次")
		}
		plan.SnapshotAt = len(plan.Overlays)
	case "label", "paragraph", "rule", "spacer":
		b, err := parseBlock(cmd, res)
		if err != nil {
			return err
		}
		plan.Blocks = append(plan.Blocks, b)
	default:
		return fmt.Errorf("未知指令 %q", cmd.Name)
	}
	return nil
}

func parseTexture(t *TextureStep, attrs map[string]string, res resourceSet) error {
	var err error
	if v, ok := attrs["base"]; ok {
		c, cerr := resolveColor(v, res)
		if cerr != nil {
			return cerr
		}
		t.Base = color.RGBA{R: c.R, G: c.G, B: c.B, A: 255}
	}
	if t.Low, err = intAttr(attrs, "low", t.Low); err != nil {
		return err
	}
	if t.High, err = intAttr(attrs, "high", t.High); err != nil {
		return err
	}
	if t.Blur, err = floatAttr(attrs, "blur", t.Blur); err != nil {
		return err
	}
	if v, ok := attrs["seed"]; ok {
		seed, perr := strconv.ParseUint(v, 10, 64)
		if perr != nil {
			return fmt.Errorf("种子 %q 无法解析: %w", v, perr)
		}
		t.Seed = seed
	}
	if t.Low >= t.High {
		return errs.Errorf(errs.InvalidDimension, "document.texture", "扰动区间为空: [%d, %d)", t.Low, t.High)
	}
	return nil
}

func parseOverlay(name string, attrs map[string]string, res resourceSet) (Overlay, error) {
	optional, err := boolAttr(attrs, "optional", name != "vignette")
	if err != nil {
		return nil, err
	}
	required := !optional
	margin, err := floatAttr(attrs, "margin", DefaultMargin)
	if err != nil {
		return nil, err
	}
	switch name {
	case "vignette":
		feather, err := floatAttr(attrs, "feather", 0.8)
		if err != nil {
			return nil, err
		}
		edge, err := colorAttr(attrs, "edge", color.NRGBA{R: 210, G: 195, B: 165, A: 255}, res)
		if err != nil {
			return nil, err
		}
		return VignetteOverlay{Margin: margin, Feather: feather, Edge: edge, Required: required}, nil
	case "fold":
		y, err := coordAttr(attrs, "y", layout.Pct(100.0/3))
		if err != nil {
			return nil, err
		}
		c, err := colorAttr(attrs, "color", color.NRGBA{R: 50, G: 40, B: 30, A: 255}, res)
		if err != nil {
			return nil, err
		}
		alpha, err := intAttr(attrs, "alpha", int(c.A))
		if err != nil {
			return nil, err
		}
		c.A = uint8(min(max(alpha, 0), 255))
		width, err := intAttr(attrs, "width", 2)
		if err != nil {
			return nil, err
		}
		feather, err := floatAttr(attrs, "feather", 0)
		if err != nil {
			return nil, err
		}
		return FoldOverlay{Y: y, Color: c, Width: width, Feather: feather, Margin: margin, Required: required}, nil
	case "frame", "lines":
		return parseGuide(name, attrs, required, res)
	default:
		every, err := coordAttr(attrs, "every", layout.Pct(12))
		if err != nil {
			return nil, err
		}
		w, err := intAttr(attrs, "width", 14)
		if err != nil {
			return nil, err
		}
		h, err := intAttr(attrs, "height", 10)
		if err != nil {
			return nil, err
		}
		c, err := colorAttr(attrs, "color", color.NRGBA{R: 80, G: 60, B: 40, A: 12}, res)
		if err != nil {
			return nil, err
		}
		return StainsOverlay{Margin: margin, Every: every, W: w, H: h, Color: c, Required: required}, nil
	}
}

func parseBlock(cmd *dsl.Command, res resourceSet) (Block, error) {
	fontName, attrs, err := splitArgs(cmd.Args, cmd.Name == "label" || cmd.Name == "paragraph")
	if err != nil {
		return nil, err
	}
	switch cmd.Name {
	case "label", "paragraph":
		font, ok := res.fonts[fontName]
		if !ok {
			return nil, fmt.Errorf("未定义的字体 %q", fontName)
		}
		x, err := coordAttr(attrs, "x", layout.Px(0))
		if err != nil {
			return nil, err
		}
		y, err := coordAttr(attrs, "y", layout.Rel(0))
		if err != nil {
			return nil, err
		}
		c, err := colorAttr(attrs, "color", defaultInk, res)
		if err != nil {
			return nil, err
		}
		spacing, err := floatAttr(attrs, "spacing", DefaultLineSpacing)
		if err != nil {
			return nil, err
		}
		text := cmd.Text()
		if cmd.Name == "paragraph" {
			width, err := coordAttr(attrs, "width", layout.Px(0))
			if err != nil {
				return nil, err
			}
			return ParagraphBlock{Font: font, X: x, Y: y, Width: width, Spacing: spacing, Color: c, Text: text}, nil
		}
		dx, err := floatAttr(attrs, "dx", 0)
		if err != nil {
			return nil, err
		}
		dy, err := floatAttr(attrs, "dy", 0)
		if err != nil {
			return nil, err
		}
		return LabelBlock{Font: font, X: x, Y: y, DX: dx, DY: dy, Align: attrs["align"], Color: c, Spacing: spacing, Text: text}, nil
	case "spacer":
		h, err := floatAttr(attrs, "height", 0)
		if err != nil {
			return nil, err
		}
		return SpacerBlock{Height: h}, nil
	}

	coords, err := coordAttrs(attrs, "x1", "y1", "x2", "y2")
	if err != nil {
		return nil, err
	}
	c, err := colorAttr(attrs, "color", defaultInk, res)
	if err != nil {
		return nil, err
	}
	width, err := floatAttr(attrs, "width", 1)
	if err != nil {
		return nil, err
	}
	return RuleBlock{X1: coords["x1"], Y1: coords["y1"], X2: coords["x2"], Y2: coords["y2"], Color: c, Width: width}, nil
}

// parseGuide 解析书写框与辅助线，二者默认可选。
func parseGuide(name string, attrs map[string]string, required bool, res resourceSet) (Overlay, error) {
	coords, err := coordAttrs(attrs, "x1", "y1", "x2", "y2", "start", "stop")
	if err != nil {
		return nil, err
	}
	c, err := colorAttr(attrs, "color", defaultInk, res)
	if err != nil {
		return nil, err
	}
	width, err := floatAttr(attrs, "width", 1)
	if err != nil {
		return nil, err
	}
	if name == "frame" {
		return FrameOverlay{X1: coords["x1"], Y1: coords["y1"], X2: coords["x2"], Y2: coords["y2"], Color: c, Width: width, Required: required}, nil
	}
	every, err := intAttr(attrs, "every", 56)
	if err != nil {
		return nil, err
	}
	inset, err := floatAttr(attrs, "inset", 0)
	if err != nil {
		return nil, err
	}
	return LinesOverlay{
		X1: coords["x1"], X2: coords["x2"], Y1: coords["y1"], Y2: coords["y2"],
		Start: coords["start"], Stop: coords["stop"],
		Every: every, Inset: inset, Color: c, Width: width, Required: required,
	}, nil
}

func coordAttrs(attrs map[string]string, keys ...string) (map[string]layout.Coord, error) {
	coords := make(map[string]layout.Coord, len(keys))
	for _, key := range keys {
		c, err := coordAttr(attrs, key, layout.Px(0))
		if err != nil {
			return nil, err
		}
		coords[key] = c
	}
	return coords, nil
}

func collectResources(doc *dsl.Document) (resourceSet, error) {
	res := resourceSet{
		fonts:  map[string]FontSpec{"Body": {Name: "Body", Size: 44}},
		colors: map[string]color.NRGBA{},
	}
	for _, section := range doc.Sections {
		if section.Resources == nil {
			continue
		}
		for _, item := range section.Resources.Items {
			switch {
			case item.Font != nil:
				font, err := fontSpec(item.Font)
				if err != nil {
					return res, fmt.Errorf("%s: %w", item.Font.Pos, err)
				}
				res.fonts[font.Name] = font
			case item.Color != nil:
				c, err := parseColor(item.Color.Value)
				if err != nil {
					return res, fmt.Errorf("%s: %w", item.Color.Pos, err)
				}
				res.colors[item.Color.Name] = c
			}
		}
	}
	return res, nil
}

func collectMeta(doc *dsl.Document, plan *Plan) error {
	for _, section := range doc.Sections {
		if section.Meta == nil {
			continue
		}
		for _, entry := range section.Meta.Entries {
			val := entry.Value
			switch strings.ToLower(entry.Key) {
			case "title":
				plan.Meta.Title = val.Text()
			case "subject":
				plan.Meta.Subject = val.Text()
			case "author":
				plan.Meta.Author = val.Text()
			case "keywords":
				plan.Meta.Keywords = val.Strings()
			case "output":
				plan.Output = val.Text()
			case "suffix":
				plan.Suffix = val.Text()
			case "snapshot":
				plan.Snapshot = val.Text()
			case "formats":
				formats, err := ParseFormats(val.Strings())
				if err != nil {
					return fmt.Errorf("%s: %w", entry.Pos, err)
				}
				plan.Formats = formats
			}
		}
	}
	return nil
}

// fontSpec 读取 size 与 weight；未给出 size 时为 44 px。
func fontSpec(r *dsl.FontResource) (FontSpec, error) {
	font := FontSpec{Name: r.Name, Size: 44}
	for _, p := range r.Props {
		switch p.Key {
		case "size":
			n, err := strconv.Atoi(trimUnit(p.Value.Text()))
			if err != nil || n <= 0 {
				return font, errs.Errorf(errs.InvalidDimension, "document.font", "字体 %s 的字号 %q 无效", r.Name, p.Value.Text())
			}
			font.Size = n
		case "weight":
			font.Bold = strings.EqualFold(p.Value.Text(), "bold")
		}
	}
	return font, nil
}

func resolvePageSize(page *dsl.PageSection) (int, int, error) {
	var width, height int
	if base, ok := pagePresets[strings.ToUpper(page.Size)]; ok {
		width, height = base[0], base[1]
	} else if w, h, ok := strings.Cut(page.Size, "x"); ok {
		var err1, err2 error
		width, err1 = strconv.Atoi(w)
		height, err2 = strconv.Atoi(h)
		if err1 != nil || err2 != nil {
			return 0, 0, fmt.Errorf("页面尺寸 %q 无法解析", page.Size)
		}
	} else {
		return 0, 0, fmt.Errorf("暂不支持的纸张尺寸：%s", page.Size)
	}
	if page.HasOption("landscape") {
		width, height = height, width
	}
	if width <= 0 || height <= 0 {
		return 0, 0, errs.Errorf(errs.InvalidDimension, "document.page", "页面尺寸必须为正: %dx%d", width, height)
	}
	return width, height, nil
}

// splitArgs 把 "Name key value key value" 拆成可选的首个名称与键值表。
// withName 为真时首个标识符是字体名；键必须是标识符且不能缺值。
func splitArgs(args []*dsl.Arg, withName bool) (string, map[string]string, error) {
	attrs := make(map[string]string, len(args)/2)
	var name string
	if withName && len(args) > 0 && args[0].IsIdent() {
		name, args = args[0].Text(), args[1:]
	}
	for len(args) > 0 {
		key := args[0]
		if !key.IsIdent() {
			return name, attrs, fmt.Errorf("%s: 参数名应为标识符，得到 %q", key.Pos, key.Text())
		}
		if len(args) == 1 {
			return name, attrs, fmt.Errorf("%s: 参数 %s 缺少取值", key.Pos, key.Text())
		}
		attrs[key.Text()] = args[1].Text()
		args = args[2:]
	}
	return name, attrs, nil
}

func resolveColor(value string, res resourceSet) (color.NRGBA, error) {
	if c, ok := res.colors[value]; ok {
		return c, nil
	}
	return parseColor(value)
}

func parseColor(value string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(value, "#")
	if len(hex) == 3 {
		hex = strings.Repeat(hex[0:1], 2) + strings.Repeat(hex[1:2], 2) + strings.Repeat(hex[2:3], 2)
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 || !strings.HasPrefix(value, "#") {
		return color.NRGBA{}, fmt.Errorf("颜色值 %s 无法解析", value)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("颜色值 %s 无法解析: %w", value, err)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

func colorAttr(attrs map[string]string, key string, def color.NRGBA, res resourceSet) (color.NRGBA, error) {
	v, ok := attrs[key]
	if !ok {
		return def, nil
	}
	return resolveColor(v, res)
}

func coordAttr(attrs map[string]string, key string, def layout.Coord) (layout.Coord, error) {
	v, ok := attrs[key]
	if !ok {
		return def, nil
	}
	c, err := layout.ParseCoord(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return c, nil
}

func floatAttr(attrs map[string]string, key string, def float64) (float64, error) {
	v, ok := attrs[key]
	if !ok {
		return def, nil
	}
	f, err := strconv.ParseFloat(trimUnit(v), 64)
	if err != nil {
		return def, fmt.Errorf("%s 的值 %q 不是数字", key, v)
	}
	return f, nil
}

func intAttr(attrs map[string]string, key string, def int) (int, error) {
	v, ok := attrs[key]
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimPrefix(trimUnit(v), "+"))
	if err != nil {
		return def, fmt.Errorf("%s 的值 %q 不是整数", key, v)
	}
	return n, nil
}

func boolAttr(attrs map[string]string, key string, def bool) (bool, error) {
	v, ok := attrs[key]
	if !ok {
		return def, nil
	}
	switch strings.ToLower(v) {
	case "yes", "true", "on":
		return true, nil
	case "no", "false", "off":
		return false, nil
	}
	return def, fmt.Errorf("%s 的值 %q 不是布尔值", key, v)
}

func trimUnit(value string) string {
	return strings.TrimSuffix(strings.TrimSpace(value), "px")
}
