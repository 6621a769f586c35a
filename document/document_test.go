package document

import (
	"bytes"
	"context"
	"errors"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/ByLCY/parchment/dsl"
	"github.com/ByLCY/parchment/errs"
	"github.com/ByLCY/parchment/fonts"
	"github.com/ByLCY/parchment/layout"
	"github.com/ByLCY/parchment/plans"
	"github.com/ByLCY/parchment/renderer"
)

const goldenBody = "Mit demütiger Feder sei hier ein Schreiben gesetzt, wie es ehedem gebräuchlich war. " +
	"In wohlgesetzten Worten, behutsam und mit Bedacht, werden Zeilen geordnet und Gedanken gefügt. " +
	"So möge der Leser erkennen, wie sich Zucht und Zierde des Schreibens in früheren Tagen gestalteten, da Tinte so treu war."

func testConfig(t *testing.T) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.OutputDir = t.TempDir()
	cfg.FontLocator = fonts.Builtin
	cfg.Formats = []renderer.Format{renderer.PNG}
	cfg.Date = time.Date(1925, time.March, 7, 0, 0, 0, 0, time.UTC)
	return cfg
}

const goldenTitle = "Ein Schreiben nach alter Art"

func goldenPlan() *Plan {
	tex := DefaultTexture()
	tex.Seed = 7
	tex.Vignette = VignetteOverlay{Margin: DefaultMargin, Feather: 0.8, Edge: defaultInk, Required: true}
	return &Plan{
		Name:    "golden",
		Width:   400,
		Height:  300,
		Texture: tex,
		Blocks: []Block{
			LabelBlock{
				Font:    FontSpec{Name: "Title", Size: 44, Bold: true},
				X:       layout.Pct(50),
				Y:       layout.Px(20),
				Align:   "center",
				Spacing: 0.2,
				Text:    goldenTitle,
			},
			ParagraphBlock{
				Font:    FontSpec{Name: "Body", Size: 44},
				X:       layout.Px(40),
				Y:       layout.Rel(0),
				Width:   layout.Px(320),
				Spacing: 0.2,
				Text:    goldenBody,
			},
		},
	}
}

func render(t *testing.T, cfg Config, plan *Plan) Result {
	t.Helper()
	r, err := NewRenderer(cfg)
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	res, err := r.Render(context.Background(), plan)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	return res
}

func TestStateOrder(t *testing.T) {
	m := newMachine()
	if err := m.advance(OverlaysApplied); err == nil {
		t.Fatalf("skipping a state must fail")
	}
	for _, s := range []State{TextureBuilt, OverlaysApplied, TextRendered, Saved} {
		if err := m.advance(s); err != nil {
			t.Fatalf("advance to %s: %v", s, err)
		}
	}
	if err := m.advance(Init); err == nil {
		t.Fatalf("moving backwards must fail")
	}
	if Saved.String() != "Saved" || State(42).String() != "State(42)" {
		t.Fatalf("unexpected state names")
	}
}

func TestGoldenScenario(t *testing.T) {
	cfg := testConfig(t)
	plan := goldenPlan()
	res := render(t, cfg, plan)

	// 标题推进一行；20 列预算下正文折成 17 行，每行推进 round(44×1.2)=53 像素
	if want := 20 + 53 + 17*53; res.Cursor != float64(want) {
		t.Fatalf("golden end y changed: got %g want %d", res.Cursor, want)
	}
	if !slices.Equal(res.States, []State{Init, TextureBuilt, OverlaysApplied, TextRendered, Saved}) {
		t.Fatalf("unexpected states %v", res.States)
	}
	if len(res.Paths) != 1 || filepath.Base(res.Paths[0]) != "golden.png" {
		t.Fatalf("unexpected outputs %v", res.Paths)
	}
	img, err := renderer.Load(res.Paths[0])
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if img.Bounds() != image.Rect(0, 0, 400, 300) {
		t.Fatalf("unexpected size %v", img.Bounds())
	}

	// 同一种子与输入必须得到逐像素相同的结果
	cfg2 := testConfig(t)
	again := render(t, cfg2, goldenPlan())
	a, _ := os.ReadFile(res.Paths[0])
	b, _ := os.ReadFile(again.Paths[0])
	if !bytes.Equal(a, b) {
		t.Fatalf("rendering is not deterministic")
	}
}

type failingOverlay struct {
	required bool
}

func (failingOverlay) Name() string     { return "broken" }
func (o failingOverlay) Optional() bool { return !o.required }
func (failingOverlay) Apply(*Env) error {
	return errs.Errorf(errs.ResourceUnavailable, "test", "layer missing")
}

func TestOptionalOverlayFailureIsSkipped(t *testing.T) {
	var logs bytes.Buffer
	cfg := testConfig(t)
	cfg.Logger = slog.New(slog.NewTextHandler(&logs, nil))
	plan := goldenPlan()
	plan.Overlays = append(plan.Overlays, failingOverlay{})

	res := render(t, cfg, plan)
	if !slices.Equal(res.Skipped, []string{"broken"}) {
		t.Fatalf("expected skipped overlay, got %v", res.Skipped)
	}
	if !strings.Contains(logs.String(), "overlay=broken") {
		t.Fatalf("skipped overlay not logged: %s", logs.String())
	}
	if len(res.Paths) != 1 {
		t.Fatalf("render should still save, got %v", res.Paths)
	}
}

func TestMandatoryOverlayFailureAborts(t *testing.T) {
	cfg := testConfig(t)
	plan := goldenPlan()
	plan.Overlays = append(plan.Overlays, failingOverlay{required: true})

	r, err := NewRenderer(cfg)
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	res, err := r.Render(context.Background(), plan)
	if !errors.Is(err, errs.ErrResourceUnavailable) {
		t.Fatalf("expected the overlay error, got %v", err)
	}
	if res.States[len(res.States)-1] != TextureBuilt {
		t.Fatalf("render must stop before OverlaysApplied, got %v", res.States)
	}
	entries, _ := os.ReadDir(cfg.OutputDir)
	if len(entries) != 0 {
		t.Fatalf("no file may be written on failure, found %v", entries)
	}
}

func TestMandatoryVignetteFailureAbortsBeforeTexture(t *testing.T) {
	cfg := testConfig(t)
	plan := goldenPlan()
	plan.Texture.Vignette = failingOverlay{required: true}

	r, _ := NewRenderer(cfg)
	res, err := r.Render(context.Background(), plan)
	if !errors.Is(err, errs.ErrResourceUnavailable) {
		t.Fatalf("expected the vignette error, got %v", err)
	}
	if !slices.Equal(res.States, []State{Init}) {
		t.Fatalf("vignette belongs to the texture step, got %v", res.States)
	}
}

func TestBrokenGuidesAreSkipped(t *testing.T) {
	var logs bytes.Buffer
	cfg := testConfig(t)
	cfg.Logger = slog.New(slog.NewTextHandler(&logs, nil))
	plan := goldenPlan()
	plan.Overlays = append(plan.Overlays,
		FrameOverlay{X1: layout.Px(10), Y1: layout.Px(10), X2: layout.Px(390), Y2: layout.Px(290), Width: 2},
		LinesOverlay{X1: layout.Px(10), X2: layout.Px(390), Y1: layout.Px(10), Y2: layout.Px(290), Every: 0, Width: 1},
	)

	res := render(t, cfg, plan)
	if !slices.Equal(res.Skipped, []string{"lines"}) {
		t.Fatalf("expected only the lines to be skipped, got %v", res.Skipped)
	}
	if !slices.Equal(res.States, []State{Init, TextureBuilt, OverlaysApplied, TextRendered, Saved}) {
		t.Fatalf("unexpected states %v", res.States)
	}
	if len(res.Paths) != 1 || !strings.Contains(logs.String(), "overlay=lines") {
		t.Fatalf("render should save and log the skipped guide: %v %s", res.Paths, logs.String())
	}
}

func TestSnapshotTakenAtMarkedOverlay(t *testing.T) {
	frame := FrameOverlay{X1: layout.Px(10), Y1: layout.Px(10), X2: layout.Px(390), Y2: layout.Px(290), Width: 3}
	renderWith := func(at int) []byte {
		cfg := testConfig(t)
		plan := goldenPlan()
		plan.Blocks = nil
		plan.Overlays = []Overlay{frame}
		plan.Snapshot = "_blank"
		plan.SnapshotAt = at
		res := render(t, cfg, plan)
		if len(res.Paths) != 2 || filepath.Base(res.Paths[0]) != "golden_blank.png" {
			t.Fatalf("unexpected outputs %v", res.Paths)
		}
		data, _ := os.ReadFile(res.Paths[0])
		return data
	}
	before, after := renderWith(0), renderWith(-1)
	if bytes.Equal(before, after) {
		t.Fatalf("a snapshot before the frame must differ from one after it")
	}
}

func TestSeedOverride(t *testing.T) {
	read := func(seed *uint64) []byte {
		cfg := testConfig(t)
		cfg.Seed = seed
		res := render(t, cfg, goldenPlan())
		data, _ := os.ReadFile(res.Paths[0])
		return data
	}
	zero, seven := uint64(0), uint64(7)
	planSeed := read(nil)
	if !bytes.Equal(planSeed, read(&seven)) {
		t.Fatalf("explicit seed 7 must match the plan seed")
	}
	if bytes.Equal(planSeed, read(&zero)) {
		t.Fatalf("seed 0 must be honoured instead of falling back to the plan")
	}
}

func TestInvalidStainSpacingIsOptional(t *testing.T) {
	cfg := testConfig(t)
	plan := goldenPlan()
	plan.Overlays = append(plan.Overlays, StainsOverlay{Margin: DefaultMargin, Every: layout.Px(0), W: 14, H: 10})
	res := render(t, cfg, plan)
	if !slices.Equal(res.Skipped, []string{"stains"}) {
		t.Fatalf("expected stains to be skipped, got %v", res.Skipped)
	}
}

func TestInvalidDimensions(t *testing.T) {
	cfg := testConfig(t)
	cfg.Width = -1
	if _, err := NewRenderer(cfg); !errors.Is(err, errs.ErrInvalidDimension) {
		t.Fatalf("expected InvalidDimension, got %v", err)
	}

	plan := goldenPlan()
	plan.Width = 0
	r, _ := NewRenderer(testConfig(t))
	if _, err := r.Render(context.Background(), plan); !errors.Is(err, errs.ErrInvalidDimension) {
		t.Fatalf("expected InvalidDimension for empty page, got %v", err)
	}
}

func TestFromDSLLetter(t *testing.T) {
	doc, _, err := plans.Load("letter", "de")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	plan, err := FromDSL(doc)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if plan.Width != 2480 || plan.Height != 3508 {
		t.Fatalf("unexpected page size %dx%d", plan.Width, plan.Height)
	}
	if plan.Output != "altes_dokument_a4" || !slices.Equal(plan.Formats, []renderer.Format{renderer.PNG, renderer.JPEG}) {
		t.Fatalf("unexpected outputs %q %v", plan.Output, plan.Formats)
	}
	if plan.Texture.Seed != 7 || plan.Texture.Low != -12 || plan.Texture.High != 12 || plan.Texture.Blur != 0.7 {
		t.Fatalf("unexpected texture %+v", plan.Texture)
	}
	if plan.Texture.Vignette == nil || plan.Texture.Vignette.Optional() {
		t.Fatalf("vignette must be a mandatory part of the texture: %+v", plan.Texture.Vignette)
	}
	if len(plan.Overlays) != 2 || !plan.Overlays[0].Optional() || !plan.Overlays[1].Optional() {
		t.Fatalf("unexpected overlays %+v", plan.Overlays)
	}
	fold := plan.Overlays[0].(FoldOverlay)
	if fold.Color.A != 16 || fold.Width != 2 || int(fold.Y.Resolve(3508, 0)) != 3508/3 {
		t.Fatalf("unexpected fold %+v", fold)
	}
	if len(plan.Blocks) != 8 {
		t.Fatalf("expected 8 blocks, got %d", len(plan.Blocks))
	}
	title := plan.Blocks[0].(LabelBlock)
	if !title.Font.Bold || title.Font.Size != 96 || title.Align != "center" {
		t.Fatalf("unexpected title block %+v", title)
	}
	body := plan.Blocks[3].(ParagraphBlock)
	if body.Width.Resolve(2480, 0) != 1884 || body.Spacing != 0.2 || !strings.HasPrefix(body.Text, "Hochgeehrte") {
		t.Fatalf("unexpected body block %+v", body)
	}
}

func TestFromDSLErrors(t *testing.T) {
	cases := map[string]string{
		"unknown command": "plan x v1 {\n page 10x10 {\n sparkle y 3\n }\n}\n",
		"unknown font":    "plan x v1 {\n page 10x10 {\n label Missing { \"a\" }\n }\n}\n",
		"empty noise":     "plan x v1 {\n page 10x10 {\n texture low 5 high 5\n }\n}\n",
		"bad size":        "plan x v1 {\n page Letter {\n }\n}\n",
		"missing page":    "plan x v1 {\n meta {\n title: \"x\"\n }\n}\n",
		"dangling arg":    "plan x v1 {\n page 10x10 {\n texture seed\n }\n}\n",
		"numeric key":     "plan x v1 {\n page 10x10 {\n fold 3 y\n }\n}\n",
		"bad font size":   "plan x v1 {\n resources {\n font Tiny { size: 0 }\n }\n page 10x10 {\n }\n}\n",
		"bad format":      "plan x v1 {\n meta {\n formats: [\"tiff\"]\n }\n page 10x10 {\n }\n}\n",
	}
	for name, src := range cases {
		doc, err := dsl.ParseString(src)
		if err != nil {
			t.Fatalf("%s: parse: %v", name, err)
		}
		if _, err := FromDSL(doc); err == nil {
			t.Fatalf("%s: expected build error", name)
		}
	}
}

func TestFromDSLTemplateGuides(t *testing.T) {
	doc, _, err := plans.Load("template", "de")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	plan, err := FromDSL(doc)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	var names []string
	for _, o := range plan.Overlays {
		if !o.Optional() {
			t.Fatalf("overlay %s should be optional", o.Name())
		}
		names = append(names, o.Name())
	}
	if !slices.Equal(names, []string{"stains", "frame", "lines"}) {
		t.Fatalf("unexpected overlays %v", names)
	}
	if plan.SnapshotAt != 1 || plan.Snapshot != "_blank" {
		t.Fatalf("snapshot must be taken before the guides, got %d %q", plan.SnapshotAt, plan.Snapshot)
	}
	if len(plan.Blocks) != 3 {
		t.Fatalf("only the placeholder labels remain blocks, got %d", len(plan.Blocks))
	}

	twice := "plan x v1 {\n page 10x10 {\n snapshot\n snapshot\n }\n}\n"
	doc, err = dsl.ParseString(twice)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := FromDSL(doc); err == nil {
		t.Fatalf("a second snapshot marker must be rejected")
	}
}

func TestTemplateSavesBlankFirst(t *testing.T) {
	cfg := testConfig(t)
	cfg.Width, cfg.Height = 248, 351
	paths, err := RenderTemplate(context.Background(), cfg)
	if err != nil {
		t.Fatalf("template: %v", err)
	}
	var names []string
	for _, p := range paths {
		names = append(names, filepath.Base(p))
	}
	if !slices.Equal(names, []string{"altes_dokument_a4_blank.png", "altes_dokument_a4_template.png"}) {
		t.Fatalf("unexpected outputs %v", names)
	}
	blank, _ := os.ReadFile(paths[0])
	templ, _ := os.ReadFile(paths[1])
	if bytes.Equal(blank, templ) {
		t.Fatalf("template must differ from the blank snapshot")
	}
}

func TestBuiltinDocuments(t *testing.T) {
	cases := []struct {
		locale string
		render func(context.Context, Config) ([]string, error)
		want   string
	}{
		{"de", RenderLetter, "altes_dokument_a4.png"},
		{"en", RenderLetter, "old_document_a4.png"},
		{"de", RenderBlank, "altes_dokument_a4_blank.png"},
		{"de", RenderSummary, "zusammenfassung_a4.png"},
	}
	for _, tc := range cases {
		cfg := testConfig(t)
		cfg.Locale = tc.locale
		cfg.Width, cfg.Height = 248, 351
		paths, err := tc.render(context.Background(), cfg)
		if err != nil {
			t.Fatalf("%s: %v", tc.want, err)
		}
		if len(paths) != 1 || filepath.Base(paths[0]) != tc.want {
			t.Fatalf("unexpected outputs %v, want %s", paths, tc.want)
		}
	}
}

func TestRenderPlanFileWithBaseName(t *testing.T) {
	dir := t.TempDir()
	src := `plan custom v1 {
  meta {
    output: "ignored"
    formats: ["png", "pdf"]
  }
  resources {
    font Body { size: 20 }
  }
  page 200x120 {
    texture seed 3
    paragraph Body x 10 y 10 width 180 { "Ort: ${place}" }
  }
}
`
	path := filepath.Join(dir, "custom.plan")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("write plan: %v", err)
	}
	cfg := testConfig(t)
	cfg.Formats = nil
	cfg.BaseName = "eigener_brief"
	cfg.Place = "Schwarzatal"
	paths, err := RenderPlanFile(context.Background(), path, cfg)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if len(paths) != 2 || filepath.Base(paths[0]) != "eigener_brief.png" || filepath.Base(paths[1]) != "eigener_brief.pdf" {
		t.Fatalf("unexpected outputs %v", paths)
	}
	if _, err := RenderPlanFile(context.Background(), filepath.Join(dir, "missing.plan"), cfg); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	raw := `{"output_dir": "out", "seed": 99, "locale": "en", "formats": ["jpg"], "jpeg_quality": 90, "date": "1925-03-07", "place": "Jena"}`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := LoadConfig(path, DefaultConfig())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.OutputDir != "out" || cfg.Seed == nil || *cfg.Seed != 99 || cfg.Locale != "en" || cfg.JPEGQuality != 90 || cfg.Place != "Jena" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if !slices.Equal(cfg.Formats, []renderer.Format{renderer.JPEG}) || cfg.Date.Year() != 1925 {
		t.Fatalf("unexpected formats/date %+v", cfg)
	}

	bad := filepath.Join(dir, "bad.json")
	os.WriteFile(bad, []byte(`{"jpeg_quality": 400}`), 0o644)
	if _, err := LoadConfig(bad, DefaultConfig()); !errors.Is(err, errs.ErrEncodingFailure) {
		t.Fatalf("expected EncodingFailure for quality 400, got %v", err)
	}
}
