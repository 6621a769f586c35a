package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/tanema/gween/ease"

	"github.com/ByLCY/parchment/basemap"
	"github.com/ByLCY/parchment/clip"
	"github.com/ByLCY/parchment/document"
	"github.com/ByLCY/parchment/internal/logging"
)

const usage = `用法: parchment <命令> [参数]

命令:
  letter     旧式书信
  blank      空白羊皮纸
  template   空白页与带横线的模板
  summary    分节说明页
  plan       渲染自定义计划文件 (-in)
  map        带卫星底图的地图页
  clip       黄昏废墟短片 (GIF 或 PNG 帧序列)
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	paths, err := run(ctx, os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		log.Fatalf("生成失败: %v", err)
	}
	for _, p := range paths {
		fmt.Printf("已生成：%s\n", p)
	}
}

// run 解析子命令并执行，返回写出的文件。
func run(ctx context.Context, args []string, stderr io.Writer) ([]string, error) {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return nil, flag.ErrHelp
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "letter", "blank", "template", "summary", "plan":
		return runDocument(ctx, cmd, rest, stderr)
	case "map":
		return runMap(ctx, rest, stderr)
	case "clip":
		return runClip(ctx, rest, stderr)
	case "-h", "-help", "--help", "help":
		fmt.Fprint(stderr, usage)
		return nil, flag.ErrHelp
	default:
		fmt.Fprint(stderr, usage)
		return nil, fmt.Errorf("未知命令 %q", cmd)
	}
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	l := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	logging.SetLogger(l)
	return l
}

func runDocument(ctx context.Context, cmd string, args []string, stderr io.Writer) ([]string, error) {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "JSON 配置文件路径")
	input := fs.String("in", "", "计划文件路径（仅 plan 命令）")
	outDir := fs.String("out", "", "输出目录")
	name := fs.String("name", "", "输出文件名（不含扩展名）")
	width := fs.Int("width", 0, "页面宽度（像素），0 表示沿用计划")
	height := fs.Int("height", 0, "页面高度（像素），0 表示沿用计划")
	seed := fs.Uint64("seed", 0, "底纹随机种子，未给出时沿用计划")
	locale := fs.String("locale", "", "语言，例如 de 或 en")
	formats := fs.String("formats", "", "输出格式，逗号分隔，例如 png,jpeg,pdf")
	quality := fs.Int("quality", 0, "JPEG 质量 1..100")
	date := fs.String("date", "", "文档日期 YYYY-MM-DD，默认今天")
	place := fs.String("place", "", "地点，用于 ${place}")
	dataJSON := fs.String("data", "", "绑定到计划的 JSON 数据")
	verbose := fs.Bool("v", false, "输出调试日志")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg := document.DefaultConfig()
	cfg.Logger = newLogger(stderr, *verbose)
	if *configPath != "" {
		loaded, err := document.LoadConfig(*configPath, cfg)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	var flagErr error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "out":
			cfg.OutputDir = *outDir
		case "name":
			cfg.BaseName = *name
		case "width":
			cfg.Width = *width
		case "height":
			cfg.Height = *height
		case "seed":
			cfg.Seed = seed
		case "locale":
			cfg.Locale = *locale
		case "quality":
			cfg.JPEGQuality = *quality
		case "place":
			cfg.Place = *place
		case "formats":
			parsed, err := document.ParseFormats(splitList(*formats))
			if err != nil {
				flagErr = err
				return
			}
			cfg.Formats = parsed
		case "date":
			d, err := time.Parse(time.DateOnly, *date)
			if err != nil {
				flagErr = fmt.Errorf("日期 %q 格式应为 YYYY-MM-DD: %w", *date, err)
				return
			}
			cfg.Date = d
		case "data":
			var data map[string]any
			if err := json.Unmarshal([]byte(*dataJSON), &data); err != nil {
				flagErr = fmt.Errorf("解析 data JSON 失败: %w", err)
				return
			}
			cfg.Data = data
		}
	})
	if flagErr != nil {
		return nil, flagErr
	}

	switch cmd {
	case "letter":
		return document.RenderLetter(ctx, cfg)
	case "blank":
		return document.RenderBlank(ctx, cfg)
	case "template":
		return document.RenderTemplate(ctx, cfg)
	case "summary":
		return document.RenderSummary(ctx, cfg)
	default:
		if *input == "" {
			return nil, fmt.Errorf("plan 命令需要 -in 参数")
		}
		return document.RenderPlanFile(ctx, *input, cfg)
	}
}

func runMap(ctx context.Context, args []string, stderr io.Writer) ([]string, error) {
	defaults := basemap.DefaultOptions()
	fs := flag.NewFlagSet("map", flag.ContinueOnError)
	fs.SetOutput(stderr)
	place := fs.String("place", defaults.Place, "地图区域（通过 Nominatim 地理编码）")
	size := fs.String("size", "14x20", "页面尺寸（英寸），例如 14x20")
	dpi := fs.Float64("dpi", defaults.DPI, "分辨率 DPI")
	buffer := fs.Float64("buffer-m", 0, "区域四周额外留出的米数")
	title := fs.String("title", defaults.Title, "标题")
	outDir := fs.String("out", defaults.OutputDir, "输出目录")
	name := fs.String("name", defaults.BaseName, "输出文件名（不含扩展名）")
	verbose := fs.Bool("v", false, "输出调试日志")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	wIn, hIn, err := parseSize(*size)
	if err != nil {
		return nil, err
	}

	opts := defaults
	opts.Place = *place
	opts.DPI = *dpi
	opts.Width = int(wIn * *dpi)
	opts.Height = int(hIn * *dpi)
	opts.BufferM = *buffer
	opts.Title = *title
	opts.OutputDir = *outDir
	opts.BaseName = *name
	opts.Logger = newLogger(stderr, *verbose)
	res, err := basemap.Render(ctx, opts)
	return res.Paths, err
}

func runClip(ctx context.Context, args []string, stderr io.Writer) ([]string, error) {
	defaults := clip.DefaultOptions()
	fs := flag.NewFlagSet("clip", flag.ContinueOnError)
	fs.SetOutput(stderr)
	out := fs.String("out", "output/clip_stadt_neutral.gif", "GIF 输出路径")
	framesDir := fs.String("frames", "", "改为把 PNG 帧写入该目录")
	width := fs.Int("width", defaults.Width, "画面宽度")
	height := fs.Int("height", defaults.Height, "画面高度")
	fps := fs.Int("fps", defaults.FPS, "帧率")
	duration := fs.Duration("duration", defaults.Duration, "时长")
	easing := fs.String("ease", "linear", "镜头速度曲线: linear 或 sine")
	verbose := fs.Bool("v", false, "输出调试日志")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	opts := defaults
	opts.Width, opts.Height = *width, *height
	opts.FPS, opts.Duration = *fps, *duration
	opts.Logger = newLogger(stderr, *verbose)
	switch *easing {
	case "linear":
		opts.Ease = ease.Linear
	case "sine":
		opts.Ease = ease.InOutSine
	default:
		return nil, fmt.Errorf("未知的速度曲线 %q", *easing)
	}
	scene, err := clip.NewScene(opts)
	if err != nil {
		return nil, err
	}
	if *framesDir != "" {
		return scene.WriteFrames(ctx, *framesDir, "frame")
	}
	if err := scene.WriteGIF(ctx, *out); err != nil {
		return nil, err
	}
	return []string{*out}, nil
}

// parseSize 解析 "14x20" 形式的英寸尺寸。
func parseSize(s string) (float64, float64, error) {
	w, h, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return 0, 0, fmt.Errorf("尺寸 %q 格式应为 14x20", s)
	}
	wf, err1 := strconv.ParseFloat(strings.TrimSpace(w), 64)
	hf, err2 := strconv.ParseFloat(strings.TrimSpace(h), 64)
	if err1 != nil || err2 != nil || wf <= 0 || hf <= 0 {
		return 0, 0, fmt.Errorf("尺寸 %q 格式应为 14x20", s)
	}
	return wf, hf, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
