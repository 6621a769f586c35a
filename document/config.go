package document

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/ByLCY/parchment/errs"
	"github.com/ByLCY/parchment/fonts"
	"github.com/ByLCY/parchment/renderer"
)

// Config 是一次渲染的不可变配置。零值字段表示沿用页面计划中的设置。
type Config struct {
	OutputDir string
	// BaseName 覆盖计划中的输出文件名（不含后缀与扩展名）。
	BaseName string
	// Width/Height 覆盖计划中的页面像素尺寸，0 表示沿用计划。
	Width  int
	Height int
	// Seed 非空时覆盖底纹的随机种子。
	Seed   *uint64
	Locale string
	// Formats 覆盖计划中的输出格式。
	Formats     []renderer.Format
	JPEGQuality int
	Date        time.Time
	Place       string
	// Data 为模板提供额外的 ${...} 数据。
	Data           map[string]any
	FontCandidates []fonts.Candidate
	// FontLocator 非空时优先于 FontCandidates。
	FontLocator fonts.Locator
	Logger      *slog.Logger
}

// DefaultConfig returns the configuration used by the CLI when no flags are set.
func DefaultConfig() Config {
	return Config{
		OutputDir:      "output",
		Locale:         "de",
		JPEGQuality:    renderer.DefaultJPEGQuality,
		Date:           time.Now(),
		FontCandidates: fonts.DefaultCandidates,
	}
}

// Validate 检查尺寸与编码参数。
func (c Config) Validate() error {
	if c.Width < 0 || c.Height < 0 {
		return errs.Errorf(errs.InvalidDimension, "document.Config", "页面尺寸不能为负: %dx%d", c.Width, c.Height)
	}
	if c.JPEGQuality < 0 || c.JPEGQuality > 100 {
		return errs.Errorf(errs.EncodingFailure, "document.Config", "JPEG 质量必须在 1..100 之间: %d", c.JPEGQuality)
	}
	return nil
}

func (c Config) locator() fonts.Locator {
	if c.FontLocator != nil {
		return c.FontLocator
	}
	return fonts.DefaultLocator(c.FontCandidates)
}

func (c Config) date() time.Time {
	if c.Date.IsZero() {
		return time.Now()
	}
	return c.Date
}

type fileConfig struct {
	OutputDir   string            `json:"output_dir"`
	BaseName    string            `json:"base_name"`
	Width       int               `json:"width"`
	Height      int               `json:"height"`
	Seed        *uint64           `json:"seed"`
	Locale      string            `json:"locale"`
	Formats     []string          `json:"formats"`
	JPEGQuality int               `json:"jpeg_quality"`
	Date        string            `json:"date"`
	Place       string            `json:"place"`
	Data        map[string]any    `json:"data"`
	Fonts       []fonts.Candidate `json:"fonts"`
}

// LoadConfig 读取 JSON 配置文件，并把其中出现的字段叠加到 base 上返回新的配置。
func LoadConfig(path string, base Config) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("读取配置文件 %s 失败: %w", path, err)
	}
	var fc fileConfig
	if err := json.Unmarshal(raw, &fc); err != nil {
		return base, fmt.Errorf("解析配置文件 %s 失败: %w", path, err)
	}
	return fc.apply(base)
}

func (fc fileConfig) apply(cfg Config) (Config, error) {
	if fc.OutputDir != "" {
		cfg.OutputDir = fc.OutputDir
	}
	if fc.BaseName != "" {
		cfg.BaseName = fc.BaseName
	}
	if fc.Width != 0 {
		cfg.Width = fc.Width
	}
	if fc.Height != 0 {
		cfg.Height = fc.Height
	}
	if fc.Seed != nil {
		cfg.Seed = fc.Seed
	}
	if fc.Locale != "" {
		cfg.Locale = fc.Locale
	}
	if len(fc.Formats) > 0 {
		formats, err := ParseFormats(fc.Formats)
		if err != nil {
			return cfg, err
		}
		cfg.Formats = formats
	}
	if fc.JPEGQuality != 0 {
		cfg.JPEGQuality = fc.JPEGQuality
	}
	if fc.Date != "" {
		d, err := time.Parse(time.DateOnly, fc.Date)
		if err != nil {
			return cfg, fmt.Errorf("日期 %q 格式应为 YYYY-MM-DD: %w", fc.Date, err)
		}
		cfg.Date = d
	}
	if fc.Place != "" {
		cfg.Place = fc.Place
	}
	if len(fc.Data) > 0 {
		cfg.Data = fc.Data
	}
	if len(fc.Fonts) > 0 {
		cfg.FontCandidates = fc.Fonts
	}
	return cfg, cfg.Validate()
}

// ParseFormats 解析格式名列表。
func ParseFormats(names []string) ([]renderer.Format, error) {
	out := make([]renderer.Format, 0, len(names))
	for _, n := range names {
		f, err := renderer.ParseFormat(n)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}
