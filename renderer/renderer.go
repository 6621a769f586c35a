package renderer

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/ByLCY/parchment/errs"
)

// Renderer 将最终位图编码为输出文件内容，例如 PNG、JPEG 或 PDF。
// Render 返回生成的二进制数据以及可能的错误。
type Renderer interface {
	Render(img image.Image) ([]byte, error)
}

// Format 是输出文件格式。
type Format string

const (
	PNG  Format = "png"
	JPEG Format = "jpeg"
	PDF  Format = "pdf"
)

// Ext 返回带点的文件扩展名。
func (f Format) Ext() string {
	switch f {
	case JPEG:
		return ".jpg"
	default:
		return "." + string(f)
	}
}

// ParseFormat 接受 png / jpg / jpeg / pdf（大小写不敏感）。
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "png":
		return PNG, nil
	case "jpg", "jpeg":
		return JPEG, nil
	case "pdf":
		return PDF, nil
	default:
		return "", errs.Errorf(errs.EncodingFailure, "renderer.ParseFormat", "不支持的输出格式 %q", s)
	}
}

// FormatFromPath 按扩展名判断格式。
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

// Set 按格式选择 Renderer。
type Set map[Format]Renderer

// Save 按 path 的扩展名编码 img，并原子地写入。
func (s Set) Save(path string, img image.Image) error {
	f, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	r, ok := s[f]
	if !ok {
		return errs.Errorf(errs.EncodingFailure, "renderer.Save", "没有可用于 %s 的编码器", f)
	}
	data, err := r.Render(img)
	if err != nil {
		return errs.E(errs.EncodingFailure, "renderer.Save", fmt.Errorf("编码 %s 失败: %w", path, err))
	}
	return WriteFile(path, data)
}

// WriteFile 先写入同目录下的临时文件再重命名，失败时不会留下残缺的目标文件。
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errs.E(errs.EncodingFailure, "renderer.WriteFile", fmt.Errorf("创建输出目录失败: %w", err))
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errs.E(errs.EncodingFailure, "renderer.WriteFile", err)
	}
	tmpName := tmp.Name()
	cleanup := func(err error) error {
		tmp.Close()
		os.Remove(tmpName)
		return errs.E(errs.EncodingFailure, "renderer.WriteFile", fmt.Errorf("写入 %s 失败: %w", path, err))
	}
	if _, err := tmp.Write(data); err != nil {
		return cleanup(err)
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(err)
	}
	if err := tmp.Close(); err != nil {
		return cleanup(err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return errs.E(errs.EncodingFailure, "renderer.WriteFile", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return errs.E(errs.EncodingFailure, "renderer.WriteFile", fmt.Errorf("重命名 %s 失败: %w", path, err))
	}
	return nil
}
