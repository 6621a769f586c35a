// Package fonts 按像素字号与字重解析字体，并提供稳定的字形宽度测量。
package fonts

import (
	"fmt"
	"os"

	"github.com/ByLCY/parchment/errs"
)

// Source 是解析出的字体数据及其来源描述。
type Source struct {
	Name string
	Data []byte
	Bold bool
}

// Locator 是字体解析策略：给定字重返回可用的字体数据。
type Locator interface {
	Locate(bold bool) (Source, error)
}

// Candidate 是按顺序探测的系统字体路径。
type Candidate struct {
	Path string `json:"path"`
	Bold bool   `json:"bold"`
}

// DefaultCandidates 是常见 Linux 发行版上的衬线字体。
var DefaultCandidates = []Candidate{
	{Path: "/usr/share/fonts/truetype/dejavu/DejaVuSerif.ttf", Bold: false},
	{Path: "/usr/share/fonts/truetype/dejavu/DejaVuSerif-Bold.ttf", Bold: true},
	{Path: "/usr/share/fonts/truetype/liberation/LiberationSerif-Regular.ttf", Bold: false},
	{Path: "/usr/share/fonts/truetype/liberation/LiberationSerif-Bold.ttf", Bold: true},
}

// PathLocator 依次探测候选路径，第一个字重匹配且可读取的文件胜出。
type PathLocator struct {
	Candidates []Candidate
	// ReadFile 默认为 os.ReadFile，测试中可替换。
	ReadFile func(path string) ([]byte, error)
}

// Locate implements Locator.
func (l PathLocator) Locate(bold bool) (Source, error) {
	read := l.ReadFile
	if read == nil {
		read = os.ReadFile
	}
	for _, c := range l.Candidates {
		if c.Bold != bold {
			continue
		}
		data, err := read(c.Path)
		if err != nil || len(data) == 0 {
			continue
		}
		return Source{Name: c.Path, Data: data, Bold: bold}, nil
	}
	return Source{}, errs.Errorf(errs.ResourceUnavailable, "fonts.PathLocator", "没有可用的候选字体 (bold=%v)", bold)
}

type builtinLocator struct{}

// Builtin 返回内置的 Go 字体，从不失败。
var Builtin Locator = builtinLocator{}

func (builtinLocator) Locate(bold bool) (Source, error) {
	name := BuiltinName(bold)
	data, err := Load(name)
	if err != nil {
		// 内置表是编译期常量，走到这里说明构建有问题
		panic(fmt.Sprintf("fonts: 内置字体缺失: %v", err))
	}
	return Source{Name: "embed:" + name, Data: data, Bold: bold}, nil
}

// Chain 依次尝试各个策略，全部失败时回退到 Builtin。
type Chain []Locator

// Locate implements Locator; it never returns an error.
func (c Chain) Locate(bold bool) (Source, error) {
	for _, l := range c {
		if l == nil {
			continue
		}
		if src, err := l.Locate(bold); err == nil {
			return src, nil
		}
	}
	return Builtin.Locate(bold)
}

// DefaultLocator 探测给定候选（为空时用 DefaultCandidates），最后回退到内置字体。
func DefaultLocator(candidates []Candidate) Locator {
	if len(candidates) == 0 {
		candidates = DefaultCandidates
	}
	return Chain{PathLocator{Candidates: candidates}}
}
