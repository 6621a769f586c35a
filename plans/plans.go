// Package plans 内置各类文档的页面计划，并按语言环境选择对应版本。
package plans

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"

	"github.com/ByLCY/parchment/dsl"
	"github.com/ByLCY/parchment/errs"
)

//go:embed files/*.plan
var files embed.FS

// Supported 是内置计划提供的语言，首项为默认语言。
var Supported = []language.Tag{language.German, language.English}

var matcher = language.NewMatcher(Supported)

// Names 返回全部内置计划名称（去掉语言后缀）。
func Names() []string {
	entries, _ := fs.ReadDir(files, "files")
	seen := map[string]bool{}
	var names []string
	for _, e := range entries {
		name := strings.TrimSuffix(e.Name(), ".plan")
		if i := strings.IndexByte(name, '.'); i >= 0 {
			name = name[:i]
		}
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Match 把任意 BCP 47 标签映射到受支持的语言；无法解析时回退到德语。
func Match(locale string) language.Tag {
	tag, err := language.Parse(locale)
	if err != nil || locale == "" {
		return Supported[0]
	}
	_, idx, _ := matcher.Match(tag)
	return Supported[idx]
}

// Source 返回名为 name 的计划源文本。优先使用 name.<语言>.plan，其次是不分语言的 name.plan。
func Source(name, locale string) ([]byte, language.Tag, error) {
	tag := Match(locale)
	base, _ := tag.Base()
	candidates := []string{
		fmt.Sprintf("%s.%s.plan", name, base),
		fmt.Sprintf("%s.%s.plan", name, Supported[0]),
		name + ".plan",
	}
	for _, c := range candidates {
		data, err := files.ReadFile(path.Join("files", c))
		if err == nil {
			return data, tag, nil
		}
	}
	return nil, tag, errs.Errorf(errs.ResourceUnavailable, "plans.Source", "没有名为 %q 的内置计划", name)
}

// Load 读取并解析内置计划。
func Load(name, locale string) (*dsl.Document, language.Tag, error) {
	data, tag, err := Source(name, locale)
	if err != nil {
		return nil, tag, err
	}
	doc, err := dsl.ParseString(string(data))
	if err != nil {
		return nil, tag, fmt.Errorf("解析内置计划 %s 失败: %w", name, err)
	}
	return doc, tag, nil
}
