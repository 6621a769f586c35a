// Package binding 把页面计划中的 ${...} 占位符替换为渲染数据。
package binding

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// placeholder 匹配 ${path} 与 ${path|默认值}。
var placeholder = regexp.MustCompile(`\$\{([^}|]*)(?:\|([^}]*))?\}`)

// Interpolate 替换 text 中的占位符。路径形如 user.name 或 places[1]；
// 找不到时使用 | 之后的默认值，没有默认值则原样保留占位符。
func Interpolate(text string, data any) string {
	if data == nil {
		return text
	}
	return placeholder.ReplaceAllStringFunc(text, func(match string) string {
		m := placeholder.FindStringSubmatch(match)
		path := strings.TrimSpace(m[1])
		if path == "" {
			return match
		}
		if v, ok := Lookup(data, path); ok {
			return format(v)
		}
		if strings.Contains(match, "|") {
			return m[2]
		}
		return match
	})
}

// Lookup 按点分路径在 data 中取值，支持 map[string]any、map[string]string 与切片下标。
func Lookup(data any, path string) (any, bool) {
	cur := data
	for _, seg := range strings.Split(path, ".") {
		key, rest, _ := strings.Cut(seg, "[")
		if key != "" {
			next, ok := field(cur, key)
			if !ok {
				return nil, false
			}
			cur = next
		}
		if rest == "" {
			continue
		}
		for _, idx := range strings.Split(strings.TrimSuffix(rest, "]"), "][") {
			i, err := strconv.Atoi(idx)
			if err != nil {
				return nil, false
			}
			next, ok := element(cur, i)
			if !ok {
				return nil, false
			}
			cur = next
		}
	}
	return cur, true
}

func field(v any, key string) (any, bool) {
	switch m := v.(type) {
	case map[string]any:
		out, ok := m[key]
		return out, ok
	case map[string]string:
		out, ok := m[key]
		return out, ok
	}
	return nil, false
}

func element(v any, i int) (any, bool) {
	switch s := v.(type) {
	case []any:
		if i >= 0 && i < len(s) {
			return s[i], true
		}
	case []string:
		if i >= 0 && i < len(s) {
			return s[i], true
		}
	}
	return nil, false
}

// format 输出不带多余小数位的数字（JSON 数字解码为 float64），日期按 YYYY-MM-DD。
func format(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		return x.Format(time.DateOnly)
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}
