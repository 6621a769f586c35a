package dsl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// Document 是一个页面计划文件：plan <name> <version> { meta / resources / page }。
type Document struct {
	Pos      lexer.Position `parser:""`
	Name     string         `parser:"Newline* 'plan' @Ident"`
	Version  string         `parser:"@Ident '{' Newline*"`
	Sections []*Section     `parser:"( @@ Newline* )* '}' Newline*"`
}

// Section 是顶层段落之一。
type Section struct {
	Meta      *MetaSection      `parser:"  'meta' @@"`
	Resources *ResourcesSection `parser:"| 'resources' @@"`
	Page      *PageSection      `parser:"| 'page' @@"`
}

// Kind returns the section keyword.
func (s *Section) Kind() string {
	switch {
	case s == nil:
		return "unknown"
	case s.Meta != nil:
		return "meta"
	case s.Resources != nil:
		return "resources"
	case s.Page != nil:
		return "page"
	}
	return "unknown"
}

// MetaSection 是 key: value 形式的文档信息。
type MetaSection struct {
	Entries []*Assignment `parser:"'{' Newline* ( @@ ( ';' | Newline )* )* '}'"`
}

// ResourcesSection 声明具名字体与颜色。
type ResourcesSection struct {
	Items []*Resource `parser:"'{' Newline* ( @@ ( ';' | Newline )* )* '}'"`
}

// Resource 是 font 或 color 声明。
type Resource struct {
	Font  *FontResource  `parser:"  'font' @@"`
	Color *ColorResource `parser:"| 'color' @@"`
}

// FontResource: font Title { size: 96 weight: bold }
type FontResource struct {
	Pos   lexer.Position `parser:""`
	Name  string         `parser:"@Ident"`
	Props []*Assignment  `parser:"'{' Newline* ( @@ ( ';' | Newline )* )* '}'"`
}

// ColorResource: color Ink = #1E1914
type ColorResource struct {
	Pos   lexer.Position `parser:""`
	Name  string         `parser:"@Ident '='?"`
	Value string         `parser:"@Color"`
}

// PageSection 的尺寸可以是像素 (2480x3508) 或纸张名 (A4)，后面可跟 landscape 等选项。
type PageSection struct {
	Size     string     `parser:"@(Size | Ident)"`
	Options  []string   `parser:"@Ident*"`
	Commands []*Command `parser:"'{' Newline* ( @@ ( ';' | Newline )* )* '}'"`
}

// HasOption reports whether the page header carries the given option.
func (p *PageSection) HasOption(name string) bool {
	for _, o := range p.Options {
		if strings.EqualFold(o, name) {
			return true
		}
	}
	return false
}

// Command 是页面中的一条指令：名称、参数，以及可选的 { "文本" ... } 正文。
type Command struct {
	Pos  lexer.Position `parser:""`
	Name string         `parser:"@Ident"`
	Args []*Arg         `parser:"@@*"`
	Body *TextBody      `parser:"@@?"`
}

// Text 拼接正文中的全部字符串。
func (c *Command) Text() string {
	if c.Body == nil {
		return ""
	}
	var b strings.Builder
	for _, l := range c.Body.Lines {
		b.WriteString(string(l.Value))
	}
	return b.String()
}

// TextBody 是一组相邻的字符串字面量，按原样拼接。
type TextBody struct {
	Lines []*TextLine `parser:"'{' Newline* ( @@ Newline* )* '}'"`
}

// TextLine 是正文中的一个字符串。
type TextLine struct {
	Value StringLiteral `parser:"@String"`
}

// Arg 是指令参数中的单个记号。
type Arg struct {
	Pos    lexer.Position `parser:""`
	Ident  *string        `parser:"  @Ident"`
	Number *string        `parser:"| @Number"`
	Color  *string        `parser:"| @Color"`
	String *StringLiteral `parser:"| @String"`
}

// IsIdent reports whether the argument is a bare identifier.
func (a *Arg) IsIdent() bool { return a != nil && a.Ident != nil }

// Text 返回参数的文本形式；字符串已去掉引号。
func (a *Arg) Text() string {
	switch {
	case a == nil:
		return ""
	case a.Ident != nil:
		return *a.Ident
	case a.Number != nil:
		return *a.Number
	case a.Color != nil:
		return *a.Color
	case a.String != nil:
		return string(*a.String)
	}
	return ""
}

// Assignment 是 key: value。
type Assignment struct {
	Pos   lexer.Position `parser:""`
	Key   string         `parser:"@Ident ':'"`
	Value *Value         `parser:"@@"`
}

// Value 是标量或 [ ... ] 列表。
type Value struct {
	String *StringLiteral `parser:"  @String"`
	Number *string        `parser:"| @Number"`
	Color  *string        `parser:"| @Color"`
	Ident  *string        `parser:"| @Ident"`
	List   *List          `parser:"| @@"`
}

// List 的元素之间可用逗号或换行分隔。
type List struct {
	Items []*Value `parser:"'[' ( ',' | Newline )* ( @@ ( ',' | Newline )* )* ']'"`
}

// Text 返回标量的文本形式，列表返回空串。
func (v *Value) Text() string {
	switch {
	case v == nil:
		return ""
	case v.String != nil:
		return string(*v.String)
	case v.Number != nil:
		return *v.Number
	case v.Color != nil:
		return *v.Color
	case v.Ident != nil:
		return *v.Ident
	}
	return ""
}

// Strings 把列表展开为字符串；标量视为单元素列表，空值被丢弃。
func (v *Value) Strings() []string {
	if v == nil {
		return nil
	}
	if v.List == nil {
		if s := v.Text(); s != "" {
			return []string{s}
		}
		return nil
	}
	out := make([]string, 0, len(v.List.Items))
	for _, item := range v.List.Items {
		out = append(out, item.Strings()...)
	}
	return out
}

// StringLiteral 在捕获时按 Go 语法去掉引号并处理转义。
type StringLiteral string

// Capture implements participle.Capture.
func (s *StringLiteral) Capture(values []string) error {
	if len(values) == 0 {
		return fmt.Errorf("字符串字面量为空")
	}
	val, err := strconv.Unquote(values[0])
	if err != nil {
		return fmt.Errorf("字符串 %s 无法解析: %w", values[0], err)
	}
	*s = StringLiteral(val)
	return nil
}
