package layout

import (
	"math"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/ByLCY/parchment/errs"
)

// ReferenceAlphabet 是估算平均字宽所用的 52 个拉丁字母。
const ReferenceAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// MinColumns 是列宽预算的下限。
const MinColumns = 20

// Face 是排版所需的字体度量。
type Face interface {
	// Measure 返回文本的像素宽度，同一输入必须返回同一结果。
	Measure(text string) float64
	// PixelSize 返回字号（像素）。
	PixelSize() int
}

// Line 是折行后的一行。Blank 行只推进游标，不绘制字形。
type Line struct {
	Text  string
	Words []string
	Blank bool
}

// AverageGlyphWidth 返回参考字母表的平均字宽，至少 1 px。
func AverageGlyphWidth(face Face) float64 {
	return math.Max(face.Measure(ReferenceAlphabet)/float64(len(ReferenceAlphabet)), 1)
}

// ColumnsFor 用给定的平均字宽把像素预算换算为列数。
func ColumnsFor(avgGlyphWidth, maxWidthPx float64) (int, error) {
	if maxWidthPx < 1 {
		return 0, errs.Errorf(errs.InvalidDimension, "layout.Columns", "宽度预算必须 >= 1px: %g", maxWidthPx)
	}
	avg := math.Max(avgGlyphWidth, 1)
	return max(int(math.Floor(maxWidthPx/avg)), MinColumns), nil
}

// Columns 计算 face 在 maxWidthPx 内的字符列预算。
func Columns(face Face, maxWidthPx float64) (int, error) {
	if face == nil {
		return 0, errs.Errorf(errs.ResourceUnavailable, "layout.Columns", "缺少字体")
	}
	return ColumnsFor(AverageGlyphWidth(face), maxWidthPx)
}

// lineBreaks 把 \r\n 与单独的 \r 统一为 \n。
var lineBreaks = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// Wrap 先按显式换行拆段，再在每段内贪心地按整词装填不超过 cols 个字符的行。
// 空白段保留为 Blank 行；超过预算的单词独占一行且不拆开；空字符串不产生任何行。
// 单词原样输出，宽度按 NFC 形式的字符数计。
func Wrap(text string, cols int) []Line {
	if text == "" {
		return nil
	}
	if cols < 1 {
		cols = 1
	}
	text = lineBreaks.Replace(text)

	var lines []Line
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, Line{Blank: true})
			continue
		}
		lines = append(lines, wrapParagraph(words, cols)...)
	}
	return lines
}

func wrapParagraph(words []string, cols int) []Line {
	var (
		lines   []Line
		current []string
		width   int
	)
	emit := func() {
		if len(current) == 0 {
			return
		}
		lines = append(lines, Line{Text: strings.Join(current, " "), Words: current})
		current = nil
		width = 0
	}
	for _, w := range words {
		wl := runeWidth(w)
		if len(current) > 0 && width+1+wl > cols {
			emit()
		}
		if len(current) == 0 {
			current = []string{w}
			width = wl
			continue
		}
		current = append(current, w)
		width += 1 + wl
	}
	emit()
	return lines
}

func runeWidth(w string) int {
	return utf8.RuneCountInString(norm.NFC.String(w))
}

// Advance 返回每行的纵向推进量：round(pixelSize × (1 + spacing))。
func Advance(pixelSize int, spacing float64) int {
	return int(math.Round(float64(pixelSize) * (1 + spacing)))
}
