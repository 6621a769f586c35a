package binding

import (
	"maps"
	"time"

	"golang.org/x/text/language"
)

// DateLayout 返回给定语言环境下的日期格式。
func DateLayout(tag language.Tag) string {
	base, _ := tag.Base()
	switch base.String() {
	case "de":
		return "02.01.2006"
	case "en":
		return "January 2, 2006"
	default:
		return "2006-01-02"
	}
}

// RenderData 组装模板可引用的数据：${year}、${date}、${place}，extra 中的键覆盖默认值。
func RenderData(date time.Time, tag language.Tag, place string, extra map[string]any) map[string]any {
	data := map[string]any{
		"year":   date.Year(),
		"date":   date.Format(DateLayout(tag)),
		"place":  place,
		"locale": tag.String(),
	}
	maps.Copy(data, extra)
	return data
}
