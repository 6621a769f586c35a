package layout

import (
	"fmt"
	"strconv"
	"strings"
)

// CoordKind 区分页面坐标的书写方式。
type CoordKind int

const (
	CoordPixels   CoordKind = iota // 120
	CoordPercent                   // 12.5%
	CoordRelative                  // +60 / -20，相对当前游标
)

// Coord 保留作者书写的坐标值与单位，解析推迟到知道页面尺寸与游标时。
type Coord struct {
	Value float64
	Kind  CoordKind
}

// Px / Pct / Rel 是构造 Coord 的便捷函数。
func Px(v float64) Coord  { return Coord{Value: v, Kind: CoordPixels} }
func Pct(v float64) Coord { return Coord{Value: v, Kind: CoordPercent} }
func Rel(v float64) Coord { return Coord{Value: v, Kind: CoordRelative} }

// ParseCoord 解析 "120"、"12.5%"、"+60"、"-20"。
func ParseCoord(value string) (Coord, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return Coord{}, fmt.Errorf("坐标为空")
	}
	kind := CoordPixels
	switch {
	case strings.HasSuffix(v, "%"):
		kind = CoordPercent
		v = strings.TrimSuffix(v, "%")
	case strings.HasPrefix(v, "+"), strings.HasPrefix(v, "-"):
		kind = CoordRelative
	}
	v = strings.TrimSuffix(v, "px")
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return Coord{}, fmt.Errorf("坐标 %q 无法解析: %w", value, err)
	}
	return Coord{Value: f, Kind: kind}, nil
}

// Resolve 以 extent（页宽或页高）与 cursor（当前游标）计算像素坐标，结果取整。
func (c Coord) Resolve(extent int, cursor float64) float64 {
	switch c.Kind {
	case CoordPercent:
		return float64(int(float64(extent) * c.Value / 100))
	case CoordRelative:
		return cursor + c.Value
	default:
		return c.Value
	}
}

func (c Coord) String() string {
	switch c.Kind {
	case CoordPercent:
		return strconv.FormatFloat(c.Value, 'f', -1, 64) + "%"
	case CoordRelative:
		if c.Value >= 0 {
			return "+" + strconv.FormatFloat(c.Value, 'f', -1, 64)
		}
		return strconv.FormatFloat(c.Value, 'f', -1, 64)
	default:
		return strconv.FormatFloat(c.Value, 'f', -1, 64)
	}
}
