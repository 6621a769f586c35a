// Package geo 提供 Web Mercator 换算、瓦片坐标以及 Nominatim 地理编码。
package geo

import "math"

const (
	// EarthRadius 是 Web Mercator 球体半径（米）。
	EarthRadius = 6378137.0
	// MaxLatitude 是 Web Mercator 可表示的最大纬度。
	MaxLatitude = 85.05112878
	// TileSize 是瓦片边长（像素）。
	TileSize = 256
	// MaxZoom 是允许的最大缩放级别。
	MaxZoom = 19
)

// InitialResolution 是 0 级缩放下每像素对应的米数。
var InitialResolution = 2 * math.Pi * EarthRadius / TileSize

// originShift 是 Mercator 平面半边长。
var originShift = math.Pi * EarthRadius

func radians(deg float64) float64 { return deg * math.Pi / 180 }
func degrees(rad float64) float64 { return rad * 180 / math.Pi }

// ToWebMercator 把经纬度换算为 EPSG:3857 米坐标，纬度先钳制到 ±MaxLatitude。
func ToWebMercator(lon, lat float64) (x, y float64) {
	lat = math.Max(math.Min(lat, MaxLatitude), -MaxLatitude)
	x = EarthRadius * radians(lon)
	y = EarthRadius * math.Log(math.Tan(math.Pi/4+radians(lat)/2))
	return x, y
}

// FromWebMercator 是 ToWebMercator 的逆运算。
func FromWebMercator(x, y float64) (lon, lat float64) {
	lon = degrees(x / EarthRadius)
	lat = degrees(2*math.Atan(math.Exp(y/EarthRadius)) - math.Pi/2)
	return lon, lat
}

// BBox 是 WGS84 经纬度范围。
type BBox struct {
	West, South, East, North float64
}

// Extent 是 Web Mercator 平面上的矩形（米）。
type Extent struct {
	MinX, MinY, MaxX, MaxY float64
}

// Mercator 把经纬度范围换算为平面范围，并保证 Min <= Max。
func (b BBox) Mercator() Extent {
	x0, y0 := ToWebMercator(b.West, b.South)
	x1, y1 := ToWebMercator(b.East, b.North)
	return Extent{
		MinX: math.Min(x0, x1), MinY: math.Min(y0, y1),
		MaxX: math.Max(x0, x1), MaxY: math.Max(y0, y1),
	}
}

// Buffer 向四周各扩展 m 米；m <= 0 时原样返回。
func (e Extent) Buffer(m float64) Extent {
	if m <= 0 {
		return e
	}
	return Extent{MinX: e.MinX - m, MinY: e.MinY - m, MaxX: e.MaxX + m, MaxY: e.MaxY + m}
}

// Width returns the horizontal size in metres.
func (e Extent) Width() float64 { return e.MaxX - e.MinX }

// Height returns the vertical size in metres.
func (e Extent) Height() float64 { return e.MaxY - e.MinY }

// Zoom 估算让 bboxWidthM 铺满 widthPx 像素的缩放级别，结果钳制在 0..MaxZoom。
func Zoom(bboxWidthM float64, widthPx int) int {
	target := bboxWidthM / math.Max(float64(widthPx), 1)
	z := int(math.Round(math.Log2(InitialResolution / math.Max(target, 1e-6))))
	return max(0, min(MaxZoom, z))
}

// Resolution 返回给定缩放级别下每像素的米数。
func Resolution(zoom int) float64 {
	return InitialResolution / math.Exp2(float64(zoom))
}

// TileXY 返回包含平面坐标 (x, y) 的瓦片编号（XYZ 方案，y 向南增长）。
func TileXY(x, y float64, zoom int) (tx, ty int) {
	n := 1 << zoom
	size := 2 * originShift / float64(n)
	tx = int(math.Floor((x + originShift) / size))
	ty = int(math.Floor((originShift - y) / size))
	return clampTile(tx, n), clampTile(ty, n)
}

func clampTile(v, n int) int {
	return max(0, min(n-1, v))
}

// TileBounds 返回瓦片覆盖的平面范围。
func TileBounds(tx, ty, zoom int) Extent {
	size := 2 * originShift / float64(int(1)<<zoom)
	minX := float64(tx)*size - originShift
	maxY := originShift - float64(ty)*size
	return Extent{MinX: minX, MinY: maxY - size, MaxX: minX + size, MaxY: maxY}
}

// TileRange 返回覆盖 e 所需瓦片编号的闭区间。
func TileRange(e Extent, zoom int) (x0, y0, x1, y1 int) {
	x0, y0 = TileXY(e.MinX, e.MaxY, zoom)
	x1, y1 = TileXY(e.MaxX, e.MinY, zoom)
	return x0, y0, x1, y1
}

// ScaleLength 返回最接近 widthM/5 的 1、2、5×10^n 米长度，用于比例尺。
func ScaleLength(widthM float64) float64 {
	target := widthM / 5
	if target <= 0 {
		return 0
	}
	base := math.Pow(10, math.Floor(math.Log10(target)))
	best := base
	for _, s := range []float64{1, 2, 5} {
		if c := s * base; math.Abs(c-target) < math.Abs(best-target) {
			best = c
		}
	}
	return best
}
