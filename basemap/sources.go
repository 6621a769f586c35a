// Package basemap 拼接 XYZ 瓦片并生成带指北针、比例尺与标题栏的地图页。
package basemap

import (
	"strconv"
	"strings"
)

// Source 是一个 XYZ 瓦片图层。URL 中的 {z}、{x}、{y} 会被替换，{s} 取 Subdomains 轮换。
type Source struct {
	Name       string
	URL        string
	Subdomains []string
	Opacity    float64
	// Optional 图层失败时只记录警告。
	Optional bool
	Credit   string
}

// 默认图层与透明度。
var (
	EsriWorldImagery = Source{
		Name:    "Esri.WorldImagery",
		URL:     "https://server.arcgisonline.com/ArcGIS/rest/services/World_Imagery/MapServer/tile/{z}/{y}/{x}",
		Opacity: 1,
		Credit:  "Esri World Imagery",
	}
	EsriWorldHillshade = Source{
		Name:     "Esri.WorldHillshade",
		URL:      "https://server.arcgisonline.com/ArcGIS/rest/services/Elevation/World_Hillshade/MapServer/tile/{z}/{y}/{x}",
		Opacity:  0.35,
		Optional: true,
		Credit:   "World Hillshade",
	}
	EsriWorldTransportation = Source{
		Name:     "Esri.WorldTransportation",
		URL:      "https://server.arcgisonline.com/ArcGIS/rest/services/Reference/World_Transportation/MapServer/tile/{z}/{y}/{x}",
		Opacity:  0.6,
		Optional: true,
		Credit:   "World Transportation",
	}
	EsriWorldTopoMap = Source{
		Name:     "Esri.WorldTopoMap",
		URL:      "https://server.arcgisonline.com/ArcGIS/rest/services/World_Topo_Map/MapServer/tile/{z}/{y}/{x}",
		Opacity:  0.25,
		Optional: true,
		Credit:   "World Topo",
	}
	CartoPositronOnlyLabels = Source{
		Name:       "CartoDB.PositronOnlyLabels",
		URL:        "https://{s}.basemaps.cartocdn.com/light_only_labels/{z}/{x}/{y}.png",
		Subdomains: []string{"a", "b", "c", "d"},
		Opacity:    0.9,
		Optional:   true,
		Credit:     "OSM Labels (CARTO)",
	}
)

// DefaultSources 返回按绘制顺序排列的图层：卫星底图在最下，标注在最上。
func DefaultSources() []Source {
	return []Source{
		EsriWorldImagery,
		EsriWorldHillshade,
		EsriWorldTransportation,
		EsriWorldTopoMap,
		CartoPositronOnlyLabels,
	}
}

// TileURL 返回瓦片 (z, x, y) 的地址。
func (s Source) TileURL(z, x, y int) string {
	sub := ""
	if n := len(s.Subdomains); n > 0 {
		sub = s.Subdomains[(x+y)%n]
	}
	r := strings.NewReplacer(
		"{z}", strconv.Itoa(z),
		"{x}", strconv.Itoa(x),
		"{y}", strconv.Itoa(y),
		"{s}", sub,
	)
	return r.Replace(s.URL)
}

// Credits 以 ", " 连接图层署名，跳过空值与重复项。
func Credits(sources []Source) string {
	seen := map[string]bool{}
	var parts []string
	for _, s := range sources {
		if s.Credit == "" || seen[s.Credit] {
			continue
		}
		seen[s.Credit] = true
		parts = append(parts, s.Credit)
	}
	return strings.Join(parts, ", ")
}
