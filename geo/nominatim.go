package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ByLCY/parchment/errs"
)

// DefaultNominatimURL 是公共 Nominatim 搜索接口。
const DefaultNominatimURL = "https://nominatim.openstreetmap.org/search"

// DefaultUserAgent 按 Nominatim 使用政策标识调用方。
const DefaultUserAgent = "parchment-map/1.0"

// Place 是地理编码结果。
type Place struct {
	DisplayName string
	BBox        BBox
}

// Nominatim 是最小的 Nominatim 客户端，不做重试。
type Nominatim struct {
	BaseURL   string
	UserAgent string
	Client    *http.Client
}

// NewNominatim returns a client for the public endpoint with a 30 s timeout.
func NewNominatim() *Nominatim {
	return &Nominatim{
		BaseURL:   DefaultNominatimURL,
		UserAgent: DefaultUserAgent,
		Client:    &http.Client{Timeout: 30 * time.Second},
	}
}

type nominatimItem struct {
	DisplayName string   `json:"display_name"`
	BoundingBox []string `json:"boundingbox"`
}

// Geocode 查询 query 的第一条结果。Nominatim 的 boundingbox 顺序为 [south, north, west, east]。
func (n *Nominatim) Geocode(ctx context.Context, query string) (Place, error) {
	const op = "geo.Geocode"
	base := n.BaseURL
	if base == "" {
		base = DefaultNominatimURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return Place{}, errs.E(errs.ExternalServiceFailure, op, err)
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("format", "json")
	q.Set("limit", "1")
	q.Set("polygon_geojson", "0")
	q.Set("addressdetails", "0")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Place{}, errs.E(errs.ExternalServiceFailure, op, err)
	}
	ua := n.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	req.Header.Set("User-Agent", ua)

	client := n.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Place{}, errs.E(errs.ExternalServiceFailure, op, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Place{}, errs.Errorf(errs.ExternalServiceFailure, op, "Nominatim 返回 %s", resp.Status)
	}

	var items []nominatimItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return Place{}, errs.E(errs.ExternalServiceFailure, op, fmt.Errorf("解析响应失败: %w", err))
	}
	if len(items) == 0 {
		return Place{}, errs.Errorf(errs.ExternalServiceFailure, op, "找不到地点: %s", query)
	}
	item := items[0]
	if len(item.BoundingBox) != 4 {
		return Place{}, errs.Errorf(errs.ExternalServiceFailure, op, "响应中没有有效的 boundingbox")
	}
	var v [4]float64
	for i, s := range item.BoundingBox {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Place{}, errs.E(errs.ExternalServiceFailure, op, fmt.Errorf("boundingbox 第 %d 项无法解析: %w", i, err))
		}
		v[i] = f
	}
	name := item.DisplayName
	if name == "" {
		name = query
	}
	return Place{
		DisplayName: name,
		BBox:        BBox{South: v[0], North: v[1], West: v[2], East: v[3]},
	}, nil
}
