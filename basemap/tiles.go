package basemap

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"net/http"
	"time"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/ByLCY/parchment/errs"
	"github.com/ByLCY/parchment/geo"
)

// MaxTiles 限制单个图层一次拼接的瓦片数量，超出时降低缩放级别。
const MaxTiles = 1024

// Fetcher 下载并解码单个瓦片。
type Fetcher struct {
	Client    *http.Client
	UserAgent string
}

// NewFetcher returns a fetcher with a 30 s timeout and the default User-Agent.
func NewFetcher() *Fetcher {
	return &Fetcher{
		Client:    &http.Client{Timeout: 30 * time.Second},
		UserAgent: geo.DefaultUserAgent,
	}
}

// Fetch 下载瓦片并按内容解码（PNG、JPEG 或 WebP）。
func (f *Fetcher) Fetch(ctx context.Context, src Source, z, x, y int) (image.Image, error) {
	const op = "basemap.Fetch"
	url := src.TileURL(z, x, y)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errs.E(errs.ExternalServiceFailure, op, err)
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, errs.E(errs.ExternalServiceFailure, op, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errs.Errorf(errs.ExternalServiceFailure, op, "瓦片 %s 返回 %s", url, resp.Status)
	}
	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, errs.E(errs.ExternalServiceFailure, op, fmt.Errorf("解码瓦片 %s 失败: %w", url, err))
	}
	return img, nil
}

// fitZoom 在瓦片数量超过 MaxTiles 时逐级降低缩放。
func fitZoom(e geo.Extent, zoom int) int {
	for zoom > 0 {
		x0, y0, x1, y1 := geo.TileRange(e, zoom)
		if (x1-x0+1)*(y1-y0+1) <= MaxTiles {
			break
		}
		zoom--
	}
	return zoom
}

// Stitch 下载覆盖 e 的全部瓦片，裁出 e 对应的部分并缩放到 width×height。
// 任一瓦片失败则整个图层失败。
func (f *Fetcher) Stitch(ctx context.Context, src Source, e geo.Extent, zoom, width, height int) (*image.NRGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, errs.Errorf(errs.InvalidDimension, "basemap.Stitch", "图层尺寸必须为正: %dx%d", width, height)
	}
	x0, y0, x1, y1 := geo.TileRange(e, zoom)
	cols, rows := x1-x0+1, y1-y0+1
	mosaic := image.NewNRGBA(image.Rect(0, 0, cols*geo.TileSize, rows*geo.TileSize))
	for ty := y0; ty <= y1; ty++ {
		for tx := x0; tx <= x1; tx++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			tile, err := f.Fetch(ctx, src, zoom, tx, ty)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", src.Name, err)
			}
			if b := tile.Bounds(); b.Dx() != geo.TileSize || b.Dy() != geo.TileSize {
				tile = imaging.Resize(tile, geo.TileSize, geo.TileSize, imaging.Linear)
			}
			at := image.Pt((tx-x0)*geo.TileSize, (ty-y0)*geo.TileSize)
			draw.Draw(mosaic, image.Rectangle{Min: at, Max: at.Add(image.Pt(geo.TileSize, geo.TileSize))}, tile, tile.Bounds().Min, draw.Src)
		}
	}

	origin := geo.TileBounds(x0, y0, zoom)
	res := geo.Resolution(zoom)
	crop := image.Rect(
		int(math.Floor((e.MinX-origin.MinX)/res)),
		int(math.Floor((origin.MaxY-e.MaxY)/res)),
		int(math.Ceil((e.MaxX-origin.MinX)/res)),
		int(math.Ceil((origin.MaxY-e.MinY)/res)),
	).Intersect(mosaic.Bounds())
	if crop.Empty() {
		return nil, errs.Errorf(errs.InvalidDimension, "basemap.Stitch", "范围 %+v 不在瓦片内", e)
	}
	return imaging.Resize(imaging.Crop(mosaic, crop), width, height, imaging.Lanczos), nil
}
