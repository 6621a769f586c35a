package fonts

// 画布以 1 mm 对应 1 px 的分辨率栅格化，字体系统使用 pt，在边界处换算。
const (
	PtToMm = 0.352777
	MmToPt = 1.0 / PtToMm
)

// PixelsToPoints 把像素字号换算为画布字体所需的 pt。
func PixelsToPoints(px float64) float64 { return px * MmToPt }
