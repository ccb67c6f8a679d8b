package geo

import (
	"math"

	"github.com/luno/qkdmap/api"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

const (
	// TileSize is the pixel size of a web mercator tile.
	TileSize = 256
	// MaxResolution is metres per pixel at zoom 0.
	MaxResolution = 2 * math.Pi * 6378137 / TileSize

	DefaultZoom    = 8
	DefaultMaxZoom = 18
)

// DefaultCenter is roughly the middle of Romania, where the network lives.
var DefaultCenter = [2]float64{25.0, 45.9432}

// Project converts lon/lat degrees into web mercator metres.
func Project(lon, lat float64) orb.Point {
	return project.WGS84.ToMercator(orb.Point{lon, lat})
}

// Unproject converts web mercator metres back into lon/lat degrees.
func Unproject(p orb.Point) (lon, lat float64) {
	ll := project.Mercator.ToWGS84(p)
	return ll.Lon(), ll.Lat()
}

func ProjectCoordinates(c api.Coordinates) orb.Point {
	return Project(c.Lon, c.Lat)
}

func ResolutionForZoom(zoom float64) float64 {
	return MaxResolution / math.Pow(2, zoom)
}

func ZoomForResolution(res float64) float64 {
	if res <= 0 {
		return DefaultMaxZoom
	}
	return math.Log2(MaxResolution / res)
}

// Size is a viewport size in pixels.
type Size struct {
	Width, Height float64
}

// Fit returns the centre and resolution that show all of b inside a
// viewport of the given size, keeping padding pixels free on every side.
// The resolution is never finer than maxZoom allows.
func Fit(b orb.Bound, size Size, padding float64, maxZoom float64) (orb.Point, float64) {
	center := b.Center()
	minRes := ResolutionForZoom(maxZoom)

	w := size.Width - 2*padding
	h := size.Height - 2*padding
	if w <= 0 || h <= 0 {
		return center, minRes
	}
	res := math.Max(b.Max.X()-b.Min.X(), 0) / w
	if r := math.Max(b.Max.Y()-b.Min.Y(), 0) / h; r > res {
		res = r
	}
	if res < minRes || math.IsNaN(res) {
		res = minRes
	}
	return center, res
}

// Bound returns the projected bounding box of the given coordinates.
func Bound(cs []api.Coordinates) (orb.Bound, bool) {
	if len(cs) == 0 {
		return orb.Bound{}, false
	}
	mp := make(orb.MultiPoint, 0, len(cs))
	for _, c := range cs {
		p := ProjectCoordinates(c)
		if math.IsNaN(p.X()) || math.IsNaN(p.Y()) || math.IsInf(p.Y(), 0) {
			continue
		}
		mp = append(mp, p)
	}
	if len(mp) == 0 {
		return orb.Bound{}, false
	}
	return mp.Bound(), true
}

// Valid reports whether p can be drawn.
func Valid(p orb.Point) bool {
	for _, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
