package render

import "github.com/paulmach/orb/geojson"

type PointerRequest struct {
	Pixel    [2]float64 `json:"pixel"`
	Dragging bool       `json:"dragging"`
}

type ClickRequest struct {
	Pixel [2]float64 `json:"pixel"`
}

// ViewportRequest moves the view. Members left out keep their current
// value, a centre of [0, 0] is a real position.
type ViewportRequest struct {
	Center     *[2]float64 `json:"center,omitempty"`
	Zoom       float64     `json:"zoom,omitempty"`
	Resolution float64     `json:"resolution,omitempty"`
	Width      float64     `json:"width,omitempty"`
	Height     float64     `json:"height,omitempty"`
}

type SelectAppRequest struct {
	App string `json:"app"`
}

// AnimationsRequest toggles animations when Enabled is not set.
type AnimationsRequest struct {
	Enabled *bool `json:"enabled,omitempty"`
}

type AnimationsResponse struct {
	Enabled bool   `json:"enabled"`
	Label   string `json:"label"`
}

type DebugResponse struct {
	Debug bool   `json:"debug"`
	Label string `json:"label"`
}

type RefreshResponse struct {
	Trigger int64 `json:"trigger"`
}

type LayoutResponse struct {
	Center   [2]float64                 `json:"center"`
	Features *geojson.FeatureCollection `json:"features"`
}

type ViewersResponse struct {
	Viewers []string `json:"viewers"`
}

// StreamMessage is pushed to stream subscribers whenever the map changes.
type StreamMessage struct {
	View  View  `json:"view"`
	Frame Frame `json:"frame"`
}
