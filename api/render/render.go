package render

type Style struct {
	Fill        string  `json:"fill,omitempty"`
	Stroke      string  `json:"stroke,omitempty"`
	StrokeWidth float64 `json:"strokeWidth,omitempty"`
	Radius      float64 `json:"radius,omitempty"`

	Text        string  `json:"text,omitempty"`
	TextOffsetY float64 `json:"textOffsetY,omitempty"`
	Font        string  `json:"font,omitempty"`
	TextFill    string  `json:"textFill,omitempty"`

	Icon      string  `json:"icon,omitempty"`
	IconScale float64 `json:"iconScale,omitempty"`
}

type Positioning string

const (
	PositionCenterLeft   Positioning = "center-left"
	PositionBottomCenter Positioning = "bottom-center"
)

type Overlay struct {
	Name        string      `json:"name"`
	Position    *[2]float64 `json:"position,omitempty"`
	Offset      [2]float64  `json:"offset"`
	Positioning Positioning `json:"positioning"`
	Content     string      `json:"content,omitempty"`
	Visible     bool        `json:"visible"`
}

type Marker struct {
	ID       string     `json:"id"`
	Position [2]float64 `json:"position"`
	Visible  bool       `json:"visible"`
}

type Frame struct {
	Generation int64    `json:"generation"`
	Frames     int64    `json:"frames"`
	Pairs      int      `json:"pairs"`
	Markers    []Marker `json:"markers"`
}

type Telemetry struct {
	Pairs  int   `json:"pairs"`
	Frames int64 `json:"frames"`
	// Renders counts the frames of the current scene that changed it.
	Renders int64 `json:"renders"`
}

type Viewport struct {
	Center     [2]float64 `json:"center"`
	Zoom       float64    `json:"zoom"`
	Resolution float64    `json:"resolution"`
	Width      float64    `json:"width"`
	Height     float64    `json:"height"`
}

type Device struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

type NodeDetail struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Devices []Device `json:"devices"`
}

type ConnectionDetail struct {
	From string   `json:"from"`
	To   string   `json:"to"`
	Apps []string `json:"apps"`
}

type AppButton struct {
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// View is everything the dashboard needs to draw the map chrome.
type View struct {
	Generation int64 `json:"generation"`

	HasMapData bool   `json:"hasMapData"`
	Message    string `json:"message,omitempty"`

	SelectedApp string      `json:"selectedApp"`
	Apps        []AppButton `json:"apps"`

	AnimationsEnabled bool       `json:"animationsEnabled"`
	AnimationsLabel   string     `json:"animationsLabel"`
	DebugMode         bool       `json:"debugMode"`
	DebugLabel        string     `json:"debugLabel"`
	Telemetry         *Telemetry `json:"telemetry,omitempty"`

	Cursor   string    `json:"cursor"`
	Overlays []Overlay `json:"overlays"`

	SelectedNode       *NodeDetail       `json:"selectedNode,omitempty"`
	SelectedConnection *ConnectionDetail `json:"selectedConnection,omitempty"`

	Viewport Viewport `json:"viewport"`
}
