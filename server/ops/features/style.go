package features

import "github.com/luno/qkdmap/api/render"

const (
	nodeRadius      = 10
	connectionWidth = 3
	highlightAmount = 0.3

	KeyIcon      = "/key.png"
	KeyIconScale = 0.05
)

func baseNodeColor(endpoint bool) string {
	if endpoint {
		return Green
	}
	return Gray
}

// NodeStyle is the circle and label of a node. An empty color falls back
// to the endpoint colour.
func NodeStyle(name string, endpoint, highlight bool, color string, dim bool) *render.Style {
	if color == "" {
		color = baseNodeColor(endpoint)
	}
	fill := color
	if highlight {
		fill = Lighten(color, highlightAmount)
	} else if dim {
		fill = Dim
	}
	return &render.Style{
		Fill:        fill,
		Stroke:      "white",
		StrokeWidth: 1,
		Radius:      nodeRadius,
		Text:        name,
		TextOffsetY: -16,
		Font:        "bold 12px Arial",
		TextFill:    "white",
	}
}

func ConnectionStyle(color string, highlight, dim bool) *render.Style {
	stroke := color
	if highlight {
		stroke = Lighten(color, highlightAmount)
	} else if dim {
		stroke = Dim
	}
	return &render.Style{
		Stroke:      stroke,
		StrokeWidth: connectionWidth,
	}
}

func KeyStyle() *render.Style {
	return &render.Style{
		Icon:      KeyIcon,
		IconScale: KeyIconScale,
	}
}

// Style returns the style of the node in its current state.
func (n NodeFeature) Style(highlight bool) *render.Style {
	return NodeStyle(n.Node.Label(), bool(n.Node.Endpoint), highlight, n.Color, n.Dim && !highlight)
}

// Style returns the style of the connection in its current state.
func (c ConnectionFeature) Style(highlight bool) *render.Style {
	return ConnectionStyle(c.Color, highlight, c.Dim && !highlight)
}
