package features

import (
	"github.com/luno/qkdmap/api"
	"github.com/luno/qkdmap/api/render"
	"github.com/luno/qkdmap/server/ops/geo"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

const (
	layoutHighlight = "yellow"
	layoutEndpoint  = "blue"
	layoutDevice    = "red"
)

// LayoutInput is what the node layout view of a selected node draws.
type LayoutInput struct {
	Nodes       []api.Node
	Connections []api.Connection
	Node        api.Node
	Devices     []api.Device
	// HighlightNode and HighlightDevice are ids, empty for none.
	HighlightNode   api.Ref
	HighlightDevice api.Ref
}

// Layout renders a selected node's surroundings: every node, the
// connections touching the node and the node's devices.
func Layout(in LayoutInput) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	for _, c := range in.Connections {
		from, okFrom := findNode(in.Nodes, c.From)
		to, okTo := findNode(in.Nodes, c.To)
		if !okFrom || !okTo {
			continue
		}
		if from.ID != in.Node.ID && to.ID != in.Node.ID {
			continue
		}
		color := StatusColor(c.Status)
		if color == "" {
			color = c.Status
		}
		f := geojson.NewFeature(orb.LineString{
			geo.ProjectCoordinates(from.Coordinates),
			geo.ProjectCoordinates(to.Coordinates),
		})
		f.Properties["status"] = color
		f.Properties["style"] = &render.Style{Stroke: color, StrokeWidth: connectionWidth}
		fc.Append(f)
	}

	for _, n := range in.Nodes {
		hl := in.HighlightNode != "" && n.ID == in.HighlightNode
		fill, radius := Gray, float64(nodeRadius)
		if hl {
			fill, radius = layoutHighlight, nodeRadius+2
		} else if n.Endpoint {
			fill = layoutEndpoint
		}
		f := geojson.NewFeature(geo.ProjectCoordinates(n.Coordinates))
		f.Properties["id"] = n.ID.String()
		f.Properties["name"] = n.Name
		f.Properties["endpoint"] = bool(n.Endpoint)
		f.Properties["style"] = &render.Style{
			Fill:        fill,
			Stroke:      "white",
			StrokeWidth: 1,
			Radius:      radius,
			Text:        n.Name,
			TextOffsetY: -16,
			Font:        "bold 12px Arial",
			TextFill:    "white",
		}
		fc.Append(f)
	}

	for _, d := range in.Devices {
		// Devices without a position sit on their node.
		at := in.Node.Coordinates
		if d.Coordinates != nil {
			at = *d.Coordinates
		}
		hl := in.HighlightDevice != "" && d.ID == in.HighlightDevice
		fill, radius := layoutDevice, 6.0
		if hl {
			fill, radius = layoutHighlight, 8
		}
		f := geojson.NewFeature(geo.ProjectCoordinates(at))
		f.Properties["id"] = d.ID.String()
		f.Properties["isDevice"] = true
		f.Properties["style"] = &render.Style{
			Fill:        fill,
			Stroke:      "white",
			StrokeWidth: 1,
			Radius:      radius,
		}
		fc.Append(f)
	}
	return fc
}

// LayoutCenter is where the layout view is centred: the highlighted
// device, else the node.
func LayoutCenter(in LayoutInput) orb.Point {
	if in.HighlightDevice != "" {
		for _, d := range in.Devices {
			if d.ID == in.HighlightDevice && d.Coordinates != nil {
				return geo.ProjectCoordinates(*d.Coordinates)
			}
		}
	}
	return geo.ProjectCoordinates(in.Node.Coordinates)
}
