package features

import (
	"github.com/luno/qkdmap/server/ops/scene"
	"github.com/paulmach/orb/geojson"
)

func (n NodeFeature) props() scene.Props {
	return scene.Props{
		"id":       n.Node.ID.String(),
		"name":     n.Node.Label(),
		"status":   n.Node.Status,
		"endpoint": bool(n.Node.Endpoint),
		"isNode":   true,
	}
}

func (c ConnectionFeature) props() scene.Props {
	apps := make([]string, len(c.Apps))
	copy(apps, c.Apps)
	return scene.Props{
		"from":         c.From.Label(),
		"to":           c.To.Label(),
		"status":       c.Status,
		"apps":         apps,
		"isConnection": true,
	}
}

// Draw adds every feature of the set to the canvas, connections first.
func (s Set) Draw(c scene.Canvas) {
	for _, cf := range s.Connections {
		c.AddLine(scene.LayerConnections, cf.ID, cf.Path, cf.props(), cf.Style(false))
	}
	for _, nf := range s.Nodes {
		c.AddPoint(scene.LayerNodes, nf.ID, nf.Position, nf.props(), nf.Style(false))
	}
}

// GeoJSON renders the set without drawing it.
func (s Set) GeoJSON() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, cf := range s.Connections {
		f := geojson.NewFeature(cf.Path)
		f.ID = cf.ID
		for k, v := range cf.props() {
			f.Properties[k] = v
		}
		f.Properties["style"] = cf.Style(false)
		fc.Append(f)
	}
	for _, nf := range s.Nodes {
		f := geojson.NewFeature(nf.Position)
		f.ID = nf.ID
		for k, v := range nf.props() {
			f.Properties[k] = v
		}
		f.Properties["style"] = nf.Style(false)
		fc.Append(f)
	}
	return fc
}
