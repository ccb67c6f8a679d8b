package scene

import (
	"math"
	"sort"

	"github.com/luno/qkdmap/api/render"
	"github.com/luno/qkdmap/server/ops/geo"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// Layer is a vector layer, drawn in ascending order.
type Layer int

const (
	LayerBase Layer = iota
	LayerConnections
	LayerKeys
	LayerNodes
)

func (l Layer) String() string {
	switch l {
	case LayerBase:
		return "base"
	case LayerConnections:
		return "connections"
	case LayerKeys:
		return "keys"
	case LayerNodes:
		return "nodes"
	default:
		return "unknown"
	}
}

type Props map[string]any

// Canvas is what the map needs from a rendering library.
type Canvas interface {
	AddPoint(l Layer, id string, at orb.Point, props Props, s *render.Style)
	AddLine(l Layer, id string, path orb.LineString, props Props, s *render.Style)
	// SetStyle replaces the style of a feature, nil hides it.
	SetStyle(id string, s *render.Style)
	SetPosition(id string, at orb.Point)
	Remove(id string)
}

type Feature struct {
	ID       string
	Layer    Layer
	Geometry orb.Geometry
	Props    Props
	Style    *render.Style
}

type EventType string

const (
	EventPointerMove EventType = "pointermove"
	EventClick       EventType = "singleclick"
)

type Event struct {
	Type       EventType
	Pixel      [2]float64
	Coordinate orb.Point
	Dragging   bool
}

type Handler func(Event)

type ListenerKey int64

type HitOptions struct {
	Tolerance   float64
	LayerFilter func(Layer) bool
}

// View is the visible window onto the projected plane.
type View struct {
	Center     orb.Point
	Resolution float64
	Size       geo.Size
}

func (v View) resolution() float64 {
	if v.Resolution <= 0 || math.IsNaN(v.Resolution) {
		return 1
	}
	return v.Resolution
}

func (v View) PixelToCoordinate(px [2]float64) orb.Point {
	r := v.resolution()
	return orb.Point{
		v.Center.X() + (px[0]-v.Size.Width/2)*r,
		v.Center.Y() - (px[1]-v.Size.Height/2)*r,
	}
}

func (v View) CoordinateToPixel(p orb.Point) [2]float64 {
	r := v.resolution()
	return [2]float64{
		(p.X()-v.Center.X())/r + v.Size.Width/2,
		(v.Center.Y()-p.Y())/r + v.Size.Height/2,
	}
}

type listener struct {
	typ EventType
	h   Handler
}

// Map is an in-memory vector map. It is not safe for concurrent use, its
// owner publishes copies for readers.
type Map struct {
	view View

	layers    map[Layer]bool
	features  map[string]*Feature
	order     []string
	overlays  map[string]*render.Overlay
	ovOrder   []string
	listeners map[ListenerKey]listener
	nextKey   ListenerKey

	cursor   string
	renders  int64
	disposed bool
}

func NewMap(v View, layers ...Layer) *Map {
	m := &Map{
		view:      v,
		layers:    make(map[Layer]bool),
		features:  make(map[string]*Feature),
		overlays:  make(map[string]*render.Overlay),
		listeners: make(map[ListenerKey]listener),
	}
	for _, l := range layers {
		m.layers[l] = true
	}
	return m
}

func (m *Map) View() View {
	return m.view
}

func (m *Map) SetView(v View) {
	m.view = v
}

func (m *Map) HasLayer(l Layer) bool {
	return m.layers[l]
}

func (m *Map) AddLayer(l Layer) {
	if m.disposed {
		return
	}
	m.layers[l] = true
}

// RemoveLayer drops the layer and every feature on it.
func (m *Map) RemoveLayer(l Layer) {
	delete(m.layers, l)
	for id, f := range m.features {
		if f.Layer == l {
			m.Remove(id)
		}
	}
}

func (m *Map) add(f *Feature) {
	if m.disposed {
		return
	}
	if _, ok := m.features[f.ID]; !ok {
		m.order = append(m.order, f.ID)
	}
	m.features[f.ID] = f
}

func (m *Map) AddPoint(l Layer, id string, at orb.Point, props Props, s *render.Style) {
	m.add(&Feature{ID: id, Layer: l, Geometry: at, Props: props, Style: s})
}

func (m *Map) AddLine(l Layer, id string, path orb.LineString, props Props, s *render.Style) {
	m.add(&Feature{ID: id, Layer: l, Geometry: path, Props: props, Style: s})
}

func (m *Map) SetStyle(id string, s *render.Style) {
	if f, ok := m.features[id]; ok {
		f.Style = s
	}
}

func (m *Map) SetPosition(id string, at orb.Point) {
	f, ok := m.features[id]
	if !ok {
		return
	}
	if _, isPoint := f.Geometry.(orb.Point); isPoint {
		f.Geometry = at
	}
}

func (m *Map) Remove(id string) {
	if _, ok := m.features[id]; !ok {
		return
	}
	delete(m.features, id)
	for i, o := range m.order {
		if o == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

func (m *Map) Feature(id string) (Feature, bool) {
	f, ok := m.features[id]
	if !ok {
		return Feature{}, false
	}
	return *f, true
}

// Features returns the features in draw order.
func (m *Map) Features() []Feature {
	ret := make([]Feature, 0, len(m.features))
	for _, l := range []Layer{LayerBase, LayerConnections, LayerKeys, LayerNodes} {
		if !m.layers[l] {
			continue
		}
		for _, id := range m.order {
			f := m.features[id]
			if f.Layer == l {
				ret = append(ret, *f)
			}
		}
	}
	return ret
}

func (m *Map) On(typ EventType, h Handler) ListenerKey {
	if m.disposed {
		return 0
	}
	m.nextKey++
	m.listeners[m.nextKey] = listener{typ: typ, h: h}
	return m.nextKey
}

func (m *Map) Un(k ListenerKey) {
	delete(m.listeners, k)
}

func (m *Map) ListenerCount() int {
	return len(m.listeners)
}

// Dispatch calls the listeners for the event type in registration order.
func (m *Map) Dispatch(e Event) {
	if m.disposed {
		return
	}
	if e.Coordinate == (orb.Point{}) {
		e.Coordinate = m.view.PixelToCoordinate(e.Pixel)
	}
	keys := make([]ListenerKey, 0, len(m.listeners))
	for k, l := range m.listeners {
		if l.typ == e.Type {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	for _, k := range keys {
		l, ok := m.listeners[k]
		if !ok {
			continue
		}
		l.h(e)
	}
}

func (m *Map) AddOverlay(o render.Overlay) {
	if m.disposed {
		return
	}
	if _, ok := m.overlays[o.Name]; !ok {
		m.ovOrder = append(m.ovOrder, o.Name)
	}
	m.overlays[o.Name] = &o
}

func (m *Map) RemoveOverlay(name string) {
	if _, ok := m.overlays[name]; !ok {
		return
	}
	delete(m.overlays, name)
	for i, n := range m.ovOrder {
		if n == name {
			m.ovOrder = append(m.ovOrder[:i], m.ovOrder[i+1:]...)
			break
		}
	}
}

// SetOverlayPosition anchors the overlay at p, nil unsets the position.
func (m *Map) SetOverlayPosition(name string, p *orb.Point) {
	o, ok := m.overlays[name]
	if !ok {
		return
	}
	if p == nil {
		o.Position = nil
		return
	}
	pos := [2]float64{p.X(), p.Y()}
	o.Position = &pos
}

func (m *Map) SetOverlayContent(name, content string) {
	if o, ok := m.overlays[name]; ok {
		o.Content = content
	}
}

func (m *Map) ShowOverlay(name string, visible bool) {
	if o, ok := m.overlays[name]; ok {
		o.Visible = visible
	}
}

func (m *Map) Overlay(name string) (render.Overlay, bool) {
	o, ok := m.overlays[name]
	if !ok {
		return render.Overlay{}, false
	}
	return *o, true
}

func (m *Map) Overlays() []render.Overlay {
	ret := make([]render.Overlay, 0, len(m.ovOrder))
	for _, n := range m.ovOrder {
		ret = append(ret, *m.overlays[n])
	}
	return ret
}

func (m *Map) SetCursor(c string) {
	m.cursor = c
}

func (m *Map) Cursor() string {
	return m.cursor
}

func (m *Map) Render() {
	m.renders++
}

func (m *Map) Renders() int64 {
	return m.renders
}

// Dispose releases everything held by the map, it cannot be used after.
func (m *Map) Dispose() {
	m.disposed = true
	m.listeners = make(map[ListenerKey]listener)
	m.overlays = make(map[string]*render.Overlay)
	m.ovOrder = nil
	m.features = make(map[string]*Feature)
	m.order = nil
	m.layers = make(map[Layer]bool)
}

func (m *Map) Disposed() bool {
	return m.disposed
}

var hitOrder = []Layer{LayerNodes, LayerKeys, LayerConnections}

// ForEachFeatureAtPixel calls fn with every styled feature under the pixel,
// top-most first, until fn returns true.
func (m *Map) ForEachFeatureAtPixel(px [2]float64, opts HitOptions, fn func(Feature) bool) bool {
	for _, l := range hitOrder {
		if !m.layers[l] {
			continue
		}
		if opts.LayerFilter != nil && !opts.LayerFilter(l) {
			continue
		}
		for i := len(m.order) - 1; i >= 0; i-- {
			f := m.features[m.order[i]]
			if f.Layer != l || f.Style == nil {
				continue
			}
			if !m.hit(f, px, opts.Tolerance) {
				continue
			}
			if fn(*f) {
				return true
			}
		}
	}
	return false
}

func (m *Map) hit(f *Feature, px [2]float64, tolerance float64) bool {
	at := orb.Point{px[0], px[1]}
	switch g := f.Geometry.(type) {
	case orb.Point:
		c := m.view.CoordinateToPixel(g)
		reach := f.Style.Radius
		if reach == 0 && f.Style.Icon != "" {
			reach = 1
		}
		return planar.Distance(orb.Point{c[0], c[1]}, at) <= reach+tolerance
	case orb.LineString:
		if len(g) == 0 {
			return false
		}
		reach := f.Style.StrokeWidth/2 + tolerance
		prev := m.view.CoordinateToPixel(g[0])
		if len(g) == 1 {
			return planar.Distance(orb.Point{prev[0], prev[1]}, at) <= reach
		}
		for _, p := range g[1:] {
			cur := m.view.CoordinateToPixel(p)
			d := planar.DistanceFromSegment(orb.Point{prev[0], prev[1]}, orb.Point{cur[0], cur[1]}, at)
			if d <= reach {
				return true
			}
			prev = cur
		}
	}
	return false
}

// GeoJSON renders the features in draw order, hidden features included
// with a null style.
func (m *Map) GeoJSON() *geojson.FeatureCollection {
	return GeoJSON(m.Features())
}

// GeoJSON renders features copied out of a map.
func GeoJSON(features []Feature) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, f := range features {
		if f.Layer == LayerBase {
			continue
		}
		gf := geojson.NewFeature(f.Geometry)
		gf.ID = f.ID
		for k, v := range f.Props {
			gf.Properties[k] = v
		}
		gf.Properties["layer"] = f.Layer.String()
		gf.Properties["style"] = f.Style
		fc.Append(gf)
	}
	return fc
}

// Markers returns the key markers on the map.
func (m *Map) Markers() []render.Marker {
	var ret []render.Marker
	for _, f := range m.Features() {
		if f.Layer != LayerKeys {
			continue
		}
		p, ok := f.Geometry.(orb.Point)
		if !ok {
			continue
		}
		ret = append(ret, render.Marker{
			ID:       f.ID,
			Position: [2]float64{p.X(), p.Y()},
			Visible:  f.Style != nil,
		})
	}
	return ret
}

var _ Canvas = (*Map)(nil)
