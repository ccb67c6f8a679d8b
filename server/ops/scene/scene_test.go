package scene

import (
	"testing"

	"github.com/luno/qkdmap/api/render"
	"github.com/luno/qkdmap/server/ops/geo"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMap() *Map {
	return NewMap(View{
		Center:     orb.Point{0, 0},
		Resolution: 1,
		Size:       geo.Size{Width: 200, Height: 200},
	}, LayerConnections, LayerKeys, LayerNodes)
}

func TestViewPixels(t *testing.T) {
	v := View{Center: orb.Point{100, 100}, Resolution: 2, Size: geo.Size{Width: 200, Height: 100}}
	assert.Equal(t, [2]float64{100, 50}, v.CoordinateToPixel(orb.Point{100, 100}))
	assert.Equal(t, [2]float64{105, 45}, v.CoordinateToPixel(orb.Point{110, 110}))
	assert.Equal(t, orb.Point{110, 110}, v.PixelToCoordinate([2]float64{105, 45}))

	v.Resolution = 0
	assert.Equal(t, [2]float64{110, 40}, v.CoordinateToPixel(orb.Point{110, 110}))
}

func TestHitTest(t *testing.T) {
	m := testMap()
	m.AddLine(LayerConnections, "line", orb.LineString{{-50, 0}, {50, 0}}, nil, &render.Style{StrokeWidth: 3})
	m.AddPoint(LayerNodes, "node", orb.Point{50, 0}, nil, &render.Style{Radius: 10})
	m.AddPoint(LayerKeys, "key", orb.Point{0, 0}, nil, &render.Style{Icon: "/key.png"})

	hits := func(px [2]float64, opts HitOptions) []string {
		var ids []string
		m.ForEachFeatureAtPixel(px, opts, func(f Feature) bool {
			ids = append(ids, f.ID)
			return false
		})
		return ids
	}

	// Centre pixel is 100,100.
	assert.Equal(t, []string{"node", "line"}, hits([2]float64{145, 100}, HitOptions{Tolerance: 1}))
	assert.Equal(t, []string{"key", "line"}, hits([2]float64{100, 100}, HitOptions{Tolerance: 1}))
	assert.Equal(t, []string{"line"}, hits([2]float64{100, 100}, HitOptions{
		Tolerance:   1,
		LayerFilter: func(l Layer) bool { return l != LayerKeys },
	}))
	assert.Equal(t, []string{"line"}, hits([2]float64{80, 102}, HitOptions{Tolerance: 1}))
	assert.Empty(t, hits([2]float64{80, 103}, HitOptions{Tolerance: 1}))

	m.SetStyle("node", nil)
	assert.Equal(t, []string{"line"}, hits([2]float64{145, 100}, HitOptions{Tolerance: 1}))

	stopped := m.ForEachFeatureAtPixel([2]float64{100, 100}, HitOptions{}, func(Feature) bool { return true })
	assert.True(t, stopped)
}

func TestListeners(t *testing.T) {
	m := testMap()
	var got []string
	k1 := m.On(EventClick, func(e Event) { got = append(got, "first") })
	m.On(EventClick, func(e Event) { got = append(got, "second") })
	m.On(EventPointerMove, func(e Event) {
		got = append(got, "move")
		assert.Equal(t, orb.Point{10, -10}, e.Coordinate)
	})

	m.Dispatch(Event{Type: EventClick})
	assert.Equal(t, []string{"first", "second"}, got)

	m.Un(k1)
	got = nil
	m.Dispatch(Event{Type: EventClick})
	m.Dispatch(Event{Type: EventPointerMove, Pixel: [2]float64{110, 110}})
	assert.Equal(t, []string{"second", "move"}, got)
	assert.Equal(t, 2, m.ListenerCount())
}

func TestOverlays(t *testing.T) {
	m := testMap()
	m.AddOverlay(render.Overlay{Name: "tip", Positioning: render.PositionCenterLeft})
	p := orb.Point{3, 4}
	m.SetOverlayPosition("tip", &p)
	m.SetOverlayContent("tip", "hello")
	m.ShowOverlay("tip", true)

	o, ok := m.Overlay("tip")
	require.True(t, ok)
	require.NotNil(t, o.Position)
	assert.Equal(t, [2]float64{3, 4}, *o.Position)
	assert.Equal(t, "hello", o.Content)
	assert.True(t, o.Visible)

	m.SetOverlayPosition("tip", nil)
	o, _ = m.Overlay("tip")
	assert.Nil(t, o.Position)

	m.RemoveOverlay("tip")
	assert.Empty(t, m.Overlays())
}

func TestRemoveLayerAndDispose(t *testing.T) {
	m := testMap()
	m.AddPoint(LayerKeys, "k1", orb.Point{}, Props{"isKey": true}, &render.Style{Icon: "/key.png"})
	m.AddPoint(LayerKeys, "k2", orb.Point{}, Props{"isKey": true}, nil)
	m.AddPoint(LayerNodes, "n", orb.Point{}, nil, &render.Style{Radius: 10})

	ms := m.Markers()
	require.Len(t, ms, 2)
	assert.True(t, ms[0].Visible)
	assert.False(t, ms[1].Visible)

	m.RemoveLayer(LayerKeys)
	assert.False(t, m.HasLayer(LayerKeys))
	assert.Empty(t, m.Markers())
	assert.Len(t, m.Features(), 1)

	fc := m.GeoJSON()
	require.Len(t, fc.Features, 1)
	assert.Equal(t, "nodes", fc.Features[0].Properties["layer"])

	m.On(EventClick, func(Event) {})
	m.Dispose()
	assert.True(t, m.Disposed())
	assert.Equal(t, 0, m.ListenerCount())
	assert.Empty(t, m.Features())

	m.AddPoint(LayerNodes, "late", orb.Point{}, nil, nil)
	_, ok := m.Feature("late")
	assert.False(t, ok)
}
