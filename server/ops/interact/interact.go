package interact

import (
	"fmt"
	"strings"

	"github.com/luno/qkdmap/api/render"
	"github.com/luno/qkdmap/server/ops/features"
	"github.com/luno/qkdmap/server/ops/scene"
	"github.com/paulmach/orb"
)

const (
	Tooltip         = "tooltip"
	NodePopup       = "nodePopup"
	ConnectionPopup = "connectionPopup"

	HitTolerance  = 1
	CursorPointer = "pointer"

	NoApps = "No apps assigned"
)

type ConnectionSelection struct {
	ID   string
	From string
	To   string
	Apps []string
}

// Selection holds at most one of a node and a connection.
type Selection struct {
	Node       *features.NodeFeature
	Connection *ConnectionSelection
}

func (s Selection) Empty() bool {
	return s.Node == nil && s.Connection == nil
}

// Layer turns pointer events on a scene into hover and selection state.
type Layer struct {
	m        *scene.Map
	set      features.Set
	onSelect func(Selection)

	keys    []scene.ListenerKey
	hovered string
	sel     Selection
}

// New returns a detached layer for the set drawn on m. onSelect is called
// after every click with the resulting selection.
func New(m *scene.Map, set features.Set, onSelect func(Selection)) *Layer {
	if onSelect == nil {
		onSelect = func(Selection) {}
	}
	return &Layer{m: m, set: set, onSelect: onSelect}
}

// Attach adds the overlays and registers the pointer listeners.
func (l *Layer) Attach() {
	if len(l.keys) > 0 {
		return
	}
	l.m.AddOverlay(render.Overlay{
		Name:        Tooltip,
		Offset:      [2]float64{10, 0},
		Positioning: render.PositionCenterLeft,
	})
	l.m.AddOverlay(render.Overlay{
		Name:        NodePopup,
		Offset:      [2]float64{0, -15},
		Positioning: render.PositionBottomCenter,
	})
	l.m.AddOverlay(render.Overlay{
		Name:        ConnectionPopup,
		Offset:      [2]float64{0, -15},
		Positioning: render.PositionBottomCenter,
	})
	l.keys = append(l.keys,
		l.m.On(scene.EventPointerMove, l.pointerMove),
		l.m.On(scene.EventClick, l.click),
	)
}

// Detach removes everything Attach added.
func (l *Layer) Detach() {
	for _, k := range l.keys {
		l.m.Un(k)
	}
	l.keys = nil
	l.m.RemoveOverlay(Tooltip)
	l.m.RemoveOverlay(NodePopup)
	l.m.RemoveOverlay(ConnectionPopup)
	l.hovered = ""
}

func (l *Layer) Selection() Selection {
	return l.sel
}

func (l *Layer) Hovered() string {
	return l.hovered
}

type target struct {
	node *features.NodeFeature
	conn *features.ConnectionFeature
}

func (t target) id() string {
	if t.node != nil {
		return t.node.ID
	}
	if t.conn != nil {
		return t.conn.ID
	}
	return ""
}

func (l *Layer) hit(px [2]float64) target {
	var t target
	l.m.ForEachFeatureAtPixel(px, scene.HitOptions{
		Tolerance:   HitTolerance,
		LayerFilter: func(ly scene.Layer) bool { return ly != scene.LayerKeys },
	}, func(f scene.Feature) bool {
		switch f.Geometry.(type) {
		case orb.Point:
			if n, ok := l.set.Node(f.ID); ok {
				t.node = &n
				return true
			}
		case orb.LineString:
			if c, ok := l.set.Connection(f.ID); ok {
				t.conn = &c
				return true
			}
		}
		return false
	})
	return t
}

func (l *Layer) restyle(id string, highlight bool) {
	if n, ok := l.set.Node(id); ok {
		l.m.SetStyle(id, n.Style(highlight))
		return
	}
	if c, ok := l.set.Connection(id); ok {
		l.m.SetStyle(id, c.Style(highlight))
	}
}

func appsText(apps []string) string {
	if len(apps) == 0 {
		return NoApps
	}
	return "Apps: " + strings.Join(apps, ", ")
}

func (l *Layer) pointerMove(e scene.Event) {
	if e.Dragging {
		return
	}

	t := l.hit(e.Pixel)
	if id := t.id(); id != l.hovered {
		if l.hovered != "" {
			l.restyle(l.hovered, false)
		}
		l.hovered = id
		if id != "" {
			l.restyle(id, true)
		}
	}

	if l.hovered == "" {
		l.m.ShowOverlay(Tooltip, false)
		l.m.SetCursor("")
		return
	}

	var content string
	if t.conn != nil {
		content = appsText(t.conn.Apps)
	} else {
		content = fmt.Sprintf("Node: %s (click for details)", t.node.Node.Label())
	}
	at := e.Coordinate
	l.m.SetOverlayPosition(Tooltip, &at)
	l.m.SetOverlayContent(Tooltip, content)
	l.m.ShowOverlay(Tooltip, true)
	l.m.SetCursor(CursorPointer)
}

func (l *Layer) click(e scene.Event) {
	t := l.hit(e.Pixel)
	switch {
	case t.node != nil:
		l.sel = Selection{Node: t.node}
		at := t.node.Position
		l.m.SetOverlayPosition(NodePopup, &at)
		l.m.SetOverlayContent(NodePopup, t.node.Node.Label())
		l.m.ShowOverlay(NodePopup, true)
		l.hidePopup(ConnectionPopup)

	case t.conn != nil:
		apps := make([]string, len(t.conn.Apps))
		copy(apps, t.conn.Apps)
		l.sel = Selection{Connection: &ConnectionSelection{
			ID:   t.conn.ID,
			From: t.conn.From.Label(),
			To:   t.conn.To.Label(),
			Apps: apps,
		}}
		at := e.Coordinate
		l.m.SetOverlayPosition(ConnectionPopup, &at)
		l.m.SetOverlayContent(ConnectionPopup, appsText(apps))
		l.m.ShowOverlay(ConnectionPopup, true)
		l.hidePopup(NodePopup)

	default:
		l.sel = Selection{}
		l.hidePopup(NodePopup)
		l.hidePopup(ConnectionPopup)
	}
	l.onSelect(l.sel)
}

func (l *Layer) hidePopup(name string) {
	l.m.SetOverlayPosition(name, nil)
	l.m.ShowOverlay(name, false)
}
