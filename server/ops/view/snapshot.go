package view

import (
	"github.com/luno/qkdmap/api/render"
	"github.com/luno/qkdmap/server/ops/features"
	"github.com/luno/qkdmap/server/ops/geo"
	"github.com/luno/qkdmap/server/ops/scene"
	"github.com/paulmach/orb/geojson"
)

// Snapshot is an immutable copy of the map published after every step.
type Snapshot struct {
	View     render.View
	Frame    render.Frame
	features []scene.Feature
}

// GeoJSON renders the features of the snapshot.
func (s Snapshot) GeoJSON() *geojson.FeatureCollection {
	return scene.GeoJSON(s.features)
}

// Snapshot returns the last published state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// Subscribe returns a channel signalled whenever a new snapshot is
// published, and a func to unsubscribe.
func (c *Controller) Subscribe() (<-chan struct{}, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan struct{}, 1)
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

// Done is closed once Run has returned.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

func (c *Controller) publish() {
	snap := c.snapshot()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap = snap
	for _, ch := range c.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func AnimationsLabel(enabled bool) string {
	if enabled {
		return LabelDisableAnimations
	}
	return LabelEnableAnimations
}

func DebugLabel(debug bool) string {
	if debug {
		return LabelHideDebug
	}
	return LabelShowDebug
}

func (c *Controller) snapshot() Snapshot {
	st := &c.st
	v := render.View{
		Generation:        st.generation,
		HasMapData:        st.hasMapData,
		SelectedApp:       st.prefs.SelectedApp,
		AnimationsEnabled: st.prefs.Animations,
		AnimationsLabel:   AnimationsLabel(st.prefs.Animations),
		DebugMode:         st.prefs.Debug,
		DebugLabel:        DebugLabel(st.prefs.Debug),
	}
	if !st.hasMapData {
		v.Message = NoPermission
	}

	v.Apps = append(v.Apps, render.AppButton{
		Name:   features.GlobalApp,
		Active: st.prefs.SelectedApp == features.GlobalApp,
	})
	for _, a := range st.apps {
		v.Apps = append(v.Apps, render.AppButton{
			Name:   a.Name,
			Active: st.prefs.SelectedApp == a.Name,
		})
	}

	pairs := len(st.anim.Pairs)
	if st.prefs.Debug {
		v.Telemetry = &render.Telemetry{Pairs: pairs, Frames: st.frames}
		if st.m != nil {
			v.Telemetry.Renders = st.m.Renders()
		}
	}

	if sel := st.selection.Node; sel != nil {
		nd := &render.NodeDetail{
			ID:      sel.Node.ID.String(),
			Name:    sel.Node.Label(),
			Devices: []render.Device{},
		}
		for _, d := range st.devices {
			nd.Devices = append(nd.Devices, render.Device{ID: d.ID.String(), Name: d.Name})
		}
		v.SelectedNode = nd
	}
	if sel := st.selection.Connection; sel != nil {
		apps := make([]string, len(sel.Apps))
		copy(apps, sel.Apps)
		v.SelectedConnection = &render.ConnectionDetail{From: sel.From, To: sel.To, Apps: apps}
	}

	frame := render.Frame{
		Generation: st.generation,
		Frames:     st.frames,
		Pairs:      pairs,
		Markers:    []render.Marker{},
	}

	var fs []scene.Feature
	if st.m != nil {
		sv := st.m.View()
		lon, lat := geo.Unproject(sv.Center)
		v.Viewport = render.Viewport{
			Center:     [2]float64{lon, lat},
			Zoom:       geo.ZoomForResolution(sv.Resolution),
			Resolution: sv.Resolution,
			Width:      sv.Size.Width,
			Height:     sv.Size.Height,
		}
		v.Cursor = st.m.Cursor()
		v.Overlays = st.m.Overlays()
		if ms := st.m.Markers(); len(ms) > 0 {
			frame.Markers = ms
		}
		fs = st.m.Features()
	} else {
		v.Viewport = render.Viewport{Width: st.size.Width, Height: st.size.Height}
	}
	if v.Overlays == nil {
		v.Overlays = []render.Overlay{}
	}

	return Snapshot{View: v, Frame: frame, features: fs}
}
