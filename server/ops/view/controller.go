package view

import (
	"context"
	"sync"
	"time"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/luno/jettison/log"
	"github.com/luno/qkdmap/api"
	"github.com/luno/qkdmap/api/render"
	"github.com/luno/qkdmap/server/ops/anim"
	"github.com/luno/qkdmap/server/ops/features"
	"github.com/luno/qkdmap/server/ops/geo"
	"github.com/luno/qkdmap/server/ops/interact"
	"github.com/luno/qkdmap/server/ops/scene"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

var (
	ErrStopped     = errors.New("view controller stopped", j.C("ERR_9d0c6b1e52f4a7c3"))
	ErrUnknownApp  = errors.New("unknown app", j.C("ERR_2f81ab6c0d9e4453"))
	ErrUnknownNode = errors.New("unknown node", j.C("ERR_c47e05d1b3a98f26"))
)

const (
	NoPermission = "You do not have permissions to view map data."

	LabelDisableAnimations = "Disable Animations"
	LabelEnableAnimations  = "Enable Animations"
	LabelShowDebug         = "Show Debug"
	LabelHideDebug         = "Hide Debug"

	FitPadding = 50

	DefaultFrameInterval = 16 * time.Millisecond
	DefaultFetchTimeout  = 10 * time.Second
)

var DefaultSize = geo.Size{Width: 1280, Height: 720}

// Backend is the QKD REST API the map is drawn from.
type Backend interface {
	GetMap(ctx context.Context) (api.MapData, error)
	GetApps(ctx context.Context) ([]api.App, error)
	// GetDevices returns the devices attached to the node.
	GetDevices(ctx context.Context, node api.Ref) ([]api.Device, error)
}

type PrefsStore interface {
	GetPrefs(ctx context.Context, viewer string) (api.Preferences, error)
	SetPrefs(ctx context.Context, viewer string, p api.Preferences) error
}

type Option func(*Controller)

func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

func WithTicker(newTicker func(time.Duration) Ticker) Option {
	return func(c *Controller) {
		c.newTicker = newTicker
	}
}

func WithFrameInterval(d time.Duration) Option {
	return func(c *Controller) {
		c.frameInterval = d
	}
}

func WithFetchTimeout(d time.Duration) Option {
	return func(c *Controller) {
		c.fetchTimeout = d
	}
}

func WithTrigger(t *Trigger) Option {
	return func(c *Controller) {
		c.trigger = t
	}
}

func WithPrefs(s PrefsStore, viewer string) Option {
	return func(c *Controller) {
		c.prefs = s
		c.viewer = viewer
	}
}

func WithMetrics(m Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

func WithSize(s geo.Size) Option {
	return func(c *Controller) {
		c.st.size = s
	}
}

// WithFallbackView sets the view used while no node has a position.
func WithFallbackView(center [2]float64, zoom float64) Option {
	return func(c *Controller) {
		c.center = center
		c.zoom = zoom
	}
}

// WithDefaults sets the preferences used when none are stored.
func WithDefaults(p api.Preferences) Option {
	return func(c *Controller) {
		c.st.prefs = p
	}
}

// Controller owns the map of one viewer. All state is held by the Run
// goroutine, other goroutines talk to it through commands and read the
// snapshots it publishes.
type Controller struct {
	backend Backend
	trigger *Trigger
	prefs   PrefsStore
	viewer  string
	metrics Metrics

	now           func() time.Time
	newTicker     func(time.Duration) Ticker
	frameInterval time.Duration
	fetchTimeout  time.Duration
	center        [2]float64
	zoom          float64

	cmds    chan command
	results chan result
	done    chan struct{}

	st state

	mu      sync.RWMutex
	snap    Snapshot
	subs    map[int]chan struct{}
	nextSub int
}

type state struct {
	ctx context.Context

	nodes       []api.Node
	connections []api.Connection
	apps        []api.App
	hasMapData  bool
	fetchSeq    int64

	prefs api.Preferences
	size  geo.Size

	generation int64
	m          *scene.Map
	set        features.Set
	layer      *interact.Layer
	anim       anim.State
	ticker     Ticker
	frames     int64

	selection interact.Selection
	devices   []api.Device
}

type command struct {
	fn   func() error
	errc chan error
}

type resultKind int

const (
	resultMap resultKind = iota
	resultApps
	resultDevices
)

type result struct {
	kind    resultKind
	seq     int64
	node    api.Ref
	mapData api.MapData
	apps    []api.App
	devices []api.Device
	err     error
}

func New(b Backend, opts ...Option) *Controller {
	c := &Controller{
		backend:       b,
		now:           time.Now,
		newTicker:     NewTicker,
		frameInterval: DefaultFrameInterval,
		fetchTimeout:  DefaultFetchTimeout,
		center:        geo.DefaultCenter,
		zoom:          geo.DefaultZoom,
		cmds:          make(chan command),
		results:       make(chan result),
		done:          make(chan struct{}),
		subs:          make(map[int]chan struct{}),
		st: state{
			hasMapData: true,
			size:       DefaultSize,
			prefs:      api.Preferences{SelectedApp: features.GlobalApp, Animations: true},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.trigger == nil {
		c.trigger = NewTrigger()
		c.trigger.now = c.now
	}
	c.metrics.defaultUnused()
	if c.st.prefs.SelectedApp == "" {
		c.st.prefs.SelectedApp = features.GlobalApp
	}
	c.snap = c.snapshot()
	return c
}

func (c *Controller) Trigger() *Trigger {
	return c.trigger
}

// Run fetches the map and serves commands until ctx is cancelled, then
// tears the scene down.
func (c *Controller) Run(ctx context.Context) error {
	defer close(c.done)
	c.st.ctx = ctx

	c.loadPrefs(ctx)

	refresh, unsub := c.trigger.Subscribe()
	defer unsub()

	defer func() {
		c.teardown()
		c.publish()
	}()

	c.rebuild(ctx)
	c.fetch(ctx)
	c.publish()

	for {
		var tick <-chan time.Time
		if c.st.ticker != nil {
			tick = c.st.ticker.C()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-refresh:
			c.debugLog(ctx, "refreshing map data", j.MKV{"trigger": c.trigger.Value()})
			c.fetch(ctx)
			continue
		case r := <-c.results:
			c.handleResult(ctx, r)
		case cmd := <-c.cmds:
			// Callers read the snapshot once the command returns.
			err := cmd.fn()
			c.publish()
			cmd.errc <- err
			continue
		case now := <-tick:
			c.frame(now)
		}
		c.publish()
	}
}

func (c *Controller) post(ctx context.Context, r result) {
	select {
	case c.results <- r:
	case <-ctx.Done():
	}
}

func (c *Controller) fetch(ctx context.Context) {
	c.st.fetchSeq++
	seq := c.st.fetchSeq

	go func() {
		fctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
		defer cancel()
		md, err := c.backend.GetMap(fctx)
		c.post(ctx, result{kind: resultMap, seq: seq, mapData: md, err: err})
	}()

	go func() {
		fctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
		defer cancel()
		apps, err := c.backend.GetApps(fctx)
		c.post(ctx, result{kind: resultApps, seq: seq, apps: apps, err: err})
	}()
}

func (c *Controller) fetchDevices(ctx context.Context, node api.Ref) {
	go func() {
		fctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
		defer cancel()
		ds, err := c.backend.GetDevices(fctx, node)
		c.post(ctx, result{kind: resultDevices, node: node, devices: ds, err: err})
	}()
}

func (c *Controller) handleResult(ctx context.Context, r result) {
	switch r.kind {
	case resultMap:
		if r.seq != c.st.fetchSeq {
			return
		}
		if r.err != nil {
			log.Error(ctx, errors.Wrap(r.err, "fetch map data"))
			c.metrics.FetchErrors.Inc("map")
			c.st.hasMapData = false
		} else {
			c.st.nodes = r.mapData.Nodes
			c.st.connections = r.mapData.Connections
			c.st.hasMapData = len(r.mapData.Nodes) > 0
		}
		c.rebuild(ctx)

	case resultApps:
		if r.seq != c.st.fetchSeq {
			return
		}
		if r.err != nil {
			log.Error(ctx, errors.Wrap(r.err, "fetch apps"))
			c.metrics.FetchErrors.Inc("apps")
			c.st.apps = nil
		} else {
			c.st.apps = r.apps
		}
		c.rebuild(ctx)

	case resultDevices:
		sel := c.st.selection.Node
		if sel == nil || sel.Node.ID != r.node {
			c.debugLog(ctx, "discarded devices of unselected node", j.MKV{"node": r.node})
			return
		}
		if r.err != nil {
			log.Error(ctx, errors.Wrap(r.err, "fetch devices", j.KV("node", r.node)))
			c.metrics.FetchErrors.Inc("devices")
			c.st.devices = nil
			return
		}
		c.st.devices = r.devices
	}
}

func (c *Controller) teardown() {
	if c.st.layer != nil {
		c.st.layer.Detach()
		c.st.layer = nil
	}
	if c.st.m != nil {
		anim.Clear(c.st.m, c.st.anim)
		c.st.m.RemoveLayer(scene.LayerKeys)
	}
	if c.st.ticker != nil {
		c.st.ticker.Stop()
		c.st.ticker = nil
	}
	if c.st.m != nil {
		c.st.m.Dispose()
		c.st.m = nil
	}
	c.st.anim = anim.State{}
	c.st.set = features.Set{}
	c.st.selection = interact.Selection{}
	c.st.devices = nil
	c.metrics.KeyPairs.Set(0)
}

func (c *Controller) fitView() scene.View {
	v := scene.View{
		Center:     geo.Project(c.center[0], c.center[1]),
		Resolution: geo.ResolutionForZoom(c.zoom),
		Size:       c.st.size,
	}
	cs := make([]api.Coordinates, 0, len(c.st.nodes))
	for _, n := range c.st.nodes {
		cs = append(cs, n.Coordinates)
	}
	if b, ok := geo.Bound(cs); ok {
		v.Center, v.Resolution = geo.Fit(b, c.st.size, FitPadding, geo.DefaultMaxZoom)
	}
	return v
}

func (c *Controller) rebuild(ctx context.Context) {
	c.teardown()
	c.st.generation++
	c.metrics.Rebuilds.Inc()

	if !c.st.hasMapData {
		return
	}

	layers := []scene.Layer{scene.LayerBase, scene.LayerConnections, scene.LayerNodes}
	if c.st.prefs.Animations {
		layers = append(layers, scene.LayerKeys)
	}
	m := scene.NewMap(c.fitView(), layers...)

	set := features.Build(ctx, features.Input{
		Nodes:       c.st.nodes,
		Connections: c.st.connections,
		Apps:        c.st.apps,
		Selected:    c.st.prefs.SelectedApp,
	})
	set.Draw(m)

	layer := interact.New(m, set, func(sel interact.Selection) {
		c.onSelect(ctx, sel)
	})
	layer.Attach()

	c.st.m = m
	c.st.set = set
	c.st.layer = layer

	if c.st.prefs.Animations {
		c.st.anim = anim.NewState(anim.TracksFor(set))
		c.st.ticker = c.newTicker(c.frameInterval)
		c.debugLog(ctx, "animations enabled, starting frames", j.MKV{"tracks": len(c.st.anim.Tracks)})
	} else {
		c.debugLog(ctx, "animations disabled, no frames", nil)
	}
	c.debugLog(ctx, "map initialised", j.MKV{
		"generation":  c.st.generation,
		"nodes":       len(set.Nodes),
		"connections": len(set.Connections),
		"app":         set.Selected,
	})
}

func (c *Controller) onSelect(ctx context.Context, sel interact.Selection) {
	c.st.selection = sel
	c.st.devices = nil
	if sel.Node != nil {
		c.fetchDevices(ctx, sel.Node.Node.ID)
	}
}

func (c *Controller) frame(now time.Time) {
	if c.st.m == nil || c.st.ticker == nil {
		return
	}
	next, eff := anim.Step(c.st.anim, now, c.st.m.View().Resolution)
	c.st.anim = next
	c.st.frames++
	if !eff.Empty() {
		anim.Apply(c.st.m, eff)
		c.st.m.Render()
	}

	c.metrics.Frames.Inc()
	c.metrics.KeyPairs.Set(float64(len(next.Pairs)))
}

func (c *Controller) debugLog(ctx context.Context, msg string, kv j.MKV) {
	if !c.st.prefs.Debug {
		return
	}
	log.Info(ctx, msg, kv)
}

func (c *Controller) loadPrefs(ctx context.Context) {
	if c.prefs == nil {
		return
	}
	p, err := c.prefs.GetPrefs(ctx, c.viewer)
	if err != nil {
		log.Error(ctx, errors.Wrap(err, "load preferences", j.KV("viewer", c.viewer)))
		return
	}
	if p.SelectedApp == "" {
		p.SelectedApp = features.GlobalApp
	}
	c.st.prefs = p
}

func (c *Controller) savePrefs(ctx context.Context) {
	if c.prefs == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()
	err := c.prefs.SetPrefs(ctx, c.viewer, c.st.prefs)
	if err != nil {
		log.Error(ctx, errors.Wrap(err, "save preferences", j.KV("viewer", c.viewer)))
	}
}

// do runs fn on the Run goroutine.
func (c *Controller) do(ctx context.Context, fn func() error) error {
	cmd := command{fn: fn, errc: make(chan error, 1)}
	select {
	case c.cmds <- cmd:
	case <-c.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-cmd.errc:
		return err
	case <-c.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) hasApp(name string) bool {
	if name == features.GlobalApp {
		return true
	}
	for _, a := range c.st.apps {
		if a.Name == name {
			return true
		}
	}
	return false
}

// SelectApp filters the map by an application, "global" shows status.
func (c *Controller) SelectApp(ctx context.Context, name string) error {
	return c.do(ctx, func() error {
		if !c.hasApp(name) {
			return errors.Wrap(ErrUnknownApp, "", j.KV("app", name))
		}
		if name == c.st.prefs.SelectedApp {
			return nil
		}
		c.st.prefs.SelectedApp = name
		c.savePrefs(c.st.ctx)
		c.rebuild(c.st.ctx)
		return nil
	})
}

func (c *Controller) SetAnimations(ctx context.Context, enabled bool) error {
	return c.do(ctx, func() error {
		c.setAnimations(enabled)
		return nil
	})
}

// ToggleAnimations flips animations and returns the new setting.
func (c *Controller) ToggleAnimations(ctx context.Context) (bool, error) {
	var enabled bool
	err := c.do(ctx, func() error {
		enabled = !c.st.prefs.Animations
		c.setAnimations(enabled)
		return nil
	})
	return enabled, err
}

func (c *Controller) setAnimations(enabled bool) {
	if c.st.prefs.Animations == enabled {
		return
	}
	c.debugLog(c.st.ctx, "toggling animations", j.MKV{"enabled": enabled})
	c.st.prefs.Animations = enabled
	c.savePrefs(c.st.ctx)
	c.rebuild(c.st.ctx)
}

// ToggleDebug flips debug mode and returns the new setting.
func (c *Controller) ToggleDebug(ctx context.Context) (bool, error) {
	var debug bool
	err := c.do(ctx, func() error {
		c.st.prefs.Debug = !c.st.prefs.Debug
		debug = c.st.prefs.Debug
		c.savePrefs(c.st.ctx)
		return nil
	})
	return debug, err
}

func (c *Controller) PointerMove(ctx context.Context, px [2]float64, dragging bool) error {
	return c.do(ctx, func() error {
		if c.st.m != nil {
			c.st.m.Dispatch(scene.Event{Type: scene.EventPointerMove, Pixel: px, Dragging: dragging})
		}
		return nil
	})
}

func (c *Controller) Click(ctx context.Context, px [2]float64) error {
	return c.do(ctx, func() error {
		if c.st.m != nil {
			c.st.m.Dispatch(scene.Event{Type: scene.EventClick, Pixel: px})
		}
		return nil
	})
}

// SetViewport follows the client's view. A zero size or a missing centre
// keeps the current one, the resolution wins over the zoom when both are set.
func (c *Controller) SetViewport(ctx context.Context, vp render.ViewportRequest) error {
	return c.do(ctx, func() error {
		if vp.Width > 0 && vp.Height > 0 {
			c.st.size = geo.Size{Width: vp.Width, Height: vp.Height}
		}
		if c.st.m == nil {
			return nil
		}
		v := c.st.m.View()
		v.Size = c.st.size
		if vp.Center != nil {
			p := geo.Project(vp.Center[0], vp.Center[1])
			if geo.Valid(p) {
				v.Center = p
			}
		}
		if vp.Resolution > 0 {
			v.Resolution = vp.Resolution
		} else if vp.Zoom > 0 {
			v.Resolution = geo.ResolutionForZoom(vp.Zoom)
		}
		c.st.m.SetView(v)
		return nil
	})
}

// Refresh refetches the map data.
func (c *Controller) Refresh() int64 {
	return c.trigger.Manual()
}

// Layout renders the surroundings of a node. Devices are only known for
// the selected node.
func (c *Controller) Layout(ctx context.Context, node api.Ref, highlightDevice api.Ref) (*geojson.FeatureCollection, orb.Point, error) {
	var (
		fc     *geojson.FeatureCollection
		center orb.Point
	)
	err := c.do(ctx, func() error {
		var (
			n     api.Node
			found bool
		)
		for _, cand := range c.st.nodes {
			if cand.Matches(node) {
				n, found = cand, true
				break
			}
		}
		if !found {
			return errors.Wrap(ErrUnknownNode, "", j.KV("node", node))
		}
		in := features.LayoutInput{
			Nodes:           c.st.nodes,
			Connections:     c.st.connections,
			Node:            n,
			HighlightNode:   n.ID,
			HighlightDevice: highlightDevice,
		}
		if sel := c.st.selection.Node; sel != nil && sel.Node.ID == n.ID {
			in.Devices = c.st.devices
		}
		fc = features.Layout(in)
		center = features.LayoutCenter(in)
		return nil
	})
	return fc, center, err
}
