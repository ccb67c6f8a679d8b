package handlers

import (
	"context"

	"github.com/luno/qkdmap/api"
	"github.com/luno/qkdmap/api/render"
	"github.com/luno/qkdmap/server/ops"
	"github.com/luno/qkdmap/server/ops/view"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// MapView is the live map served to the dashboard.
type MapView interface {
	Snapshot() view.Snapshot
	Subscribe() (<-chan struct{}, func())
	Done() <-chan struct{}

	SelectApp(ctx context.Context, name string) error
	SetAnimations(ctx context.Context, enabled bool) error
	ToggleAnimations(ctx context.Context) (bool, error)
	ToggleDebug(ctx context.Context) (bool, error)
	PointerMove(ctx context.Context, px [2]float64, dragging bool) error
	Click(ctx context.Context, px [2]float64) error
	SetViewport(ctx context.Context, vp render.ViewportRequest) error
	Refresh() int64
	Layout(ctx context.Context, node, highlightDevice api.Ref) (*geojson.FeatureCollection, orb.Point, error)
}

var _ MapView = (*view.Controller)(nil)

type Deps interface {
	MapView() MapView
	Prefs() ops.PrefsStore
}
