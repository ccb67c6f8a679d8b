package handlers

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/luno/qkdmap/api/render"
	"github.com/luno/qkdmap/server/ops/view"
)

func PointerHandler(d Deps) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		ctx := r.Context()
		var req render.PointerRequest
		if err := readJSON(r, &req); err != nil {
			writeError(ctx, w, err)
			return
		}
		if err := d.MapView().PointerMove(ctx, req.Pixel, req.Dragging); err != nil {
			writeError(ctx, w, err)
			return
		}
		writeJSON(ctx, w, d.MapView().Snapshot().View)
	}
}

func ClickHandler(d Deps) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		ctx := r.Context()
		var req render.ClickRequest
		if err := readJSON(r, &req); err != nil {
			writeError(ctx, w, err)
			return
		}
		if err := d.MapView().Click(ctx, req.Pixel); err != nil {
			writeError(ctx, w, err)
			return
		}
		writeJSON(ctx, w, d.MapView().Snapshot().View)
	}
}

func ViewportHandler(d Deps) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		ctx := r.Context()
		var req render.ViewportRequest
		if err := readJSON(r, &req); err != nil {
			writeError(ctx, w, err)
			return
		}
		if err := d.MapView().SetViewport(ctx, req); err != nil {
			writeError(ctx, w, err)
			return
		}
		writeJSON(ctx, w, d.MapView().Snapshot().View.Viewport)
	}
}

func SelectAppHandler(d Deps) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		ctx := r.Context()
		var req render.SelectAppRequest
		if err := readJSON(r, &req); err != nil {
			writeError(ctx, w, err)
			return
		}
		if err := d.MapView().SelectApp(ctx, req.App); err != nil {
			writeError(ctx, w, err)
			return
		}
		writeJSON(ctx, w, d.MapView().Snapshot().View)
	}
}

func AnimationsHandler(d Deps) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		ctx := r.Context()
		var req render.AnimationsRequest
		if err := readJSON(r, &req); err != nil {
			writeError(ctx, w, err)
			return
		}
		var (
			enabled bool
			err     error
		)
		if req.Enabled != nil {
			enabled = *req.Enabled
			err = d.MapView().SetAnimations(ctx, enabled)
		} else {
			enabled, err = d.MapView().ToggleAnimations(ctx)
		}
		if err != nil {
			writeError(ctx, w, err)
			return
		}
		writeJSON(ctx, w, render.AnimationsResponse{
			Enabled: enabled,
			Label:   view.AnimationsLabel(enabled),
		})
	}
}

func DebugHandler(d Deps) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		ctx := r.Context()
		debug, err := d.MapView().ToggleDebug(ctx)
		if err != nil {
			writeError(ctx, w, err)
			return
		}
		writeJSON(ctx, w, render.DebugResponse{Debug: debug, Label: view.DebugLabel(debug)})
	}
}

func RefreshHandler(d Deps) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		writeJSON(r.Context(), w, render.RefreshResponse{Trigger: d.MapView().Refresh()})
	}
}
