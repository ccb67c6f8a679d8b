package handlers

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/luno/jettison/errors"
	"github.com/luno/qkdmap/api"
	"github.com/luno/qkdmap/api/render"
	"github.com/luno/qkdmap/server/ops/geo"
)

func GetViewHandler(d Deps) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		writeJSON(r.Context(), w, d.MapView().Snapshot().View)
	}
}

func GetFeaturesHandler(d Deps) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		writeJSON(r.Context(), w, d.MapView().Snapshot().GeoJSON())
	}
}

func GetFrameHandler(d Deps) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		writeJSON(r.Context(), w, d.MapView().Snapshot().Frame)
	}
}

func GetLayoutHandler(d Deps) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		ctx := r.Context()
		q := r.URL.Query()
		node := api.Ref(q.Get("node"))
		if node == "" {
			writeError(ctx, w, errors.Wrap(errBadRequest, "node required"))
			return
		}
		fc, center, err := d.MapView().Layout(ctx, node, api.Ref(q.Get("device")))
		if err != nil {
			writeError(ctx, w, err)
			return
		}
		lon, lat := geo.Unproject(center)
		writeJSON(ctx, w, render.LayoutResponse{
			Center:   [2]float64{lon, lat},
			Features: fc,
		})
	}
}

func GetViewersHandler(d Deps) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		ctx := r.Context()
		vs, err := d.Prefs().Viewers(ctx)
		if err != nil {
			writeError(ctx, w, errors.Wrap(err, "list viewers"))
			return
		}
		if vs == nil {
			vs = []string{}
		}
		writeJSON(ctx, w, render.ViewersResponse{Viewers: vs})
	}
}
