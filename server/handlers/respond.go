package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/log"
	"github.com/luno/qkdmap/server/ops/view"
)

const maxBodySize = 1 << 16

var errBadRequest = errors.New("bad request")

func writeJSON(ctx context.Context, w http.ResponseWriter, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error(ctx, errors.Wrap(err, "json marshal"))
		http.Error(w, "Internal Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(b)
	if err != nil {
		log.Error(ctx, err)
	}
}

// readJSON decodes the request body into v, an empty body leaves v as is.
func readJSON(r *http.Request, v any) error {
	b, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return errors.Wrap(errBadRequest, err.Error())
	}
	if len(b) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, v); err != nil {
		return errors.Wrap(errBadRequest, err.Error())
	}
	return nil
}

func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.IsAny(err, errBadRequest, view.ErrUnknownApp, view.ErrUnknownNode):
		http.Error(w, "Bad Request", http.StatusBadRequest)
	case errors.IsAny(err, view.ErrStopped, context.Canceled):
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
	default:
		log.Error(ctx, err)
		http.Error(w, "Internal Error", http.StatusInternalServerError)
	}
}
