package main

import (
	"context"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	jlog "github.com/luno/jettison/log"
	"github.com/luno/qkdmap"
	"github.com/luno/qkdmap/api"
	"github.com/luno/qkdmap/server/handlers"
	"github.com/luno/qkdmap/server/ops"
	"github.com/luno/qkdmap/server/ops/config"
	"github.com/luno/qkdmap/server/ops/geo"
	"github.com/luno/qkdmap/server/ops/view"
)

var (
	port      = flag.Int("port", 80, "Port to serve the map on")
	debugPort = flag.Int("debug_port", 8080, "Port to serve metrics and readiness on")
)

const retryBackoff = 250 * time.Millisecond

type state struct {
	Map   *view.Controller
	Store ops.PrefsStore
}

func (s state) MapView() handlers.MapView {
	return s.Map
}

func (s state) Prefs() ops.PrefsStore {
	return s.Store
}

func newPrefsStore(ctx context.Context, defaults api.Preferences) ops.PrefsStore {
	pool, err := ops.NewRedisPool(ctx)
	if errors.Is(err, ops.ErrRedisNotConfigured) {
		jlog.Info(ctx, "keeping preferences in memory")
		return ops.NewMemPrefs(defaults)
	} else if err != nil {
		jlog.Error(ctx, errors.Wrap(err, "failed to connect to redis, keeping preferences in memory"))
		return ops.NewMemPrefs(defaults)
	}
	return ops.NewRedisPrefs(pool, defaults)
}

func newController(cfg config.Config, prefs ops.PrefsStore) (*view.Controller, *view.Trigger) {
	client := qkdmap.NewClient(
		qkdmap.WithBaseURL(cfg.Backend.URL),
		qkdmap.WithToken(cfg.Backend.Token),
		qkdmap.WithRequestTimeout(cfg.Backend.Timeout),
		qkdmap.WithRetries(cfg.Backend.Retries, retryBackoff),
		qkdmap.WithBreaker(cfg.Backend.BreakerFailures, cfg.Backend.BreakerTimeout),
		qkdmap.WithMetrics(clientMetrics()),
	)
	registerBreakerState(client)

	trigger := view.NewTrigger()
	c := view.New(client,
		view.WithTrigger(trigger),
		view.WithPrefs(prefs, cfg.Viewer),
		view.WithDefaults(cfg.Defaults.Preferences()),
		view.WithMetrics(viewMetrics()),
		view.WithSize(geo.Size{Width: cfg.View.Width, Height: cfg.View.Height}),
		view.WithFallbackView(cfg.View.CenterPoint(), cfg.View.Zoom),
		view.WithFrameInterval(cfg.View.FrameInterval),
		// Retries happen inside the client.
		view.WithFetchTimeout(cfg.Backend.Timeout*time.Duration(cfg.Backend.Retries+1)),
	)
	return c, trigger
}

func main() {
	InitLogging()
	flag.Parse()
	config.MustLoadConfig()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg := config.GetConfig()
	jlog.Info(ctx, "starting map", j.MKV{
		"backend":      cfg.Backend.URL,
		"viewer":       cfg.Viewer,
		"auto_refresh": cfg.Refresh.Auto,
	})

	prefs := newPrefsStore(ctx, cfg.Defaults.Preferences())
	ctrl, trigger := newController(cfg, prefs)
	s := state{Map: ctrl, Store: prefs}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		err := ctrl.Run(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			jlog.Error(ctx, errors.Wrap(err, "map stopped"))
		}
	}()

	if cfg.Refresh.Auto {
		wg.Add(1)
		go func() {
			defer wg.Done()
			trigger.AutoRefresh(ctx, cfg.Refresh.Interval, view.NewTicker)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		runWebServer(ctx, handlers.CreateRouter(ctx, s), *port)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		runWebServer(ctx, handlers.CreateDebugRouter(), *debugPort)
	}()

	wg.Wait()
}

func runWebServer(ctx context.Context, router *httprouter.Router, port int) {
	srv := &http.Server{
		BaseContext: func(listener net.Listener) context.Context { return ctx },
		Handler:     router,
		Addr:        ":" + strconv.Itoa(port),
	}
	go shutdownOnCancel(ctx, srv)
	jlog.Info(ctx, "server listening", j.KV("port", port))
	err := srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		panic(err)
	}
	jlog.Info(ctx, "server terminated", j.KV("port", port))
}

func shutdownOnCancel(ctx context.Context, server *http.Server) {
	<-ctx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	jlog.Info(ctx, "shutting down http server")
	_ = server.Shutdown(ctx)
}
