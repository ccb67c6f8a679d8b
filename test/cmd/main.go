// Command cmd serves a simulated QKD backend with a small network whose
// link states change over time.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/luno/jettison/log"
	"github.com/luno/qkdmap/api"
)

var (
	addr   = flag.String("addr", ":8090", "Address to serve the simulated backend on")
	period = flag.Duration("period", 5*time.Second, "How often link states change")
	seed   = flag.Int64("seed", 0, "Seed for the simulation, zero picks one")
)

var nodes = []api.Node{
	{ID: "1", Name: "Bucharest", Coordinates: api.Coordinates{Lon: 26.1025, Lat: 44.4268}, Endpoint: true},
	{ID: "2", Name: "Ploiesti", Coordinates: api.Coordinates{Lon: 26.0129, Lat: 44.9419}},
	{ID: "3", Name: "Brasov", Coordinates: api.Coordinates{Lon: 25.6012, Lat: 45.6427}, Endpoint: true},
	{ID: "4", Name: "Pitesti", Coordinates: api.Coordinates{Lon: 24.8692, Lat: 44.8565}},
	{ID: "5", Name: "Craiova", Coordinates: api.Coordinates{Lon: 23.7949, Lat: 44.3302}, Endpoint: true},
	{ID: "6", Name: "Constanta", Coordinates: api.Coordinates{Lon: 28.6348, Lat: 44.1598}, Endpoint: true},
}

var links = []api.Connection{
	{From: "1", To: "2", Apps: []string{"video"}},
	{From: "2", To: "3", Apps: []string{"video"}},
	{From: "1", To: "4"},
	{From: "4", To: "5", Apps: []string{"backup"}},
	{From: "1", To: "6"},
	{From: "3", To: "9"},
}

var apps = []any{
	"video",
	map[string]any{"name": "backup", "nodes": []string{"1", "4", "5"}, "color": "#4682b4"},
	map[string]any{"name": "telemetry", "nodes": []int{1, 6}},
}

var statuses = map[string]int{
	"up":       90,
	"degraded": 6,
	"down":     4,
}

type network struct {
	mu    sync.Mutex
	r     *rand.Rand
	nodes []api.Node
	conns []api.Connection
}

func newNetwork(seed int64) *network {
	n := &network{
		r:     rand.New(rand.NewSource(seed)),
		nodes: append([]api.Node(nil), nodes...),
		conns: append([]api.Connection(nil), links...),
	}
	n.step()
	return n
}

func (n *network) step() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := range n.nodes {
		n.nodes[i].Status = ChooseWeighted(n.r, statuses)
	}
	for i := range n.conns {
		n.conns[i].Status = ChooseWeighted(n.r, statuses)
	}
}

func (n *network) mapData() api.MapData {
	n.mu.Lock()
	defer n.mu.Unlock()
	return api.MapData{
		Nodes:       append([]api.Node(nil), n.nodes...),
		Connections: append([]api.Connection(nil), n.conns...),
	}
}

func (n *network) devices(node api.Ref) []api.Device {
	var ret []api.Device
	for _, nd := range nodes {
		if !nd.Matches(node) {
			continue
		}
		for i := 0; i < 3; i++ {
			c := api.Coordinates{
				Lon: nd.Coordinates.Lon + 0.01*float64(i+1),
				Lat: nd.Coordinates.Lat - 0.01*float64(i),
			}
			ret = append(ret, api.Device{
				ID:          api.Ref(string(nd.ID) + "-" + string(rune('a'+i))),
				NodeID:      nd.ID,
				Name:        nd.Name + " device",
				Coordinates: &c,
			})
		}
	}
	return ret
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func router(n *network) http.Handler {
	r := httprouter.New()
	r.GET("/api/map", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		writeJSON(w, n.mapData())
	})
	r.GET("/api/apps", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		writeJSON(w, apps)
	})
	r.GET("/api/devices", func(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
		writeJSON(w, n.devices(api.Ref(req.URL.Query().Get("node"))))
	})
	return r
}

func simulate(ctx context.Context, n *network) error {
	ti := time.NewTicker(*period)
	defer ti.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ti.C:
			n.step()
		}
	}
}

func main() {
	flag.Parse()
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	s := *seed
	if s == 0 {
		s = time.Now().UnixNano()
	}
	n := newNetwork(s)

	srv := &http.Server{Addr: *addr, Handler: router(n)}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		err := simulate(ctx, n)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error(ctx, err)
		}
		_ = srv.Shutdown(context.Background())
	}()

	log.Info(ctx, "serving simulated backend", j.MKV{"addr": *addr, "seed": s})
	err := srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error(ctx, errors.Wrap(err, "serve"))
	}
	cancel()
	wg.Wait()
}
