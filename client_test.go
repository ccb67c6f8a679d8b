package qkdmap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/luno/jettison/jtest"
	"github.com/luno/qkdmap/api"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.Handler, opts ...ClientOption) *Client {
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	opts = append([]ClientOption{
		WithBaseURL(srv.URL),
		WithHTTPClient(srv.Client()),
		WithRetries(0, time.Millisecond),
	}, opts...)
	return NewClient(opts...)
}

func TestClientGetMap(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/map", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{
			"nodes": [
				{"id": 1, "name": "A", "coordinates": [25, 45], "endpoint": 1, "status": "up"},
				{"id": "2", "name": "B", "coordinates": {"lat": "45.5", "long": 26}}
			],
			"connections": [{"from": 1, "to": "B", "status": "down", "apps": ["chat"]}]
		}`))
	}), WithToken("secret"))

	m, err := c.GetMap(context.Background())
	jtest.RequireNil(t, err)
	assert.Equal(t, api.MapData{
		Nodes: []api.Node{
			{ID: "1", Name: "A", Coordinates: api.Coordinates{Lon: 25, Lat: 45}, Endpoint: true, Status: "up"},
			{ID: "2", Name: "B", Coordinates: api.Coordinates{Lon: 26, Lat: 45.5}},
		},
		Connections: []api.Connection{
			{From: "1", To: "B", Status: "down", Apps: []string{"chat"}},
		},
	}, m)
}

func TestClientGetMapMalformedFields(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"nodes": [
				{"id": 1, "name": 7, "coordinates": [25, 45], "status": 1},
				{"id": 2, "name": "B", "coordinates": [26, 45]}
			],
			"connections": [{"from": 1, "to": 2, "apps": "chat"}]
		}`))
	}))

	m, err := c.GetMap(context.Background())
	jtest.RequireNil(t, err)
	require.Len(t, m.Nodes, 2)
	assert.Equal(t, "7", m.Nodes[0].Name)
	assert.Equal(t, "1", m.Nodes[0].Status)
	require.Len(t, m.Connections, 1)
	assert.Empty(t, m.Connections[0].Apps)
	assert.Equal(t, api.Ref("2"), m.Connections[0].To)
}

func TestClientGetApps(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`["video", {"name": "chat", "nodes": [1, "B"]}, {"nodes": []}, 7]`))
	}))

	apps, err := c.GetApps(context.Background())
	jtest.RequireNil(t, err)
	assert.Equal(t, []api.App{
		{Name: "video"},
		{Name: "chat", Nodes: []api.Ref{"1", "B"}, Color: api.DefaultAppColor, HasDetail: true},
	}, apps)
}

func TestClientGetDevices(t *testing.T) {
	testCases := []struct {
		name string
		body string
		exp  []api.Device
	}{
		{name: "filters other nodes",
			body: `[{"id": "d1", "node_id": "n 1"}, {"id": "d2", "node_id": "n2"}]`,
			exp:  []api.Device{{ID: "d1", NodeID: "n 1"}},
		},
		{name: "not a list",
			body: `{"error": "nope"}`,
			exp:  []api.Device{},
		},
		{name: "empty",
			body: `[]`,
			exp:  []api.Device{},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/devices", r.URL.Path)
				assert.Equal(t, "n 1", r.URL.Query().Get("node"))
				_, _ = w.Write([]byte(tc.body))
			}))
			ds, err := c.GetDevices(context.Background(), "n 1")
			jtest.RequireNil(t, err)
			assert.Equal(t, tc.exp, ds)
		})
	}
}

func TestClientStatusError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "broken", http.StatusInternalServerError)
	}))
	_, err := c.GetMap(context.Background())
	jtest.Assert(t, ErrBackendStatus, err)
}

func TestClientRetriesTimeouts(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			<-r.Context().Done()
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}),
		WithRequestTimeout(50*time.Millisecond),
		WithRetries(2, time.Millisecond),
	)

	apps, err := c.GetApps(context.Background())
	jtest.RequireNil(t, err)
	assert.Empty(t, apps)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClientBreakerOpens(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}), WithBreaker(2, time.Hour))

	ctx := context.Background()
	for range 2 {
		_, err := c.GetMap(ctx)
		jtest.Assert(t, ErrBackendStatus, err)
	}
	require.Equal(t, gobreaker.StateOpen, c.BreakerState())

	_, err := c.GetMap(ctx)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(2), calls.Load())
}
