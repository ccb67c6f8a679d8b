package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/luno/jettison/jtest"
	"github.com/luno/qkdmap/api"
	"github.com/luno/qkdmap/api/render"
	"github.com/luno/qkdmap/server/ops"
	"github.com/luno/qkdmap/server/ops/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type backend struct{}

func (backend) GetMap(context.Context) (api.MapData, error) {
	return api.MapData{
		Nodes: []api.Node{
			{ID: "a", Name: "A", Coordinates: api.Coordinates{Lon: 25, Lat: 45}, Status: "up"},
			{ID: "b", Name: "B", Coordinates: api.Coordinates{Lon: 26, Lat: 45}, Endpoint: true},
		},
		Connections: []api.Connection{{From: "a", To: "b", Status: "up", Apps: []string{"chat"}}},
	}, nil
}

func (backend) GetApps(context.Context) ([]api.App, error) {
	return []api.App{{Name: "chat", Nodes: []api.Ref{"a", "b"}, Color: "#ff0000", HasDetail: true}}, nil
}

func (backend) GetDevices(context.Context, api.Ref) ([]api.Device, error) {
	return nil, nil
}

type deps struct {
	mv    *view.Controller
	prefs *ops.MemPrefs
}

func (d deps) MapView() MapView      { return d.mv }
func (d deps) Prefs() ops.PrefsStore { return d.prefs }

func start(t *testing.T) (*httptest.Server, *view.Controller, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	prefs := ops.NewMemPrefs(api.Preferences{SelectedApp: "global", Animations: true})
	c := view.New(backend{}, view.WithPrefs(prefs, "wall"))
	go func() {
		_ = c.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-c.Done()
	})

	srv := httptest.NewServer(CreateRouter(ctx, deps{mv: c, prefs: prefs}))
	t.Cleanup(srv.Close)

	require.Eventually(t, func() bool {
		s := c.Snapshot()
		return len(s.View.Apps) == 2 && len(s.GeoJSON().Features) > 0
	}, 2*time.Second, 10*time.Millisecond)
	return srv, c, cancel
}

func do(t *testing.T, srv *httptest.Server, method, path, body string) (int, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	jtest.RequireNil(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := srv.Client().Do(req)
	jtest.RequireNil(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	jtest.RequireNil(t, err)
	return resp.StatusCode, b
}

func decode[T any](t *testing.T, b []byte) T {
	t.Helper()
	var v T
	jtest.RequireNil(t, json.Unmarshal(b, &v))
	return v
}

func TestGetView(t *testing.T) {
	srv, _, _ := start(t)

	code, b := do(t, srv, http.MethodGet, "/qkdmap/api/view", "")
	require.Equal(t, http.StatusOK, code)
	v := decode[render.View](t, b)
	assert.True(t, v.HasMapData)
	assert.Equal(t, "global", v.SelectedApp)
	assert.Equal(t, []render.AppButton{{Name: "global", Active: true}, {Name: "chat"}}, v.Apps)
	assert.Equal(t, view.LabelDisableAnimations, v.AnimationsLabel)
	assert.Nil(t, v.Telemetry)
}

func TestGetFeatures(t *testing.T) {
	srv, _, _ := start(t)

	code, b := do(t, srv, http.MethodGet, "/qkdmap/api/features", "")
	require.Equal(t, http.StatusOK, code)
	fc := decode[struct {
		Type     string            `json:"type"`
		Features []json.RawMessage `json:"features"`
	}](t, b)
	assert.Equal(t, "FeatureCollection", fc.Type)
	assert.GreaterOrEqual(t, len(fc.Features), 3)

	code, b = do(t, srv, http.MethodGet, "/qkdmap/api/frame", "")
	require.Equal(t, http.StatusOK, code)
	f := decode[render.Frame](t, b)
	assert.NotNil(t, f.Markers)
}

func TestSelectApp(t *testing.T) {
	srv, _, _ := start(t)

	code, _ := do(t, srv, http.MethodPost, "/qkdmap/api/app", `{"app": "video"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, srv, http.MethodPost, "/qkdmap/api/app", `{"app": `)
	assert.Equal(t, http.StatusBadRequest, code)

	code, b := do(t, srv, http.MethodPost, "/qkdmap/api/app", `{"app": "chat"}`)
	require.Equal(t, http.StatusOK, code)
	v := decode[render.View](t, b)
	assert.Equal(t, "chat", v.SelectedApp)

	code, b = do(t, srv, http.MethodGet, "/qkdmap/api/viewers", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, render.ViewersResponse{Viewers: []string{"wall"}}, decode[render.ViewersResponse](t, b))
}

func TestToggles(t *testing.T) {
	srv, c, _ := start(t)

	code, b := do(t, srv, http.MethodPost, "/qkdmap/api/animations", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, render.AnimationsResponse{Enabled: false, Label: view.LabelEnableAnimations},
		decode[render.AnimationsResponse](t, b))
	assert.Empty(t, c.Snapshot().Frame.Markers)

	code, b = do(t, srv, http.MethodPost, "/qkdmap/api/animations", `{"enabled": true}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, render.AnimationsResponse{Enabled: true, Label: view.LabelDisableAnimations},
		decode[render.AnimationsResponse](t, b))

	code, b = do(t, srv, http.MethodPost, "/qkdmap/api/debug", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, render.DebugResponse{Debug: true, Label: view.LabelHideDebug},
		decode[render.DebugResponse](t, b))
	assert.NotNil(t, c.Snapshot().View.Telemetry)
}

func TestPointerAndClick(t *testing.T) {
	srv, _, _ := start(t)

	code, _ := do(t, srv, http.MethodPost, "/qkdmap/api/pointer", `not json`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, b := do(t, srv, http.MethodPost, "/qkdmap/api/pointer", `{"pixel": [1, 1]}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "", decode[render.View](t, b).Cursor)

	code, b = do(t, srv, http.MethodPost, "/qkdmap/api/click", `{"pixel": [1, 1]}`)
	require.Equal(t, http.StatusOK, code)
	v := decode[render.View](t, b)
	assert.Nil(t, v.SelectedNode)
	assert.Nil(t, v.SelectedConnection)
}

func TestViewport(t *testing.T) {
	srv, _, _ := start(t)

	code, b := do(t, srv, http.MethodPost, "/qkdmap/api/viewport",
		`{"center": [25.5, 45], "zoom": 9, "width": 640, "height": 480}`)
	require.Equal(t, http.StatusOK, code)
	vp := decode[render.Viewport](t, b)
	assert.InDelta(t, 25.5, vp.Center[0], 1e-6)
	assert.InDelta(t, 45, vp.Center[1], 1e-6)
	assert.InDelta(t, 9, vp.Zoom, 1e-6)
	assert.Equal(t, 640.0, vp.Width)
	assert.Equal(t, 480.0, vp.Height)

	code, b = do(t, srv, http.MethodPost, "/qkdmap/api/viewport", `{"center": [0, 0]}`)
	require.Equal(t, http.StatusOK, code)
	vp = decode[render.Viewport](t, b)
	assert.InDelta(t, 0, vp.Center[0], 1e-6)
	assert.InDelta(t, 0, vp.Center[1], 1e-6)
	assert.InDelta(t, 9, vp.Zoom, 1e-6)
	assert.Equal(t, 640.0, vp.Width)
}

func TestGetLayout(t *testing.T) {
	srv, _, _ := start(t)

	testCases := []struct {
		name    string
		query   string
		expCode int
	}{
		{name: "missing node", query: "", expCode: http.StatusBadRequest},
		{name: "unknown node", query: "?node=zz", expCode: http.StatusBadRequest},
		{name: "by id", query: "?node=a", expCode: http.StatusOK},
		{name: "by name", query: "?node=B", expCode: http.StatusOK},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			code, _ := do(t, srv, http.MethodGet, "/qkdmap/api/layout"+tc.query, "")
			assert.Equal(t, tc.expCode, code)
		})
	}

	_, b := do(t, srv, http.MethodGet, "/qkdmap/api/layout?node=a", "")
	l := decode[struct {
		Center   [2]float64 `json:"center"`
		Features struct {
			Features []json.RawMessage `json:"features"`
		} `json:"features"`
	}](t, b)
	assert.InDelta(t, 25, l.Center[0], 1e-6)
	assert.InDelta(t, 45, l.Center[1], 1e-6)
	assert.NotEmpty(t, l.Features.Features)
}

func TestRefresh(t *testing.T) {
	srv, c, _ := start(t)

	before := c.Trigger().Value()
	code, b := do(t, srv, http.MethodPost, "/qkdmap/api/refresh", "")
	require.Equal(t, http.StatusOK, code)
	assert.Greater(t, decode[render.RefreshResponse](t, b).Trigger, before)
}

func TestStoppedMap(t *testing.T) {
	srv, c, cancel := start(t)
	cancel()
	<-c.Done()

	code, _ := do(t, srv, http.MethodPost, "/qkdmap/api/debug", "")
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestNotFound(t *testing.T) {
	srv, _, _ := start(t)
	cli := srv.Client()
	cli.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	resp, err := cli.Get(srv.URL + "/elsewhere")
	jtest.RequireNil(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
	assert.Equal(t, "/qkdmap/", resp.Header.Get("Location"))

	resp, err = cli.Get(srv.URL + "/qkdmap/api/nothing")
	jtest.RequireNil(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStream(t *testing.T) {
	srv, _, _ := start(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/qkdmap/api/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	jtest.RequireNil(t, err)
	defer conn.Close()
	jtest.RequireNil(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var msg render.StreamMessage
	jtest.RequireNil(t, conn.ReadJSON(&msg))
	assert.True(t, msg.View.HasMapData)
	assert.False(t, msg.View.DebugMode)

	code, _ := do(t, srv, http.MethodPost, "/qkdmap/api/debug", "")
	require.Equal(t, http.StatusOK, code)

	for !msg.View.DebugMode {
		jtest.RequireNil(t, conn.ReadJSON(&msg))
	}
	assert.NotNil(t, msg.View.Telemetry)
}
