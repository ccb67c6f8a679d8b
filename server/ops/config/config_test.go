package config

import (
	"testing"
	"time"

	"github.com/luno/qkdmap/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeConfig(t *testing.T) {
	withBackend := Default()
	withBackend.Backend.URL = "https://qkd.example.net"
	withBackend.Backend.Token = "secret"
	withBackend.Backend.Timeout = 3 * time.Second

	withView := Default()
	withView.View.Center = []float64{26.1, 44.4}
	withView.View.Zoom = 10
	withView.View.FrameInterval = 33 * time.Millisecond
	withView.Refresh = Refresh{Auto: true, Interval: 30 * time.Second}
	withView.Viewer = "ops-wall"

	withDefaults := Default()
	withDefaults.Defaults = Defaults{App: "chat", Debug: true}

	testCases := []struct {
		name      string
		yaml      string
		expConfig Config
		expError  bool
	}{
		{name: "empty", expConfig: Default()},
		{name: "backend",
			yaml: `
backend:
  url: "https://qkd.example.net"
  token: "secret"
  timeout: 3s
`,
			expConfig: withBackend,
		},
		{name: "view and refresh",
			yaml: `
view:
  center: [26.1, 44.4]
  zoom: 10
  frame_interval: 33ms
refresh:
  auto: true
  interval: 30s
viewer: ops-wall
`,
			expConfig: withView,
		},
		{name: "defaults",
			yaml: `
defaults:
  app: chat
  animations: false
  debug: true
`,
			expConfig: withDefaults,
		},
		{name: "empty default app",
			yaml: `
defaults:
  app: ""
`,
			expError: true,
		},
		{name: "unknown field",
			yaml: `
groups:
  - name: "exchange"
`,
			expError: true,
		},
		{name: "bad center",
			yaml: `
view:
  center: [26.1]
`,
			expError: true,
		},
		{name: "auto refresh without interval",
			yaml: `
refresh:
  auto: true
  interval: 0s
`,
			expError: true,
		},
		{name: "empty viewer",
			yaml: `
viewer: ""
`,
			expError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := decodeConfig([]byte(tc.yaml))
			require.Equal(t, tc.expError, err != nil, err)
			assert.Equal(t, tc.expConfig, c)
		})
	}
}

func TestCenterPoint(t *testing.T) {
	v := View{Center: []float64{26.1, 44.4}}
	assert.Equal(t, [2]float64{26.1, 44.4}, v.CenterPoint())
}

func TestDefaultsPreferences(t *testing.T) {
	d := Defaults{App: "vpn", Animations: true}
	assert.Equal(t, api.Preferences{SelectedApp: "vpn", Animations: true}, d.Preferences())
}
