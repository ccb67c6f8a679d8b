package db

import (
	"context"
	"testing"

	"github.com/gomodule/redigo/redis"
	"github.com/luno/jettison/jtest"
	"github.com/luno/qkdmap/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrefsFromRedis(t *testing.T) {
	testCases := []struct {
		name     string
		m        map[string]string
		expPrefs api.Preferences
		expError bool
	}{
		{name: "empty", expPrefs: api.Preferences{Animations: true}},
		{name: "all set",
			m:        map[string]string{"selected_app": "chat", "animations": "false", "debug": "true"},
			expPrefs: api.Preferences{SelectedApp: "chat", Animations: false, Debug: true},
		},
		{name: "bad bool",
			m:        map[string]string{"animations": "maybe"},
			expError: true,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := prefsFromRedis(tc.m)
			require.Equal(t, tc.expError, err != nil)
			assert.Equal(t, tc.expPrefs, p)
		})
	}
}

func TestViewerFromKey(t *testing.T) {
	v, ok := viewerFromKey(prefsKey("ops-wall"))
	assert.True(t, ok)
	assert.Equal(t, "ops-wall", v)

	_, ok = viewerFromKey("other.key")
	assert.False(t, ok)
}

func TestAgainstLocal(t *testing.T) {
	ctx := context.Background()
	conn, err := redis.DialURLContext(ctx, "redis://127.0.0.1:6379")
	if err != nil {
		t.Skip("no local redis", err)
	}
	defer conn.Close()
	jtest.RequireNil(t, SelectPrefsDatabase(conn))

	viewer := "test-viewer"
	_ = DeletePrefs(ctx, conn, viewer)

	_, err = GetPrefs(ctx, conn, viewer)
	jtest.Assert(t, ErrPrefsNotFound, err)

	exp := api.Preferences{SelectedApp: "chat", Animations: false, Debug: true}
	jtest.RequireNil(t, StorePrefs(ctx, conn, viewer, exp))

	p, err := GetPrefs(ctx, conn, viewer)
	jtest.RequireNil(t, err)
	assert.Equal(t, exp, p)

	viewers, err := ListViewers(ctx, conn)
	jtest.RequireNil(t, err)
	assert.Contains(t, viewers, viewer)

	jtest.RequireNil(t, DeletePrefs(ctx, conn, viewer))
}
