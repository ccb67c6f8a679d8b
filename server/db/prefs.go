package db

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gomodule/redigo/redis"
	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/luno/jettison/log"
	"github.com/luno/qkdmap/api"
)

const (
	prefsTTL       = 30 * 24 * time.Hour
	prefsKeyPrefix = "qkdmap.prefs."

	fieldSelectedApp = "selected_app"
	fieldAnimations  = "animations"
	fieldDebug       = "debug"
)

var ErrPrefsNotFound = errors.New("preferences not found", j.C("ERR_5e3a0f7d18c2b946"))

func prefsKey(viewer string) string {
	return prefsKeyPrefix + viewer
}

func viewerFromKey(key string) (string, bool) {
	if !strings.HasPrefix(key, prefsKeyPrefix) {
		return "", false
	}
	return strings.TrimPrefix(key, prefsKeyPrefix), true
}

func prefsToRedis(p api.Preferences) []interface{} {
	return []interface{}{
		fieldSelectedApp, p.SelectedApp,
		fieldAnimations, strconv.FormatBool(p.Animations),
		fieldDebug, strconv.FormatBool(p.Debug),
	}
}

func prefsFromRedis(m map[string]string) (api.Preferences, error) {
	var p api.Preferences
	p.SelectedApp = m[fieldSelectedApp]

	var err error
	if v, ok := m[fieldAnimations]; ok {
		p.Animations, err = strconv.ParseBool(v)
		if err != nil {
			return api.Preferences{}, errors.Wrap(err, "invalid animations", j.KV("value", v))
		}
	} else {
		p.Animations = true
	}
	if v, ok := m[fieldDebug]; ok {
		p.Debug, err = strconv.ParseBool(v)
		if err != nil {
			return api.Preferences{}, errors.Wrap(err, "invalid debug", j.KV("value", v))
		}
	}
	return p, nil
}

func StorePrefs(ctx context.Context, conn redis.Conn, viewer string, p api.Preferences) error {
	key := prefsKey(viewer)
	args := append([]interface{}{key}, prefsToRedis(p)...)
	_, err := redis.DoContext(conn, ctx, "HSET", args...)
	if err != nil {
		return errors.Wrap(err, "store prefs")
	}
	_, err = redis.DoContext(conn, ctx, "EXPIRE", key, int(prefsTTL.Seconds()))
	return errors.Wrap(err, "expire prefs")
}

func GetPrefs(ctx context.Context, conn redis.Conn, viewer string) (api.Preferences, error) {
	m, err := redis.StringMap(redis.DoContext(conn, ctx, "HGETALL", prefsKey(viewer)))
	if err != nil {
		return api.Preferences{}, errors.Wrap(err, "")
	}
	if len(m) == 0 {
		return api.Preferences{}, errors.Wrap(ErrPrefsNotFound, "", j.KV("viewer", viewer))
	}
	return prefsFromRedis(m)
}

func DeletePrefs(ctx context.Context, conn redis.Conn, viewer string) error {
	_, err := redis.DoContext(conn, ctx, "DEL", prefsKey(viewer))
	return errors.Wrap(err, "")
}

// ListViewers returns every viewer with stored preferences.
func ListViewers(ctx context.Context, conn redis.Conn) ([]string, error) {
	var (
		ret    []string
		cursor int64
	)
	for {
		keys, next, err := scanSomeKeys(ctx, conn, cursor, prefsKeyPrefix+"*")
		if err != nil {
			return nil, err
		}
		for _, k := range keys {
			v, ok := viewerFromKey(k)
			if !ok {
				log.Info(ctx, "skipped unknown key", j.KV("key", k))
				continue
			}
			ret = append(ret, v)
		}
		if next == 0 {
			return ret, nil
		}
		cursor = next
	}
}
