package ops

import (
	"context"
	"flag"
	"sort"
	"time"

	"github.com/gomodule/redigo/redis"
	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/luno/jettison/log"
	"github.com/luno/qkdmap/api"
	"github.com/luno/qkdmap/server/db"
)

var redisAddr = flag.String("redis", "", "Address to connect to the redis server, preferences are kept in memory when empty")
var redisUser = flag.String("redis_user", "", "User for authentication to the redis server, requires password")
var redisPassword = flag.String("redis_password", "", "Password for authentication to the redis server")

var ErrRedisNotConfigured = errors.New("redis not configured", j.C("ERR_5be2a0c7d14f9e36"))

// PrefsStore keeps the map controls of each viewer.
type PrefsStore interface {
	GetPrefs(ctx context.Context, viewer string) (api.Preferences, error)
	SetPrefs(ctx context.Context, viewer string, p api.Preferences) error
	Viewers(ctx context.Context) ([]string, error)
}

func NewRedisPool(ctx context.Context) (*redis.Pool, error) {
	if *redisAddr == "" {
		return nil, ErrRedisNotConfigured
	}

	log.Info(ctx, "redis database configured", j.KV("address", *redisAddr))

	do := []redis.DialOption{
		redis.DialReadTimeout(5 * time.Second),
		redis.DialWriteTimeout(5 * time.Second),
	}
	if *redisUser != "" || *redisPassword != "" {
		if *redisUser == "" || *redisPassword == "" {
			return nil, errors.New("redis username/password misconfiguration")
		}
		do = append(do,
			redis.DialUsername(*redisUser),
			redis.DialPassword(*redisPassword),
		)
	}

	return &redis.Pool{
		DialContext: func(ctx context.Context) (redis.Conn, error) {
			conn, err := redis.DialURLContext(ctx, *redisAddr, do...)
			if err != nil {
				return nil, err
			}
			if err := db.SelectPrefsDatabase(conn); err != nil {
				_ = conn.Close()
				return nil, errors.Wrap(err, "select prefs database")
			}
			return conn, nil
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
		MaxIdle:     3,
		MaxActive:   10,
		IdleTimeout: time.Minute,
		Wait:        true,
	}, nil
}

type RedisPrefs struct {
	pool     *redis.Pool
	defaults api.Preferences
}

func NewRedisPrefs(pool *redis.Pool, defaults api.Preferences) *RedisPrefs {
	return &RedisPrefs{pool: pool, defaults: defaults}
}

func (r *RedisPrefs) GetPrefs(ctx context.Context, viewer string) (api.Preferences, error) {
	conn, err := r.pool.GetContext(ctx)
	if err != nil {
		return api.Preferences{}, errors.Wrap(err, "get connection")
	}
	defer conn.Close()

	p, err := db.GetPrefs(ctx, conn, viewer)
	if errors.Is(err, db.ErrPrefsNotFound) {
		return r.defaults, nil
	} else if err != nil {
		return api.Preferences{}, err
	}
	return p, nil
}

func (r *RedisPrefs) SetPrefs(ctx context.Context, viewer string, p api.Preferences) error {
	conn, err := r.pool.GetContext(ctx)
	if err != nil {
		return errors.Wrap(err, "get connection")
	}
	defer conn.Close()
	return db.StorePrefs(ctx, conn, viewer, p)
}

func (r *RedisPrefs) Viewers(ctx context.Context) ([]string, error) {
	conn, err := r.pool.GetContext(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "get connection")
	}
	defer conn.Close()

	vs, err := db.ListViewers(ctx, conn)
	if err != nil {
		return nil, err
	}
	sort.Strings(vs)
	return vs, nil
}

var _ PrefsStore = (*RedisPrefs)(nil)
