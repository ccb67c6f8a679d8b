package qkdmap

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/luno/jettison/log"
	"github.com/luno/qkdmap/api"
	"github.com/sony/gobreaker/v2"
)

type Counter interface {
	Inc()
}

type Measure interface {
	Observe(secs float64)
}

type noopMetric struct{}

func (noopMetric) Inc()            {}
func (noopMetric) Observe(float64) {}

var (
	ErrBackendStatus = errors.New("unexpected backend status", j.C("ERR_7a6c1d0f93e2b845"))

	errRetryable = errors.New("", j.C("ERR_43d3926acd268ae8"))
)

// Client reads network data from the QKD backend REST API.
type Client struct {
	baseURL string
	cli     *http.Client
	header  http.Header
	metrics Metrics

	reqTimeout time.Duration
	retries    int
	backoff    time.Duration

	breakerSettings gobreaker.Settings
	breaker         *gobreaker.CircuitBreaker[[]byte]
}

type ClientOption func(*Client)

func WithBaseURL(url string) ClientOption {
	return func(client *Client) {
		client.baseURL = strings.TrimSuffix(url, "/")
	}
}

func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		client.cli = c
	}
}

// WithToken sends the token as a bearer on every request.
func WithToken(token string) ClientOption {
	return func(client *Client) {
		if token != "" {
			client.header.Set("Authorization", "Bearer "+token)
		}
	}
}

func WithRequestTimeout(d time.Duration) ClientOption {
	return func(client *Client) {
		client.reqTimeout = d
	}
}

// WithRetries sets how often a timed out request is retried and the first
// wait, which doubles on every retry.
func WithRetries(n int, backoff time.Duration) ClientOption {
	return func(client *Client) {
		client.retries = n
		client.backoff = backoff
	}
}

// WithBreaker opens the circuit after failures consecutive failed requests
// and probes the backend again after timeout.
func WithBreaker(failures uint32, timeout time.Duration) ClientOption {
	return func(client *Client) {
		client.breakerSettings.ReadyToTrip = func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= failures
		}
		client.breakerSettings.Timeout = timeout
	}
}

type Metrics struct {
	Requests       Counter
	RequestErrors  Counter
	RequestLatency Measure
	BreakerOpened  Counter
}

func (m *Metrics) defaultUnused() {
	if m.Requests == nil {
		m.Requests = noopMetric{}
	}
	if m.RequestErrors == nil {
		m.RequestErrors = noopMetric{}
	}
	if m.RequestLatency == nil {
		m.RequestLatency = noopMetric{}
	}
	if m.BreakerOpened == nil {
		m.BreakerOpened = noopMetric{}
	}
}

func WithMetrics(m Metrics) ClientOption {
	return func(client *Client) {
		client.metrics = m
	}
}

func NewClient(opts ...ClientOption) *Client {
	ret := &Client{
		cli:        http.DefaultClient,
		header:     make(http.Header),
		reqTimeout: 30 * time.Second,
		retries:    4,
		backoff:    time.Second,
		breakerSettings: gobreaker.Settings{
			Name:        "qkd-backend",
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= 5
			},
		},
	}
	for _, opt := range opts {
		opt(ret)
	}
	ret.metrics.defaultUnused()
	if ret.cli == nil {
		panic("no http client specified")
	}

	s := ret.breakerSettings
	s.IsSuccessful = func(err error) bool {
		// Callers giving up says nothing about the backend.
		return err == nil || errors.Is(err, context.Canceled)
	}
	s.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Info(context.Background(), "backend circuit breaker changed state",
			j.MKV{"name": name, "from": from.String(), "to": to.String()})
		if to == gobreaker.StateOpen {
			ret.metrics.BreakerOpened.Inc()
		}
	}
	ret.breaker = gobreaker.NewCircuitBreaker[[]byte](s)
	return ret
}

// BreakerState is the state of the backend circuit breaker.
func (c *Client) BreakerState() gobreaker.State {
	return c.breaker.State()
}

func wrapHTTPError(err error) error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*url.Error); ok {
		if e.Timeout() {
			return errors.Wrap(errRetryable, err.Error())
		}
	}
	return err
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	return c.breaker.Execute(func() ([]byte, error) {
		return c.doRetry(ctx, http.MethodGet, path)
	})
}

func (c *Client) doRetry(ctx context.Context, method, path string) ([]byte, error) {
	retries := c.retries
	wait := c.backoff
	for {
		resp, err := c.do(ctx, method, path)
		if err == nil {
			return resp, nil
		}
		if !errors.IsAny(err, context.DeadlineExceeded, errRetryable) || retries <= 0 || ctx.Err() != nil {
			return nil, err
		}
		select {
		case <-time.After(wait):
			wait *= 2
			retries--
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		log.Info(ctx, "retrying request", j.MKV{"path": path})
	}
}

func (c *Client) do(ctx context.Context, method, path string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.reqTimeout)
	defer cancel()

	t0 := time.Now()
	c.metrics.Requests.Inc()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	for k, vs := range c.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.cli.Do(req)
	if err != nil {
		c.metrics.RequestErrors.Inc()
		return nil, wrapHTTPError(err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.RequestErrors.Inc()
		return nil, errors.Wrap(err, "failed to read response")
	}
	c.metrics.RequestLatency.Observe(time.Since(t0).Seconds())
	if resp.StatusCode == http.StatusOK {
		return b, nil
	}
	c.metrics.RequestErrors.Inc()
	s := strings.TrimSpace(string(b))
	return nil, errors.Wrap(ErrBackendStatus, "", j.MKV{
		"path":     path,
		"status":   resp.StatusCode,
		"response": s,
	})
}

// GetMap returns the nodes and connections of the network.
func (c *Client) GetMap(ctx context.Context) (api.MapData, error) {
	r, err := c.get(ctx, "/api/map")
	if err != nil {
		return api.MapData{}, err
	}
	var resp api.MapData
	err = json.Unmarshal(r, &resp)
	if err != nil {
		return api.MapData{}, errors.Wrap(err, "decode map")
	}
	return resp, nil
}

// GetApps returns the applications in the order the backend lists them.
func (c *Client) GetApps(ctx context.Context) ([]api.App, error) {
	r, err := c.get(ctx, "/api/apps")
	if err != nil {
		return nil, err
	}
	var resp api.AppList
	err = json.Unmarshal(r, &resp)
	if err != nil {
		return nil, errors.Wrap(err, "decode apps")
	}
	return resp, nil
}

// GetDevices returns the devices of a node. The backend may return
// devices of other nodes too, only those attached to node are kept.
func (c *Client) GetDevices(ctx context.Context, node api.Ref) ([]api.Device, error) {
	r, err := c.get(ctx, "/api/devices?node="+url.QueryEscape(node.String()))
	if err != nil {
		return nil, err
	}
	var all []api.Device
	if err := json.Unmarshal(r, &all); err != nil {
		log.Info(ctx, "ignoring malformed device list", j.KV("node", node), log.WithError(err))
		return []api.Device{}, nil
	}
	ret := make([]api.Device, 0, len(all))
	for _, d := range all {
		if d.NodeID == node {
			ret = append(ret, d)
		}
	}
	return ret, nil
}
