package influxdb

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/logix-service/internal/infrastructure/config"
)

const (
	connectTimeout     = 10 * time.Second
	healthCheckTimeout = 5 * time.Second

	fallbackBatchSize     = 100
	fallbackFlushInterval = 10 * time.Second
)

// Client writes the history of one service instance. Every point it
// writes carries a service_id tag.
type Client struct {
	influx    influxdb2.Client
	points    api.WriteAPI
	serviceID string

	open    atomic.Bool
	onError atomic.Pointer[func(error)]
}

// Connect pings the server and returns a client whose writes are batched
// in the background. It returns ErrDisabled when InfluxDB is turned off.
func Connect(ctx context.Context, cfg config.InfluxDBConfig, serviceID string) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	influx := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, writeOptions(cfg))
	if err := ping(ctx, influx, connectTimeout); err != nil {
		influx.Close()
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	c := &Client{
		influx:    influx,
		points:    influx.WriteAPI(cfg.Org, cfg.Bucket),
		serviceID: serviceID,
	}
	c.open.Store(true)

	// Errors must be requested before the first write to see its failure.
	go c.forwardWriteErrors(c.points.Errors())

	return c, nil
}

// writeOptions maps the batch settings onto client options, falling back
// for unset or negative values.
func writeOptions(cfg config.InfluxDBConfig) *influxdb2.Options {
	batch := uint(fallbackBatchSize)
	if cfg.BatchSize > 0 {
		batch = uint(cfg.BatchSize)
	}
	flush := fallbackFlushInterval
	if cfg.FlushInterval > 0 {
		flush = time.Duration(cfg.FlushInterval) * time.Second
	}

	return influxdb2.DefaultOptions().
		SetBatchSize(batch).
		SetFlushInterval(uint(flush.Milliseconds()))
}

func ping(ctx context.Context, influx influxdb2.Client, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	healthy, err := influx.Ping(ctx)
	if err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	if !healthy {
		return fmt.Errorf("server not healthy")
	}
	return nil
}

func (c *Client) forwardWriteErrors(errs <-chan error) {
	for err := range errs {
		if fn := c.onError.Load(); fn != nil {
			(*fn)(fmt.Errorf("%w: %w", ErrWriteFailed, err))
		}
	}
}

// SetOnError installs the callback that receives failed batch writes.
func (c *Client) SetOnError(fn func(err error)) {
	c.onError.Store(&fn)
}

// IsConnected reports whether the client is still open. Use HealthCheck
// to ask the server.
func (c *Client) IsConnected() bool {
	return c.open.Load()
}

// HealthCheck pings the server.
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.open.Load() {
		return ErrNotConnected
	}
	if err := ping(ctx, c.influx, healthCheckTimeout); err != nil {
		return fmt.Errorf("influxdb health check failed: %w", err)
	}
	return nil
}

// record queues one point tagged with the service ID. Points recorded
// after Close are dropped.
func (c *Client) record(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.open.Load() {
		return
	}
	tags["service_id"] = c.serviceID
	c.points.WritePoint(write.NewPoint(measurement, tags, fields, time.Now()))
}

// Flush writes the queued points now. It does nothing after Close.
func (c *Client) Flush() {
	if c.open.Load() {
		c.points.Flush()
	}
}

// Close writes the queued points and releases the client. Closing twice,
// or closing a zero Client, is a no-op.
func (c *Client) Close() error {
	if !c.open.CompareAndSwap(true, false) {
		return nil
	}
	c.points.Flush()
	c.influx.Close()
	return nil
}
