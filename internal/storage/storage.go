// /internal/storage/storage.go
package storage

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"regexp"
	"sync"
	"time"

	"github.com/keshon/disharmony/internal/logging"
	"github.com/keshon/disharmony/pkg/jobmgr"
	"github.com/keshon/disharmony/pkg/retrylimit"

	"github.com/rs/zerolog"
)

var (
	ErrInvalidConnectionString = errors.New("invalid connection string")
	ErrNotConnected            = errors.New("storage not connected")
	ErrNotFound                = errors.New("document not found")
	ErrClosed                  = errors.New("storage closed")
)

// Document is a query, update or record. Its shape is opaque to Client and
// forwarded verbatim to the backend.
type Document = map[string]any

const connectJob = "storage-connect"

// driver is one backend engine. Exactly one is selected per Client.
type driver interface {
	connect(ctx context.Context) error
	findOne(ctx context.Context, collection string, query Document) (Document, error)
	insertOne(ctx context.Context, collection string, doc Document) error
	updateOne(ctx context.Context, collection string, query, update Document) error
	deleteOne(ctx context.Context, collection string, query Document) error
	close(ctx context.Context) error
}

// drivers maps a connection-string scheme to its backend.
var drivers = map[string]func(connectionString string) (driver, error){
	"mongodb://":     newMongoDriver,
	"mongodb+srv://": newMongoDriver,
	"sqlite://":      newSQLiteDriver,
	"file://":        newFileDriver,
}

var schemePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.-]*://`)

type pendingOp struct {
	name       string
	collection string
	run        func(ctx context.Context) error
}

// Client is the process-wide storage handle. The backend is chosen once, by
// scheme, in Open and never changes.
type Client struct {
	protocol string
	drv      driver
	log      zerolog.Logger
	jobs     *jobmgr.Manager
	retry    retrylimit.Config

	mu        sync.Mutex
	connected bool
	closed    bool
	queue     []pendingOp
	ready     chan struct{}
	done      chan struct{}
}

// Open selects the backend for connectionString and starts connecting in the
// background. The returned Client is usable immediately: buffered writes are
// queued until the connection is ready.
func Open(ctx context.Context, connectionString string, lc *logging.Context) (*Client, error) {
	protocol := schemePattern.FindString(connectionString)
	newDriver, ok := drivers[protocol]
	if protocol == "" || !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidConnectionString, connectionString)
	}

	drv, err := newDriver(connectionString)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConnectionString, err)
	}

	c := newClient(protocol, drv, lc)
	c.log.Info().Str("protocol", protocol).Msgf("Using database protocol %s", protocol)

	if err := c.start(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func newClient(protocol string, drv driver, lc *logging.Context) *Client {
	if lc == nil {
		lc = logging.Nop()
	}
	log := lc.Component("storage")
	return &Client{
		protocol: protocol,
		drv:      drv,
		log:      log,
		jobs:     jobmgr.NewManager(func(msg string) { log.Debug().Msg(msg) }),
		retry:    retrylimit.DefaultConfig(),
		ready:    make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (c *Client) start(ctx context.Context) error {
	retry := c.retry
	retry.OnRetry = func(attempt int, err error, next time.Duration) {
		c.log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", next).Msg("Database connection failed")
	}

	return c.jobs.Start(ctx, connectJob, func(ctx context.Context) error {
		if err := retrylimit.Do(ctx, retry, c.drv.connect); err != nil {
			return err
		}
		c.flush(ctx)
		c.log.Info().Str("protocol", c.protocol).Msg("Database connected")
		return nil
	})
}

// flush replays buffered operations in enqueue order, then marks the client
// connected. Operations buffered during the replay join the same pass.
func (c *Client) flush(ctx context.Context) {
	replayed := 0
	for {
		c.mu.Lock()
		if len(c.queue) == 0 {
			c.connected = true
			close(c.ready)
			c.mu.Unlock()
			if replayed > 0 {
				c.log.Info().Int("operations", replayed).Msg("Replayed buffered operations")
			}
			return
		}
		op := c.queue[0]
		c.queue[0] = pendingOp{}
		c.queue = c.queue[1:]
		c.mu.Unlock()

		if err := op.run(ctx); err != nil {
			c.log.Error().Err(err).Str("op", op.name).Str("collection", op.collection).Msg("Buffered operation failed")
		}
		replayed++
	}
}

// Protocol returns the selected scheme, e.g. "mongodb://".
func (c *Client) Protocol() string { return c.protocol }

// IsMongo reports whether the networked document store was selected.
func (c *Client) IsMongo() bool {
	_, ok := c.drv.(*mongoDriver)
	return ok
}

// Connected reports whether the backend is ready and the buffer flushed.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Ready is closed once the backend is connected and the buffer flushed.
func (c *Client) Ready() <-chan struct{} { return c.ready }

// Pending returns the number of buffered operations awaiting replay.
func (c *Client) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// Option adjusts a single operation.
type Option func(*opOptions)

type opOptions struct {
	buffered bool
}

// Buffered allows the operation to be queued while the backend is not yet
// connected. Buffered writes return immediately and their eventual result is
// only logged; a buffered FindOne waits for the connection instead.
func Buffered() Option {
	return func(o *opOptions) { o.buffered = true }
}

func collect(opts []Option) opOptions {
	var o opOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// FindOne returns the first document in collection matching query, or
// ErrNotFound.
func (c *Client) FindOne(ctx context.Context, collection string, query Document, opts ...Option) (Document, error) {
	o := collect(opts)

	c.mu.Lock()
	closed, connected := c.closed, c.connected
	c.mu.Unlock()

	switch {
	case closed:
		return nil, ErrClosed
	case !connected && !o.buffered:
		return nil, fmt.Errorf("findOne %s: %w", collection, ErrNotConnected)
	case !connected:
		select {
		case <-c.ready:
		case <-c.done:
			return nil, ErrClosed
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return c.drv.findOne(ctx, collection, query)
}

// InsertOne stores record in collection.
func (c *Client) InsertOne(ctx context.Context, collection string, record Document, opts ...Option) error {
	record = maps.Clone(record)
	return c.write(ctx, "insertOne", collection, opts, func(ctx context.Context) error {
		return c.drv.insertOne(ctx, collection, record)
	})
}

// UpdateOne applies update to the first document matching query, inserting
// one built from query when none matches.
func (c *Client) UpdateOne(ctx context.Context, collection string, query, update Document, opts ...Option) error {
	query, update = maps.Clone(query), maps.Clone(update)
	return c.write(ctx, "updateOne", collection, opts, func(ctx context.Context) error {
		return c.drv.updateOne(ctx, collection, query, update)
	})
}

// DeleteOne removes the first document matching query.
func (c *Client) DeleteOne(ctx context.Context, collection string, query Document, opts ...Option) error {
	query = maps.Clone(query)
	return c.write(ctx, "deleteOne", collection, opts, func(ctx context.Context) error {
		return c.drv.deleteOne(ctx, collection, query)
	})
}

func (c *Client) write(ctx context.Context, name, collection string, opts []Option, run func(context.Context) error) error {
	o := collect(opts)

	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return ErrClosed
	case c.connected:
		c.mu.Unlock()
		return run(ctx)
	case !o.buffered:
		c.mu.Unlock()
		return fmt.Errorf("%s %s: %w", name, collection, ErrNotConnected)
	}
	c.queue = append(c.queue, pendingOp{name: name, collection: collection, run: run})
	c.mu.Unlock()
	return nil
}

// Close stops connecting, drops anything still buffered and closes the
// backend.
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	dropped := len(c.queue)
	c.queue = nil
	close(c.done)
	c.mu.Unlock()

	if err := c.jobs.Stop(connectJob); err != nil && !errors.Is(err, jobmgr.ErrNotRunning) {
		return err
	}
	if dropped > 0 {
		c.log.Warn().Int("operations", dropped).Msg("Dropping buffered operations on close")
	}
	return c.drv.close(ctx)
}
