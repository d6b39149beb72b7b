// Package mongosink archives scheduler events in MongoDB.
//
// Notify only buffers; documents are written in batches by [Sink.Flush],
// which [Sink.Run] calls periodically. This keeps database round trips out of
// the scheduler tick.
//
//	sink, err := mongosink.New(ctx, mongosink.Config{URI: "mongodb://localhost:27017"})
//	if err != nil {
//	    return err
//	}
//	defer sink.Close(context.Background())
//	go sink.Run(ctx)
package mongosink

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/explode/pkg/errors"
	"github.com/matzehuels/explode/pkg/events"
	"github.com/matzehuels/explode/pkg/scheduler"
)

// Defaults applied by [Config.SetDefaults].
const (
	DefaultDatabase      = "explode"
	DefaultCollection    = "events"
	DefaultFlushInterval = 2 * time.Second
	DefaultMaxBuffer     = 10000
	DefaultFlushRetries  = 3
	DefaultRetryDelay    = 200 * time.Millisecond
)

// Config configures the archive.
type Config struct {
	URI           string
	Database      string
	Collection    string
	FlushInterval time.Duration
	// MaxBuffer caps buffered records; the oldest are dropped beyond it.
	MaxBuffer int
	// FlushRetries bounds attempts per periodic flush on network errors
	// and timeouts; RetryDelay is the first pause between them.
	FlushRetries int
	RetryDelay   time.Duration
	Logger       *log.Logger
}

// SetDefaults fills zero fields.
func (c *Config) SetDefaults() {
	if c.Database == "" {
		c.Database = DefaultDatabase
	}
	if c.Collection == "" {
		c.Collection = DefaultCollection
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = DefaultFlushInterval
	}
	if c.MaxBuffer <= 0 {
		c.MaxBuffer = DefaultMaxBuffer
	}
	if c.FlushRetries <= 0 {
		c.FlushRetries = DefaultFlushRetries
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = DefaultRetryDelay
	}
	if c.Logger == nil {
		c.Logger = log.Default()
	}
}

// Validate checks the connection string.
func (c Config) Validate() error {
	return errors.ValidateMongoURI(c.URI)
}

// collection is the subset of *mongo.Collection used by the sink.
type collection interface {
	InsertMany(ctx context.Context, documents []interface{}, opts ...*options.InsertManyOptions) (*mongo.InsertManyResult, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
}

// Sink is a buffered scheduler.EventSink backed by a MongoDB collection.
type Sink struct {
	client    *mongo.Client
	coll      collection
	cfg       Config
	log       *log.Logger
	now       func() time.Time
	transient func(error) bool
	mu        sync.Mutex
	buf       []events.Record
	seq       int
	dropped   int
	inserted  int
}

// New connects to MongoDB and verifies the connection with a ping.
func New(ctx context.Context, cfg Config) (*Sink, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "connect to mongo")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "ping mongo")
	}
	s := newSink(client.Database(cfg.Database).Collection(cfg.Collection), cfg)
	s.client = client
	return s, nil
}

func newSink(coll collection, cfg Config) *Sink {
	cfg.SetDefaults()
	return &Sink{coll: coll, cfg: cfg, log: cfg.Logger, now: time.Now, transient: isTransient}
}

// Notify buffers e for the next flush.
func (s *Sink) Notify(e scheduler.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf = append(s.buf, events.NewRecord(e, s.seq, s.now()))
	s.seq++
	if over := len(s.buf) - s.cfg.MaxBuffer; over > 0 {
		s.buf = s.buf[over:]
		s.dropped += over
	}
}

// Flush writes every buffered record in a single batch. On failure the batch
// is put back in front of anything buffered meanwhile.
func (s *Sink) Flush(ctx context.Context) error {
	s.mu.Lock()
	batch := s.buf
	s.buf = nil
	s.mu.Unlock()
	if len(batch) == 0 {
		return nil
	}

	docs := make([]interface{}, len(batch))
	for i, r := range batch {
		docs[i] = r
	}
	if _, err := s.coll.InsertMany(ctx, docs); err != nil {
		s.mu.Lock()
		s.buf = append(batch, s.buf...)
		s.mu.Unlock()
		return errors.Wrap(errors.ErrCodeInternal, err, "archive %d events", len(batch))
	}

	s.mu.Lock()
	s.inserted += len(batch)
	s.mu.Unlock()
	s.log.Debug("archived events", "count", len(batch))
	return nil
}

// Run flushes every FlushInterval until ctx is done, then flushes once more
// with a fresh context. Flush errors are logged, not returned.
func (s *Sink) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.FlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			final, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return s.flushRetry(final)
		case <-ticker.C:
			if err := s.flushRetry(ctx); err != nil {
				s.log.Warn("event archive flush failed", "err", err)
			}
		}
	}
}

// History returns the archived records of one request in sequence order.
func (s *Sink) History(ctx context.Context, requestID string) ([]events.Record, error) {
	cur, err := s.coll.Find(ctx, bson.M{"request_id": requestID}, options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "query events")
	}
	defer cur.Close(ctx)

	var out []events.Record
	if err := cur.All(ctx, &out); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "decode events")
	}
	return out, nil
}

// Stats reports buffered, inserted and dropped record counts.
func (s *Sink) Stats() (buffered, inserted, dropped int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buf), s.inserted, s.dropped
}

// Close flushes pending records and disconnects.
func (s *Sink) Close(ctx context.Context) error {
	err := s.Flush(ctx)
	if s.client != nil {
		if derr := s.client.Disconnect(ctx); derr != nil && err == nil {
			err = derr
		}
	}
	return err
}

var _ scheduler.EventSink = (*Sink)(nil)
