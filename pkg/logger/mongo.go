package logger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	sinkQueue    = 4096
	sinkBatch    = 50
	sinkInterval = 2 * time.Second
)

// MongoOptions configures the MongoDB log sink.
type MongoOptions struct {
	URI        string
	Database   string
	Collection string
	// Retention drops documents older than this through a TTL index.
	// Zero keeps them forever.
	Retention time.Duration
	// MinLevel filters what is shipped; stdout still gets everything.
	MinLevel slog.Level
}

// Entry is one stored log line. Order and customer ids are lifted out of
// the attributes so audit queries can use an index.
type Entry struct {
	Time       time.Time `bson:"time"`
	Level      string    `bson:"level"`
	Msg        string    `bson:"msg"`
	RequestID  string    `bson:"request_id,omitempty"`
	OrderID    string    `bson:"order_id,omitempty"`
	CustomerID string    `bson:"customer_id,omitempty"`
	Attrs      bson.M    `bson:"attrs,omitempty"`
}

type entryWriter interface {
	write(ctx context.Context, batch []Entry) error
}

type collectionWriter struct{ col *mongo.Collection }

func (w collectionWriter) write(ctx context.Context, batch []Entry) error {
	docs := make([]any, len(batch))
	for i := range batch {
		docs[i] = batch[i]
	}
	_, err := w.col.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	return err
}

// sink owns the queue and the goroutine that drains it. Handlers derived
// through WithAttrs/WithGroup share one sink.
type sink struct {
	out     entryWriter
	queue   chan Entry
	stop    chan struct{}
	stopped chan struct{}
	once    sync.Once
	dropped atomic.Int64
	failed  atomic.Int64
}

func newSink(out entryWriter, size int) *sink {
	s := &sink{
		out:     out,
		queue:   make(chan Entry, size),
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *sink) enqueue(e Entry) {
	select {
	case s.queue <- e:
	default:
		s.dropped.Add(1)
	}
}

func (s *sink) run() {
	defer close(s.stopped)
	ticker := time.NewTicker(sinkInterval)
	defer ticker.Stop()

	batch := make([]Entry, 0, sinkBatch)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.out.write(ctx, batch); err != nil {
			s.failed.Add(int64(len(batch)))
		}
		cancel()
		batch = batch[:0]
	}

	for {
		select {
		case e := <-s.queue:
			if batch = append(batch, e); len(batch) >= sinkBatch {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-s.stop:
			for {
				select {
				case e := <-s.queue:
					if batch = append(batch, e); len(batch) >= sinkBatch {
						flush()
					}
				default:
					flush()
					return
				}
			}
		}
	}
}

// close stops the drain goroutine after it has written what was queued.
func (s *sink) close() {
	s.once.Do(func() { close(s.stop) })
	<-s.stopped
}

// MongoHandler ships records to MongoDB in batches without blocking the
// caller. A full queue drops the record and counts it.
type MongoHandler struct {
	sink   *sink
	client *mongo.Client
	min    slog.Level
	attrs  []slog.Attr
	prefix string
}

// NewMongoHandler connects, ensures the indexes and starts the drain
// goroutine. Call Close to flush.
func NewMongoHandler(opts MongoOptions) (*MongoHandler, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(opts.URI).
		SetConnectTimeout(5*time.Second).
		SetServerSelectionTimeout(5*time.Second).
		SetMaxPoolSize(4))
	if err != nil {
		return nil, fmt.Errorf("logger: mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("logger: mongo ping: %w", err)
	}

	col := client.Database(opts.Database).Collection(opts.Collection)
	if _, err := col.Indexes().CreateMany(ctx, indexes(opts.Retention)); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("logger: mongo indexes: %w", err)
	}

	return &MongoHandler{
		sink:   newSink(collectionWriter{col}, sinkQueue),
		client: client,
		min:    opts.MinLevel,
	}, nil
}

func indexes(retention time.Duration) []mongo.IndexModel {
	byTime := mongo.IndexModel{Keys: bson.D{{Key: "time", Value: -1}}}
	if retention > 0 {
		byTime.Options = options.Index().SetExpireAfterSeconds(int32(retention.Seconds()))
	}
	return []mongo.IndexModel{
		byTime,
		{Keys: bson.D{{Key: "request_id", Value: 1}}},
		{Keys: bson.D{{Key: "order_id", Value: 1}, {Key: "time", Value: -1}}},
		{Keys: bson.D{{Key: "customer_id", Value: 1}, {Key: "time", Value: -1}}},
	}
}

func (h *MongoHandler) Enabled(_ context.Context, l slog.Level) bool { return l >= h.min }

func (h *MongoHandler) Handle(_ context.Context, r slog.Record) error {
	h.sink.enqueue(h.entry(r))
	return nil
}

func (h *MongoHandler) entry(r slog.Record) Entry {
	e := Entry{Time: r.Time.UTC(), Level: r.Level.String(), Msg: r.Message}
	put := func(key string, v slog.Value) {
		switch key {
		case "request_id":
			e.RequestID = v.String()
		case "order_id":
			e.OrderID = v.String()
		case "customer_id":
			e.CustomerID = v.String()
		default:
			if e.Attrs == nil {
				e.Attrs = bson.M{}
			}
			e.Attrs[key] = attrValue(v)
		}
	}
	for _, a := range h.attrs {
		flatten("", a, put)
	}
	r.Attrs(func(a slog.Attr) bool {
		flatten(h.prefix, a, put)
		return true
	})
	return e
}

// flatten walks group values so nested attributes land under dotted keys.
func flatten(prefix string, a slog.Attr, put func(string, slog.Value)) {
	v := a.Value.Resolve()
	key := a.Key
	if prefix != "" {
		key = prefix + "." + key
	}
	if v.Kind() == slog.KindGroup {
		for _, ga := range v.Group() {
			flatten(key, ga, put)
		}
		return
	}
	if a.Key == "" {
		return
	}
	put(key, v)
}

func attrValue(v slog.Value) any {
	switch v.Kind() {
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		if s, ok := v.Any().(fmt.Stringer); ok {
			return s.String()
		}
		return v.Any()
	default:
		return v.Any()
	}
}

func (h *MongoHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	c.attrs = append(c.attrs, h.attrs...)
	for _, a := range attrs {
		if h.prefix != "" {
			a = slog.Attr{Key: h.prefix + "." + a.Key, Value: a.Value}
		}
		c.attrs = append(c.attrs, a)
	}
	return &c
}

func (h *MongoHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.prefix = strings.TrimPrefix(h.prefix+"."+name, ".")
	return &c
}

// Dropped reports how many records were discarded because the queue was
// full or the insert failed.
func (h *MongoHandler) Dropped() int64 {
	return h.sink.dropped.Load() + h.sink.failed.Load()
}

// Close flushes the queue and disconnects. Safe to call more than once.
func (h *MongoHandler) Close() {
	h.sink.close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = h.client.Disconnect(ctx)
}
