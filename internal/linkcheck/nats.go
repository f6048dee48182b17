package linkcheck

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/blogkeeper/internal/logfields"
)

// NATSOptions configures the NATS-backed cache and event stream.
type NATSOptions struct {
	URL              string
	Subject          string
	KVBucket         string
	CacheTTL         time.Duration
	CacheTTLFailures time.Duration
}

func (o *NATSOptions) fillDefaults() {
	if o.URL == "" {
		o.URL = nats.DefaultURL
	}
	if o.Subject == "" {
		o.Subject = "blogkeeper.links.broken"
	}
	if o.KVBucket == "" {
		o.KVBucket = "blogkeeper-link-cache"
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = time.Hour
	}
	if o.CacheTTLFailures <= 0 {
		o.CacheTTLFailures = 10 * time.Minute
	}
}

// NATSCache keeps verification results in a JetStream KV bucket shared
// between runs and machines, and publishes broken-link events on a JetStream
// subject.
type NATSCache struct {
	conn *nats.Conn
	js   jetstream.JetStream
	kv   jetstream.KeyValue
	opts NATSOptions
}

// NewNATSCache connects and ensures the KV bucket exists.
func NewNATSCache(opts NATSOptions) (*NATSCache, error) {
	opts.fillDefaults()

	conn, err := nats.Connect(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream context: %w", err)
	}

	c := &NATSCache{conn: conn, js: js, opts: opts}
	if err := c.initBucket(); err != nil {
		conn.Close()
		return nil, err
	}

	slog.Info("Link cache connected",
		logfields.URL(opts.URL),
		slog.String("bucket", opts.KVBucket),
		slog.String("subject", opts.Subject))
	return c, nil
}

func (c *NATSCache) initBucket() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	kv, err := c.js.KeyValue(ctx, c.opts.KVBucket)
	if err == nil {
		c.kv = kv
		return nil
	}

	kv, err = c.js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      c.opts.KVBucket,
		Description: "Link verification cache",
		MaxBytes:    100 * 1024 * 1024,
		History:     1,
	})
	if err != nil {
		return fmt.Errorf("create KV bucket %s: %w", c.opts.KVBucket, err)
	}
	c.kv = kv
	return nil
}

// kvKey hashes the URL; KV keys forbid most URL characters.
func kvKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}

func (c *NATSCache) Get(ctx context.Context, url string) (*CacheEntry, error) {
	entry, err := c.kv.Get(ctx, kvKey(url))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("get cache entry: %w", err)
	}

	var cached CacheEntry
	if err := json.Unmarshal(entry.Value(), &cached); err != nil {
		return nil, fmt.Errorf("decode cache entry: %w", err)
	}
	return &cached, nil
}

func (c *NATSCache) Set(ctx context.Context, entry *CacheEntry) error {
	if entry == nil {
		return nil
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if _, err := c.kv.Put(ctx, kvKey(entry.URL), data); err != nil {
		return fmt.Errorf("put cache entry: %w", err)
	}
	return nil
}

// Valid applies the TTLs; the bucket itself never expires keys, freshness is
// judged at read time.
func (c *NATSCache) Valid(entry *CacheEntry) bool {
	if entry == nil {
		return false
	}
	ttl := c.opts.CacheTTL
	if !entry.IsValid {
		ttl = c.opts.CacheTTLFailures
	}
	return time.Since(entry.LastChecked) < ttl
}

func (c *NATSCache) PublishBroken(ctx context.Context, event *BrokenLinkEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if _, err := c.js.Publish(ctx, c.opts.Subject, data); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	slog.Debug("Published broken link event", logfields.URL(event.URL))
	return nil
}

func (c *NATSCache) Close() error {
	if c.conn != nil {
		c.conn.Close()
	}
	return nil
}
