// Package publisher announces website changes on Redis pub/sub.
package publisher

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sited-io/websites/internal/metrics"
)

// Channels.
const (
	ChannelUpsert = "websites.website.upsert"
	ChannelDelete = "websites.website.delete"
)

// Publisher publishes JSON payloads. Failures are logged and counted, never
// returned: the change they describe is already committed.
type Publisher struct {
	rdb *redis.Client
	log *zap.Logger
}

// New creates a Publisher on rdb.
func New(rdb *redis.Client, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{rdb: rdb, log: logger.Named("publisher")}
}

// Connect parses a redis:// URL and returns a client for it.
func Connect(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opts), nil
}

// Upsert publishes a created or updated website.
func (p *Publisher) Upsert(ctx context.Context, website any) {
	p.publish(ctx, ChannelUpsert, website)
}

// Delete publishes a deleted website.
func (p *Publisher) Delete(ctx context.Context, website any) {
	p.publish(ctx, ChannelDelete, website)
}

func (p *Publisher) publish(ctx context.Context, channel string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		metrics.EventsPublishedTotal.WithLabelValues(channel, "error").Inc()
		p.log.Error("encode event", zap.String("channel", channel), zap.Error(err))
		return
	}

	if err := p.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		metrics.EventsPublishedTotal.WithLabelValues(channel, "error").Inc()
		p.log.Error("publish event", zap.String("channel", channel), zap.Error(err))
		return
	}
	metrics.EventsPublishedTotal.WithLabelValues(channel, "ok").Inc()
}
