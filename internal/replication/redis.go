package replication

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dropDatabas3/bundlekeeper/internal/observability/logger"
)

// RedisConfig configura el transporte Redis pub/sub.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

// RedisTransport difunde payloads con PUBLISH sobre un canal y los recibe con SUBSCRIBE.
type RedisTransport struct {
	client  redis.UniversalClient
	owned   bool
	channel string
	log     *zap.Logger

	mu     sync.Mutex
	pubsub *redis.PubSub
	wg     sync.WaitGroup
}

// NewRedis crea el cliente y verifica la conexión.
func NewRedis(cfg RedisConfig, log *zap.Logger) (*RedisTransport, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("replication: redis ping failed: %w", err)
	}
	t := NewRedisWithClient(rdb, cfg.Channel, log)
	t.owned = true
	return t, nil
}

// NewRedisWithClient usa un cliente existente; Close no lo cierra.
func NewRedisWithClient(client redis.UniversalClient, channel string, log *zap.Logger) *RedisTransport {
	if channel == "" {
		channel = "bundlekeeper:replication"
	}
	return &RedisTransport{
		client:  client,
		channel: channel,
		log:     logger.OrDefault(log, "replication.redis"),
	}
}

func (t *RedisTransport) Broadcast(ctx context.Context, payload []byte) error {
	if err := t.client.Publish(ctx, t.channel, payload).Err(); err != nil {
		return &TransportError{Op: "publish", Peer: t.channel, Err: err}
	}
	return nil
}

func (t *RedisTransport) Subscribe(ctx context.Context, handle func([]byte)) error {
	ps := t.client.Subscribe(ctx, t.channel)
	// Receive espera la confirmación de la suscripción.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return &TransportError{Op: "subscribe", Peer: t.channel, Err: err}
	}

	t.mu.Lock()
	t.pubsub = ps
	t.mu.Unlock()

	ch := ps.Channel()
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		for msg := range ch {
			handle([]byte(msg.Payload))
		}
		t.log.Debug("redis subscription closed", logger.String("channel", t.channel))
	}()
	return nil
}

func (t *RedisTransport) Close() error {
	t.mu.Lock()
	ps := t.pubsub
	t.pubsub = nil
	t.mu.Unlock()

	var errs []error
	if ps != nil {
		errs = append(errs, ps.Close())
		t.wg.Wait()
	}
	if t.owned {
		errs = append(errs, t.client.Close())
	}
	return errors.Join(errs...)
}
