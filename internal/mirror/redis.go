package mirror

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/sweeney/wheel-sensor/internal/logic"
	"github.com/sweeney/wheel-sensor/internal/status"
)

// RedisMirror writes readings into a redis hash and actuations into a stream.
type RedisMirror struct {
	client *redis.Client
}

// NewRedisMirror connects to addr and verifies the connection with a PING.
func NewRedisMirror(ctx context.Context, addr string) (*RedisMirror, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: connect to %s: %w", addr, err)
	}

	return &RedisMirror{client: client}, nil
}

// Publish stores the reading in the wheel hash.
func (m *RedisMirror) Publish(ctx context.Context, r status.Reading) error {
	pipe := m.client.Pipeline()
	pipe.HSet(ctx, StateKey, map[string]interface{}{
		"rpm":              r.AvgRPM,
		"rpm:raw":          r.RPM,
		"pulses":           r.Pulses,
		"kcal":             r.Kcal,
		"opened":           r.OpenedBoxes,
		"next-target-kcal": r.NextTargetKcal,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: publish reading: %w", err)
	}
	return nil
}

// RecordActuation appends the actuation to the stream and notifies subscribers.
func (m *RedisMirror) RecordActuation(ctx context.Context, a logic.Actuation, source string) error {
	pipe := m.client.Pipeline()
	pipe.XAdd(ctx, &redis.XAddArgs{
		Stream: ActuationStream,
		MaxLen: ActuationStreamMax,
		Approx: true,
		Values: map[string]interface{}{
			"box":    a.Index,
			"state":  a.State,
			"source": source,
		},
	})
	pipe.Publish(ctx, NotificationChannel, "actuation")
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: record actuation: %w", err)
	}
	return nil
}

// Close closes the redis client.
func (m *RedisMirror) Close() error {
	return m.client.Close()
}
