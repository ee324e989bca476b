package chat

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ariefcatur/go-saga-orders/internal/redisx"
	"github.com/redis/go-redis/v9"
)

type Store interface {
	// Append stores m at the end of its order's history and publishes it to the order's room.
	Append(ctx context.Context, m Message) error
	History(ctx context.Context, orderID string) ([]Message, error)
	// FirstSeen records eventID for consumer and reports whether it was new.
	FirstSeen(ctx context.Context, consumer, eventID string) (bool, error)
	// Forget drops the record so a redelivery of eventID is handled again.
	Forget(ctx context.Context, consumer, eventID string) error
}

type RedisStore struct{ Redis *redis.Client }

func (s *RedisStore) Append(ctx context.Context, m Message) error {
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	key := fmt.Sprintf(redisx.KeyChatHistory, m.OrderID)
	if err := s.Redis.RPush(ctx, key, b).Err(); err != nil {
		return err
	}
	if err := s.Redis.Expire(ctx, key, redisx.TTLChatHistory).Err(); err != nil {
		return err
	}
	return s.Redis.Publish(ctx, fmt.Sprintf(redisx.KeyChatRoom, m.OrderID), b).Err()
}

func (s *RedisStore) History(ctx context.Context, orderID string) ([]Message, error) {
	raw, err := s.Redis.LRange(ctx, fmt.Sprintf(redisx.KeyChatHistory, orderID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Message, 0, len(raw))
	for _, r := range raw {
		var m Message
		if err := json.Unmarshal([]byte(r), &m); err != nil {
			return nil, fmt.Errorf("decode chat message: %w", err)
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *RedisStore) FirstSeen(ctx context.Context, consumer, eventID string) (bool, error) {
	return s.Redis.SetNX(ctx, fmt.Sprintf(redisx.KeyDedup, consumer, eventID), "1", redisx.TTLDedup).Result()
}

func (s *RedisStore) Forget(ctx context.Context, consumer, eventID string) error {
	return s.Redis.Del(ctx, fmt.Sprintf(redisx.KeyDedup, consumer, eventID)).Err()
}
