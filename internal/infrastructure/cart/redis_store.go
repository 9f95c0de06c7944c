// Package cart stores each user's pending items in Redis: one hash per user,
// fields keyed by productID:variantID.
package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/shop-order-backend/internal/infrastructure/store"
)

const cartTTL = 30 * 24 * time.Hour

// RedisStore implements store.CartStore.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(addr string) *RedisStore {
	return &RedisStore{client: redis.NewClient(&redis.Options{Addr: addr})}
}

// NewRedisStoreWithClient wires an existing client (used by tests).
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Key returns the cart hash key for a user.
func Key(userID string) string {
	return fmt.Sprintf("shop:cart:%s", userID)
}

func field(productID, variantID string) string {
	return productID + ":" + variantID
}

func (s *RedisStore) Items(ctx context.Context, userID string) ([]store.CartItem, error) {
	entries, err := s.client.HGetAll(ctx, Key(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("read cart: %w", err)
	}

	items := make([]store.CartItem, 0, len(entries))
	for f, raw := range entries {
		productID, variantID, ok := strings.Cut(f, ":")
		if !ok {
			continue
		}
		var item store.CartItem
		if err := json.Unmarshal([]byte(raw), &item); err != nil {
			return nil, fmt.Errorf("decode cart item %s: %w", f, err)
		}
		item.ProductID = productID
		item.VariantID = variantID
		items = append(items, item)
	}
	return items, nil
}

func (s *RedisStore) AddItem(ctx context.Context, userID string, item store.CartItem) error {
	key := Key(userID)
	f := field(item.ProductID, item.VariantID)

	if raw, err := s.client.HGet(ctx, key, f).Result(); err == nil {
		var existing store.CartItem
		if err := json.Unmarshal([]byte(raw), &existing); err == nil {
			item.Quantity += existing.Quantity
		}
	} else if err != redis.Nil {
		return fmt.Errorf("read cart item: %w", err)
	}

	data, err := json.Marshal(item)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, f, data)
	pipe.Expire(ctx, key, cartTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("write cart item: %w", err)
	}
	return nil
}

func (s *RedisStore) RemoveItems(ctx context.Context, userID string, refs []store.CartItemRef) error {
	if len(refs) == 0 {
		return nil
	}
	fields := make([]string, 0, len(refs))
	for _, ref := range refs {
		fields = append(fields, field(ref.ProductID, ref.VariantID))
	}
	if err := s.client.HDel(ctx, Key(userID), fields...).Err(); err != nil {
		return fmt.Errorf("remove cart items: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, Key(userID)).Err(); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
