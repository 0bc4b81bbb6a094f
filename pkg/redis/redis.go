package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hyerin/maplecart-backend/config"
	"github.com/hyerin/maplecart-backend/internal/app/model"
	"github.com/hyerin/maplecart-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

var client *redis.Client

// Init initializes Redis connection
func Init(cfg *config.RedisConfig) error {
	logger.Info("Initializing Redis connection", map[string]interface{}{
		"host": cfg.Host,
		"port": cfg.Port,
		"db":   cfg.DB,
	})

	client = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("Failed to connect to Redis", err, map[string]interface{}{
			"host": cfg.Host,
			"port": cfg.Port,
		})
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis connection established successfully", nil)
	return nil
}

// GetClient returns the Redis client instance
func GetClient() *redis.Client {
	return client
}

// Close closes the Redis connection
func Close() error {
	if client != nil {
		logger.Info("Closing Redis connection", nil)
		return client.Close()
	}
	return nil
}

// BlacklistToken adds a token to the blacklist. Without Redis the
// blacklist is disabled and tokens stay valid until expiry.
func BlacklistToken(ctx context.Context, token string, expiry time.Duration) error {
	if client == nil {
		return nil
	}

	logger.Debug("Adding token to blacklist", map[string]interface{}{
		"expiry": expiry.String(),
	})

	key := fmt.Sprintf("blacklist:%s", token)
	err := client.Set(ctx, key, "revoked", expiry).Err()
	if err != nil {
		logger.Error("Failed to blacklist token", err, nil)
		return err
	}

	return nil
}

// IsTokenBlacklisted checks if a token is in the blacklist
func IsTokenBlacklisted(ctx context.Context, token string) (bool, error) {
	if client == nil {
		return false, nil
	}

	key := fmt.Sprintf("blacklist:%s", token)
	val, err := client.Get(ctx, key).Result()

	if err == redis.Nil {
		// Key does not exist - token is not blacklisted
		return false, nil
	}
	if err != nil {
		logger.Error("Failed to check token blacklist", err, nil)
		return false, err
	}

	return val == "revoked", nil
}

// CartCache stores the last authoritative priced cart per user. It is a
// read-through cache only; every mutation invalidates the entry.
type CartCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCartCache creates a cart cache backed by the global Redis client.
func NewCartCache(ttl time.Duration) *CartCache {
	return &CartCache{client: client, ttl: ttl}
}

func cartKey(userID uint) string {
	return fmt.Sprintf("cart:priced:%d", userID)
}

// Get returns the cached priced cart for the user, or nil on a miss.
func (c *CartCache) Get(ctx context.Context, userID uint) (*model.PricedCart, error) {
	if c == nil || c.client == nil {
		return nil, nil
	}

	data, err := c.client.Get(ctx, cartKey(userID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		logger.Error("Failed to read cached cart", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}

	var cart model.PricedCart
	if err := json.Unmarshal(data, &cart); err != nil {
		// Stale or corrupt entry: drop it and fall through to a recompute.
		c.client.Del(ctx, cartKey(userID))
		return nil, nil
	}
	return &cart, nil
}

// Set stores the priced cart for the user.
func (c *CartCache) Set(ctx context.Context, userID uint, cart *model.PricedCart) error {
	if c == nil || c.client == nil {
		return nil
	}

	data, err := json.Marshal(cart)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, cartKey(userID), data, c.ttl).Err()
}

// Invalidate removes the cached cart for the user.
func (c *CartCache) Invalidate(ctx context.Context, userID uint) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, cartKey(userID)).Err()
}
