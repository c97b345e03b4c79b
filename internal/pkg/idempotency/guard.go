package idempotency

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mavuno/mavuno-api/app/models"
)

const RedisKeyPrefix = "processed_order:"

var ErrEmptyOrderID = errors.New("idempotency: order id is required")

// Guard admits each order id exactly once. ShouldProcess checks and marks in a
// single atomic step; it returns true only for the first caller.
type Guard interface {
	ShouldProcess(ctx context.Context, orderID string) (bool, error)
}

func normalize(orderID string) (string, error) {
	id := strings.TrimSpace(orderID)
	if id == "" {
		return "", ErrEmptyOrderID
	}
	return id, nil
}

// MemoryGuard keeps processed ids for the process lifetime.
type MemoryGuard struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{seen: make(map[string]struct{})}
}

func (g *MemoryGuard) ShouldProcess(_ context.Context, orderID string) (bool, error) {
	id, err := normalize(orderID)
	if err != nil {
		return false, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.seen[id]; ok {
		return false, nil
	}
	g.seen[id] = struct{}{}
	return true, nil
}

// RedisGuard marks ids with SET NX so every instance sharing the Redis sees
// the same set across restarts.
type RedisGuard struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisGuard creates a guard whose marks expire after ttl; ttl <= 0 keeps
// them forever.
func NewRedisGuard(client *redis.Client, ttl time.Duration) *RedisGuard {
	return &RedisGuard{client: client, ttl: ttl, now: time.Now}
}

func (g *RedisGuard) ShouldProcess(ctx context.Context, orderID string) (bool, error) {
	id, err := normalize(orderID)
	if err != nil {
		return false, err
	}

	ttl := g.ttl
	if ttl < 0 {
		ttl = 0
	}
	ok, err := g.client.SetNX(ctx, RedisKeyPrefix+id, g.now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("idempotency redis setnx: %w", err)
	}
	return ok, nil
}

// DatabaseGuard inserts into processed_orders and lets the primary key decide.
type DatabaseGuard struct {
	db *gorm.DB
}

func NewDatabaseGuard(db *gorm.DB) *DatabaseGuard {
	return &DatabaseGuard{db: db}
}

func (g *DatabaseGuard) ShouldProcess(ctx context.Context, orderID string) (bool, error) {
	id, err := normalize(orderID)
	if err != nil {
		return false, err
	}

	tx := g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "order_id"}},
		DoNothing: true,
	}).Create(&models.ProcessedOrder{OrderID: id})
	if tx.Error != nil {
		return false, fmt.Errorf("idempotency insert: %w", tx.Error)
	}
	return tx.RowsAffected == 1, nil
}
