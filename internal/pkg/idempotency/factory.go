package idempotency

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/mavuno/mavuno-api/internal/pkg/config"
)

// New selects the guard backend named by IDEMPOTENCY_BACKEND.
func New(backend string, rdb *redis.Client, db *gorm.DB, ttl time.Duration) (Guard, error) {
	switch backend {
	case "", config.IdempotencyMemory:
		return NewMemoryGuard(), nil
	case config.IdempotencyRedis:
		if rdb == nil {
			return nil, fmt.Errorf("idempotency backend %q needs a redis client", backend)
		}
		return NewRedisGuard(rdb, ttl), nil
	case config.IdempotencyDatabase:
		if db == nil {
			return nil, fmt.Errorf("idempotency backend %q needs a database", backend)
		}
		return NewDatabaseGuard(db), nil
	default:
		return nil, fmt.Errorf("unknown idempotency backend %q", backend)
	}
}
