package shopper

import (
	"context"
	"fmt"

	"github.com/utafrali/storefront/internal/config"
	"github.com/utafrali/storefront/internal/kv"
	"github.com/utafrali/storefront/internal/kv/memory"
	kvredis "github.com/utafrali/storefront/internal/kv/redis"
	"github.com/utafrali/storefront/pkg/database"
)

// OpenStore builds the kv.Store named by cfg.KVBackend. The returned close
// function releases its connections.
func OpenStore(ctx context.Context, cfg *config.ClientConfig) (kv.Store, func() error, error) {
	switch cfg.KVBackend {
	case kv.BackendMemory:
		return memory.New(), func() error { return nil }, nil
	case kv.BackendRedis:
		client, err := database.NewRedisClient(ctx, cfg.Redis())
		if err != nil {
			return nil, nil, fmt.Errorf("open kv store: %w", err)
		}
		return kvredis.New(client, cfg.KVPrefix, cfg.KVTTL), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown kv backend %q", cfg.KVBackend)
	}
}
