package jobs

import (
	"fmt"
	"strings"

	"github.com/hibiken/asynq"
)

// RedisOpt converts REDIS_ADDR into asynq connection options. Both host:port
// and redis:// URLs are accepted, matching platform/cache.
func RedisOpt(addr string) (asynq.RedisConnOpt, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("jobs: empty redis address")
	}
	if strings.Contains(addr, "://") {
		opt, err := asynq.ParseRedisURI(addr)
		if err != nil {
			return nil, fmt.Errorf("jobs: parse redis uri: %w", err)
		}
		return opt, nil
	}
	return asynq.RedisClientOpt{Addr: addr}, nil
}
