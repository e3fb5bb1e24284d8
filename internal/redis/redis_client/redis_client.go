package redis_client

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const pingTimeout = 5 * time.Second

// NewRedisClient connects to the change-feed Redis and checks it answers.
func NewRedisClient(host string, port int) (*redis.Client, error) {
	// pub/sub holds one connection per subscribed room on top of the publishers
	maxPool := min(runtime.NumCPU()*8, 512)

	rc := redis.NewClient(&redis.Options{
		Addr:        fmt.Sprintf("%s:%d", host, port),
		PoolSize:    maxPool,
		DialTimeout: pingTimeout,
	})

	ctx, cancelFunc := context.WithTimeout(context.Background(), pingTimeout)
	defer cancelFunc()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		err = fmt.Errorf("redis connection failed: %w", err)
		zap.L().Error("redis_connect", zap.Error(err))
		return nil, err
	}
	zap.L().Info("redis_connected", zap.String("addr", rc.Options().Addr), zap.Int("pool", maxPool))
	return rc, nil
}
