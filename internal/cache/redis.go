package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	clientName   = "sopo"
	pingAttempts = 3
	pingTimeout  = 5 * time.Second
)

// ConnectRedis opens the client shared by the count cache and the task queue.
// Redis often starts after the API in local compose setups, so the first
// ping is retried a few times before giving up.
func ConnectRedis(addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:       addr,
		Password:   password,
		DB:         db,
		ClientName: clientName,
	})

	var err error
	for attempt := 1; attempt <= pingAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
		err = rdb.Ping(ctx).Err()
		cancel()
		if err == nil {
			fmt.Printf("Connected to Redis at %s (db %d).\n", addr, db)
			return rdb, nil
		}
		if attempt < pingAttempts {
			log.Printf("Redis ping %d/%d failed: %v", attempt, pingAttempts, err)
			time.Sleep(time.Duration(attempt) * time.Second)
		}
	}

	_ = rdb.Close()
	return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
}

// DisconnectRedis closes client. A nil client is a no-op.
func DisconnectRedis(client *redis.Client) error {
	if client == nil {
		return nil
	}
	if err := client.Close(); err != nil {
		return fmt.Errorf("failed to close Redis connection: %w", err)
	}
	fmt.Println("Redis connection closed.")
	return nil
}
