// Package redistest hands tests an isolated Redis database, or skips them
// when no server is reachable.
package redistest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/smartcity/civicdash/internal/pkg/env"
)

func resolve(t *testing.T) (addr string, password string) {
	t.Helper()

	hosts := unique(env.GetEnv("CACHE_HOST", ""), "cache", "localhost", "127.0.0.1")
	ports := unique(env.GetEnv("CACHE_PORT", ""), "6379")
	passwords := append(unique(env.GetEnv("CACHE_PASSWORD", "")), "")

	var lastErr error
	for _, host := range hosts {
		for _, port := range ports {
			for _, pw := range passwords {
				a := fmt.Sprintf("%s:%s", host, port)
				client := redis.NewClient(&redis.Options{Addr: a, Password: pw})
				ctx, cancel := context.WithTimeout(context.Background(), time.Second)
				err := client.Ping(ctx).Err()
				cancel()
				_ = client.Close()
				if err == nil {
					return a, pw
				}
				lastErr = err
			}
		}
	}

	t.Skipf("Skipping Redis-dependent test: no reachable Redis endpoint (%v)", lastErr)
	return "", ""
}

// Client returns a client on logical database db, flushed before and after the test.
func Client(t *testing.T, db int) *redis.Client {
	t.Helper()

	addr, password := resolve(t)
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})

	if err := client.FlushDB(context.Background()).Err(); err != nil {
		_ = client.Close()
		t.Skipf("Skipping Redis-dependent test: flush of db %d failed (%v)", db, err)
	}
	t.Cleanup(func() {
		_ = client.FlushDB(context.Background()).Err()
		_ = client.Close()
	})
	return client
}

func unique(vals ...string) []string {
	seen := make(map[string]struct{}, len(vals))
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
