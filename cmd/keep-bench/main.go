package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/mirkobrombin/go-keep/v1/cache"
)

var (
	concurrency = flag.Int("c", 50, "Concurrency")
	requests    = flag.Int("n", 100000, "Requests")
	dataSize    = flag.Int("d", 256, "Payload size")
	capacity    = flag.Int("capacity", 1<<16, "keep cache capacity")
	target      = flag.String("target", "all", "Target: keep, ristretto, redis")
	redisAddr   = flag.String("redis-addr", "localhost:6379", "Redis Address")
)

func main() {
	flag.Parse()

	payload := make([]byte, *dataSize)
	for i := range payload {
		payload[i] = 'x'
	}

	targets := strings.Split(*target, ",")
	if *target == "all" {
		targets = []string{"keep", "ristretto", "redis"}
	}

	fmt.Printf("| %-15s | %-10s | %-12s | %-12s |\n", "System", "Ops/sec", "Avg Latency", "P99 Latency")
	fmt.Println("|:---|:---|:---|:---|")

	for _, t := range targets {
		runBenchmark(strings.TrimSpace(t), payload)
	}
}

func runBenchmark(name string, payload []byte) {
	var (
		getFn   func(ctx context.Context, key string) error
		setFn   func(ctx context.Context, key string, val []byte) error
		cleanup func()
	)

	ctx := context.Background()
	key := "bench:" + uuid.NewString()

	switch name {
	case "keep":
		c, err := cache.New[string, []byte](*capacity)
		if err != nil {
			log.Printf("keep: %v", err)
			return
		}
		setFn = func(ctx context.Context, k string, v []byte) error { return c.Set(ctx, k, v) }
		getFn = func(ctx context.Context, k string) error {
			_, ok, err := c.Get(ctx, k)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("not found")
			}
			return nil
		}

	case "ristretto":
		rc, err := ristretto.NewCache(&ristretto.Config{
			NumCounters: 1e7,
			MaxCost:     1 << 30,
			BufferItems: 64,
		})
		if err != nil {
			log.Printf("ristretto: %v", err)
			return
		}
		setFn = func(ctx context.Context, k string, v []byte) error {
			rc.Set(k, v, 1)
			rc.Wait()
			return nil
		}
		getFn = func(ctx context.Context, k string) error {
			if _, found := rc.Get(k); !found {
				return fmt.Errorf("not found")
			}
			return nil
		}
		cleanup = func() { rc.Close() }

	case "redis":
		r := redis.NewClient(&redis.Options{Addr: *redisAddr})
		setFn = func(ctx context.Context, k string, v []byte) error { return r.Set(ctx, k, v, 0).Err() }
		getFn = func(ctx context.Context, k string) error { return r.Get(ctx, k).Err() }
		cleanup = func() { r.Close() }

	default:
		log.Printf("Unknown target: %s", name)
		return
	}

	if cleanup != nil {
		defer cleanup()
	}

	if err := setFn(ctx, key, payload); err != nil {
		log.Printf("%s warmup: %v", name, err)
	}

	var ops int64
	totalReqs := *requests
	latencies := make([]int64, totalReqs)

	start := time.Now()
	chunk := totalReqs / *concurrency

	var g errgroup.Group
	for i := 0; i < *concurrency; i++ {
		offset := i * chunk
		g.Go(func() error {
			for j := 0; j < chunk; j++ {
				reqStart := time.Now()
				if err := getFn(ctx, key); err == nil {
					atomic.AddInt64(&ops, 1)
					latencies[offset+j] = time.Since(reqStart).Nanoseconds()
				}
			}
			return nil
		})
	}

	_ = g.Wait()
	elapsed := time.Since(start)

	if ops == 0 {
		fmt.Printf("| %-15s | %-10s | %-12s | %-12s |\n", name, "ERROR", "-", "-")
		return
	}

	throughput := float64(ops) / elapsed.Seconds()
	avgLat := float64(elapsed.Nanoseconds()) / float64(ops)

	p99 := "-"
	validLats := make([]int64, 0, ops)
	for _, l := range latencies {
		if l > 0 {
			validLats = append(validLats, l)
		}
	}
	if len(validLats) > 0 {
		sort.Slice(validLats, func(i, j int) bool { return validLats[i] < validLats[j] })
		p99Idx := int(float64(len(validLats)) * 0.99)
		if p99Idx >= len(validLats) {
			p99Idx = len(validLats) - 1
		}
		p99 = fmt.Sprintf("%d", validLats[p99Idx])
	}

	fmt.Printf("| %-15s | %-10.0f | %-12.0f | %-12s |\n", name, throughput, avgLat, p99)
}
