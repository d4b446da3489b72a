// Command sentinel-loadtest drives concurrent logins and session checks
// through a goSentinel Engine backed by a Redis credential store.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	goSentinel "github.com/MrEthical07/goSentinel"
	"github.com/MrEthical07/goSentinel/credstore"
	"github.com/MrEthical07/goSentinel/password"
)

func main() {
	var (
		users       = flag.Int("users", 10000, "number of credential records to seed")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "operations per phase (login + check)")
		wrongRatio  = flag.Float64("wrong-ratio", 0.05, "fraction of logins sent with a wrong password")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "acr", "credential key prefix")
	)
	flag.Parse()

	if *users <= 0 || *concurrency <= 0 || *ops <= 0 || *wrongRatio < 0 || *wrongRatio > 1 {
		fmt.Fprintln(os.Stderr, "users, concurrency, and ops must be > 0; wrong-ratio must be in [0,1]")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	store := credstore.NewRedis(client, credstore.RedisOptions{Prefix: *prefix})

	// A high threshold keeps wrong-password traffic from locking the pool.
	cfg := goSentinel.DefaultConfig()
	cfg.Lockout.Threshold = 1 << 30
	engine, err := goSentinel.New().WithConfig(cfg).WithStore(store).Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	fmt.Printf("seeding %d users...\n", *users)
	startSeed := time.Now()
	if err := seed(ctx, store, *users); err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	pool := newSessionPool(*users)
	loginStats := runPhase(*ops, *concurrency, 7919, func(r *rand.Rand) bool {
		i := r.Intn(*users)
		secret := passwordFor(i)
		wrong := r.Float64() < *wrongRatio
		if wrong {
			secret += "-nope"
		}
		res, err := engine.Authenticate(ctx, usernameFor(i), secret)
		if err != nil {
			return false
		}
		if res.OK {
			pool.put(res.SessionID, res.Token)
		}
		// An expected rejection is a correct outcome, not a failure.
		return res.OK != wrong
	})

	if pool.len() == 0 {
		fmt.Fprintln(os.Stderr, "no sessions minted; skipping check phase")
		os.Exit(1)
	}
	checkStats := runPhase(*ops, *concurrency, 6151, func(r *rand.Rand) bool {
		id, token := pool.pick(r)
		return engine.CheckSession(ctx, id, token)
	})

	fmt.Println("---- results ----")
	printStats("authenticate", loginStats)
	printStats("check-session", checkStats)
	fmt.Printf("active sessions: %d\n", engine.ActiveSessions())
}

func usernameFor(i int) string { return fmt.Sprintf("user-%d", i) }
func passwordFor(i int) string { return fmt.Sprintf("pw-%d-secret", i) }

func seed(ctx context.Context, store *credstore.Redis, users int) error {
	hasher, err := password.New(password.Config{})
	if err != nil {
		return err
	}
	for i := 0; i < users; i++ {
		digest, err := hasher.Hash(passwordFor(i))
		if err != nil {
			return err
		}
		if err := store.Put(ctx, credstore.Record{
			Username:       usernameFor(i),
			PasswordDigest: digest,
			Role:           "member",
		}); err != nil {
			return err
		}
	}
	return nil
}

type sessionPool struct {
	mu     sync.RWMutex
	ids    []string
	tokens []string
}

func newSessionPool(capacity int) *sessionPool {
	return &sessionPool{
		ids:    make([]string, 0, capacity),
		tokens: make([]string, 0, capacity),
	}
}

func (p *sessionPool) put(id, token string) {
	p.mu.Lock()
	p.ids = append(p.ids, id)
	p.tokens = append(p.tokens, token)
	p.mu.Unlock()
}

func (p *sessionPool) pick(r *rand.Rand) (string, string) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	i := r.Intn(len(p.ids))
	return p.ids[i], p.tokens[i]
}

func (p *sessionPool) len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.ids)
}

// runPhase spreads ops calls of fn across concurrency workers. fn reports
// whether the call behaved as expected.
func runPhase(ops, concurrency int, seedSalt int64, fn func(r *rand.Rand) bool) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*seedSalt))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				ok := fn(r)
				d := time.Since(t0)
				if !ok {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
