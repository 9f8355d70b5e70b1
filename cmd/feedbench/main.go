package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/d60-Lab/threadboard/config"
	"github.com/d60-Lab/threadboard/internal/auth"
	"github.com/d60-Lab/threadboard/internal/cache"
	"github.com/d60-Lab/threadboard/internal/repository"
	"github.com/d60-Lab/threadboard/internal/service"
	"github.com/d60-Lab/threadboard/pkg/database"
)

// feedbench: 对比 GetAll 直连数据库与走 Redis 缓存的延迟，
// 每 WRITE_EVERY 次读插入一次投票，观察失效后的回源次数
func main() {
	ctx := context.Background()
	cfg := must(config.Load())
	db := must(database.InitDB(cfg))
	defer database.Close(db)

	posts := repository.NewPostRepository(db)
	replies := repository.NewReplyRepository(db)
	votes := repository.NewVoteRepository(db)

	POSTS := max(envInt("POSTS", 100), 1)
	REPLIES := envInt("REPLIES", 5)
	READS := envInt("READS", 3000)
	writeEvery := envInt("WRITE_EVERY", 50)

	fmt.Println("Setting up test data...")
	seed := service.NewBoardService(posts, replies, votes, nil, nil)
	author := auth.Identity{UserID: "bench-author", Username: "author"}
	postIDs := make([]string, 0, POSTS)
	for i := 0; i < POSTS; i++ {
		p := must(seed.CreatePost(ctx, author, fmt.Sprintf("feedbench post #%d", i)))
		postIDs = append(postIDs, p.ID)
		for j := 0; j < REPLIES; j++ {
			must(seed.CreateReply(ctx, author, p.ID, author.Username, fmt.Sprintf("reply %d to #%d", j, i)))
		}
	}
	fmt.Printf("Test data ready: %d posts x %d replies\n", POSTS, REPLIES)

	client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	defer client.Close()
	if err := client.Ping(ctx).Err(); err != nil {
		panic(fmt.Sprintf("Failed to connect to Redis at %s: %v", cfg.Redis.Addr, err))
	}

	boardCache := cache.NewBoardCache(client, time.Minute)
	direct := service.NewBoardService(posts, replies, votes, nil, nil)
	cached := service.NewBoardService(posts, replies, votes, boardCache, nil)

	rnd := rand.New(rand.NewSource(42))
	voter := 0
	run := func(name string, svc service.BoardService) []time.Duration {
		client.FlushDB(ctx)
		fmt.Printf("  %s...", name)
		out := make([]time.Duration, 0, READS)
		for i := 0; i < READS; i++ {
			if writeEvery > 0 && i > 0 && i%writeEvery == 0 {
				voter++
				who := auth.Identity{UserID: fmt.Sprintf("bench-voter-%d", voter), Username: "voter"}
				must(svc.VotePost(ctx, who, postIDs[rnd.Intn(len(postIDs))], "1"))
			}
			start := time.Now()
			must(svc.GetAll(ctx))
			out = append(out, time.Since(start))
		}
		fmt.Println(" done")
		return out
	}

	noCache := run("No cache", direct)
	withCache := run("Redis cache", cached)
	hits, misses := boardCache.Counters()

	fmt.Printf("\nGetAll latency (%d reads, write every %d, driver=%s)\n", READS, writeEvery, cfg.Database.Driver)
	fmt.Printf("%-12s avg=%v p95=%v p99=%v\n", "No cache", avg(noCache), pct(noCache, 0.95), pct(noCache, 0.99))
	fmt.Printf("%-12s avg=%v p95=%v p99=%v hits=%d misses=%d mem=%s\n",
		"Redis cache", avg(withCache), pct(withCache, 0.95), pct(withCache, 0.99),
		hits, misses, formatBytes(redisMemory(ctx, client)))
}

// redisMemory 读取 INFO memory 中的 used_memory
func redisMemory(ctx context.Context, client *redis.Client) int64 {
	info, err := client.Info(ctx, "memory").Result()
	if err != nil {
		return 0
	}
	for _, line := range strings.Split(info, "\n") {
		if v, ok := strings.CutPrefix(strings.TrimSpace(line), "used_memory:"); ok {
			n, _ := strconv.ParseInt(v, 10, 64)
			return n
		}
	}
	return 0
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func envInt(key string, def int) int {
	if s := os.Getenv(key); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			return v
		}
	}
	return def
}

func avg(vs []time.Duration) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	var sum time.Duration
	for _, v := range vs {
		sum += v
	}
	return sum / time.Duration(len(vs))
}

func pct(vs []time.Duration, p float64) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), vs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(math.Ceil(p*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}
