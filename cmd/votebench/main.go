package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/d60-Lab/threadboard/config"
	"github.com/d60-Lab/threadboard/internal/auth"
	"github.com/d60-Lab/threadboard/internal/repository"
	"github.com/d60-Lab/threadboard/internal/service"
	"github.com/d60-Lab/threadboard/pkg/database"
)

// votebench: N 个不同用户并发给同一帖子投票，每人再重复投 DUP 次，
// 最后核对 score 是否等于去重后的投票人数
func main() {
	cfg := must(config.Load())
	db := must(database.InitDB(cfg))
	defer database.Close(db)

	board := service.NewBoardService(
		repository.NewPostRepository(db),
		repository.NewReplyRepository(db),
		repository.NewVoteRepository(db),
		nil, nil,
	)
	ctx := context.Background()

	N := envInt("N", 2000)
	CONC := envInt("CONC", 8)
	DUP := envInt("DUP", 1)

	author := auth.Identity{UserID: "bench-author", Username: "author"}
	post := must(board.CreatePost(ctx, author, "votebench target "+uuid.NewString()[:8]))

	voters := make([]auth.Identity, N)
	for i := range voters {
		voters[i] = auth.Identity{UserID: fmt.Sprintf("voter-%06d", i), Username: fmt.Sprintf("v%06d", i)}
	}

	// 每个投票人出现 1+DUP 次
	ops := N * (1 + DUP)
	feed := make(chan int, ops)
	for round := 0; round <= DUP; round++ {
		for i := 0; i < N; i++ {
			feed <- i
		}
	}
	close(feed)

	var accepted, duplicates, failed atomic.Int64
	latCh := make(chan time.Duration, ops)
	done := make(chan struct{}, CONC)

	t0 := time.Now()
	for w := 0; w < CONC; w++ {
		go func() {
			for i := range feed {
				st := time.Now()
				_, err := board.VotePost(ctx, voters[i], post.ID, "1")
				latCh <- time.Since(st)
				switch {
				case err == nil:
					accepted.Add(1)
				case errors.Is(err, service.ErrAlreadyVoted):
					duplicates.Add(1)
				default:
					failed.Add(1)
				}
			}
			done <- struct{}{}
		}()
	}
	for w := 0; w < CONC; w++ {
		<-done
	}
	total := time.Since(t0)
	close(latCh)

	lats := make([]time.Duration, 0, ops)
	for d := range latCh {
		lats = append(lats, d)
	}

	posts := must(board.GetAll(ctx))
	var score int64 = -1
	for _, p := range posts {
		if p.ID == post.ID {
			score = p.Score
		}
	}

	fmt.Printf("N=%d CONC=%d DUP=%d driver=%s\n", N, CONC, DUP, cfg.Database.Driver)
	fmt.Printf("Vote latency total: %v, per op: %v, p50: %v, p95: %v, p99: %v\n",
		total, total/time.Duration(len(lats)), pct(lats, 0.50), pct(lats, 0.95), pct(lats, 0.99))
	fmt.Printf("accepted=%d duplicates=%d failed=%d score=%d\n",
		accepted.Load(), duplicates.Load(), failed.Load(), score)

	if score != int64(N) || accepted.Load() != int64(N) {
		fmt.Println("MISMATCH: lost or duplicated votes")
		os.Exit(1)
	}
	fmt.Println("OK: every distinct voter counted exactly once")
}

func envInt(key string, def int) int {
	if s := os.Getenv(key); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			return v
		}
	}
	return def
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
