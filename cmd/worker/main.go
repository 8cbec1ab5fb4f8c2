package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"proctorlog/internal/config"
	"proctorlog/internal/metrics"
	"proctorlog/internal/queue"
	"proctorlog/internal/store"
	"proctorlog/internal/telemetry"
)

// Worker consumes appended-session ids and flags sessions whose
// violation signals reach the review threshold. It never mutates the
// log; flagged sessions surface through logs and metrics.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "proctorlog:sessions")
	}

	repo := telemetry.NewRepository(db.Client)

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Printf("worker started, violation threshold %d", cfg.ViolationThreshold)
	for msg := range messages {
		if msg.Type != "session" {
			continue
		}

		id, err := strconv.ParseInt(string(msg.Body), 10, 64)
		if err != nil {
			log.Printf("bad session id %q: %v", msg.Body, err)
			continue
		}

		lg, err := repo.GetLog(ctx, id)
		if err != nil {
			log.Printf("fetch session %d failed: %v", id, err)
			continue
		}

		violations := lg.TabSwitches + lg.ScreenShots
		if violations >= cfg.ViolationThreshold {
			metrics.ViolationFlags.Inc()
			log.Printf("session %d flagged for review: student %s (%s), %d tab switches, %d screenshots, status %s",
				lg.ID, lg.StudentName, lg.RegNo, lg.TabSwitches, lg.ScreenShots, lg.Status)
			continue
		}

		log.Printf("session %d ok: %d violation signals", lg.ID, violations)
	}

	log.Println("worker stopped")
}
