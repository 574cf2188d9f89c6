package notify

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"log/slog"
	"sync"
	"time"

	"tutor-booking/internal/infra/mq"
	"tutor-booking/internal/infra/repository"
	"tutor-booking/internal/pkg/clock"
	"tutor-booking/internal/pkg/config"
	"tutor-booking/internal/pkg/errs"

	"github.com/jackc/pgx/v5"
)

type TxBeginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

type RelayOptions struct {
	Interval    time.Duration
	BatchSize   int
	MaxAttempts int
	RetryBase   time.Duration
}

func RelayOptionsFromConfig(cfg config.NotifyConfig) RelayOptions {
	return RelayOptions{
		Interval:    cfg.RelayInterval,
		BatchSize:   cfg.RelayBatchSize,
		MaxAttempts: cfg.MaxAttempts,
		RetryBase:   cfg.RetryBase,
	}
}

// Relay moves queued notification jobs to the broker. Delivery is
// at-least-once: a crash between publish and commit republishes the job.
type Relay struct {
	db        TxBeginner
	publisher mq.Publisher
	clock     clock.Clock
	opts      RelayOptions

	stop chan struct{}
	wg   sync.WaitGroup
}

func NewRelay(db TxBeginner, publisher mq.Publisher, clk clock.Clock, opts RelayOptions) *Relay {
	if opts.Interval <= 0 {
		opts.Interval = 2 * time.Second
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	if opts.RetryBase <= 0 {
		opts.RetryBase = 5 * time.Second
	}
	return &Relay{db: db, publisher: publisher, clock: clk, opts: opts}
}

func (r *Relay) Start(context.Context) error {
	r.stop = make(chan struct{})
	r.wg.Add(1)
	go r.loop()
	slog.Info("notification relay started", "interval", r.opts.Interval.String())
	return nil
}

func (r *Relay) Stop(ctx context.Context) error {
	close(r.stop)
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Relay) loop() {
	defer r.wg.Done()
	ticker := time.NewTicker(r.opts.Interval)
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-r.stop
		cancel()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
				slog.Warn("notification relay pass failed", "error", err.Error())
			}
		}
	}
}

// RunOnce claims one batch of due jobs, publishes them and records the
// outcome. It returns the number of jobs published.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return 0, errs.Wrap(err, "begin relay transaction")
	}
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	jobs := repository.NewNotificationRepository(tx)
	due, err := jobs.ClaimDue(ctx, r.clock.Now(), r.opts.BatchSize)
	if err != nil {
		return 0, err
	}

	published := 0
	for _, job := range due {
		pubErr := r.publisher.Publish(ctx, job.Event, job.ID.String(), job.Payload)
		if err := r.settle(ctx, jobs, job, pubErr); err != nil {
			return published, err
		}
		if pubErr == nil {
			published++
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, errs.Wrap(err, "commit relay transaction")
	}
	return published, nil
}

func (r *Relay) settle(ctx context.Context, jobs *repository.NotificationRepository, job repository.NotificationJob, pubErr error) error {
	now := r.clock.Now()
	switch outcome(job.Attempts, r.opts.MaxAttempts, pubErr) {
	case outcomeSent:
		return jobs.MarkSent(ctx, job.ID, now)
	case outcomeRetry:
		slog.Warn("notification publish failed, will retry",
			"job_id", job.ID.String(), "attempt", job.Attempts+1, "error", pubErr.Error())
		return jobs.MarkRetry(ctx, job.ID, now.Add(calculateBackoff(job.Attempts, r.opts.RetryBase)), pubErr.Error())
	default:
		slog.Error("notification publish failed, giving up",
			"job_id", job.ID.String(), "attempts", job.Attempts+1, "error", pubErr.Error())
		return jobs.MarkFailed(ctx, job.ID, pubErr.Error())
	}
}

type jobOutcome int

const (
	outcomeSent jobOutcome = iota
	outcomeRetry
	outcomeFailed
)

// outcome decides the job state after one publish attempt. attempts counts
// earlier tries.
func outcome(attempts, maxAttempts int, pubErr error) jobOutcome {
	switch {
	case pubErr == nil:
		return outcomeSent
	case attempts+1 >= maxAttempts:
		return outcomeFailed
	default:
		return outcomeRetry
	}
}

// calculateBackoff doubles base per attempt and adds up to 20% jitter.
func calculateBackoff(attempt int, base time.Duration) time.Duration {
	if attempt > 16 {
		attempt = 16
	}
	waitTime := time.Duration(1<<attempt) * base
	jitter := cryptoRandInt63n(int64(waitTime / 5))
	return waitTime + time.Duration(jitter)
}

func cryptoRandInt63n(n int64) int64 {
	if n <= 0 {
		return 0
	}
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0
	}
	// #nosec G115 -- high bit masked before conversion
	uval := binary.BigEndian.Uint64(buf[:]) & 0x7FFFFFFFFFFFFFFF
	return int64(uval) % n
}
