package uow

import (
	"context"
	"errors"
	"log/slog"

	"tutor-booking/internal/infra"
	"tutor-booking/internal/infra/db"
	"tutor-booking/internal/infra/readstore"
	"tutor-booking/internal/infra/repository"
	"tutor-booking/internal/pkg/errs"
	"tutor-booking/internal/usecase/shared"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	errTransactionBegin  = errs.New("failed to begin transaction")
	errTransactionCommit = errs.New("failed to commit transaction")
)

type PostgresUoW struct {
	pool *pgxpool.Pool
}

func NewPostgresUoW(pool *pgxpool.Pool) shared.UnitOfWork {
	return &PostgresUoW{pool: pool}
}

// Within runs fn once under ReadCommitted. Booking rows are locked explicitly
// with FOR UPDATE, and a failed mutation is surfaced, never replayed.
func (u *PostgresUoW) Within(ctx context.Context, fn func(ctx context.Context, tx shared.Tx) error) error {
	pgxTx, err := u.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return errs.Mark(infra.WrapRepoErr("begin write transaction", err), errTransactionBegin)
	}
	defer rollback(ctx, pgxTx)

	if err := fn(ctx, &pgTx{dbtx: pgxTx}); err != nil {
		return err
	}
	if err := pgxTx.Commit(ctx); err != nil {
		return errs.Mark(infra.WrapRepoErr("commit write transaction", err), errTransactionCommit)
	}
	return nil
}

// WithinReadOnly gives fn a consistent snapshot across bookings, threads and reviews.
func (u *PostgresUoW) WithinReadOnly(ctx context.Context, fn func(ctx context.Context, tx shared.ReadTx) error) error {
	pgxTx, err := u.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return errs.Mark(infra.WrapRepoErr("begin read-only transaction", err), errTransactionBegin)
	}
	defer rollback(ctx, pgxTx)

	if err := fn(ctx, &pgReadTx{pgTx{dbtx: pgxTx}}); err != nil {
		return err
	}
	return pgxTx.Commit(ctx)
}

func rollback(ctx context.Context, tx pgx.Tx) {
	if err := tx.Rollback(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		slog.Warn("rollback failed", "error", err.Error())
	}
}

type pgTx struct {
	dbtx db.DBTX

	// Lazy-initialized repositories
	bookingRepo *repository.BookingRepository
	directory   *readstore.DirectoryReadStore
	reviewStore *readstore.ReviewReadStore
}

func (t *pgTx) bookings() *repository.BookingRepository {
	if t.bookingRepo == nil {
		t.bookingRepo = repository.NewBookingRepository(t.dbtx)
	}
	return t.bookingRepo
}

func (t *pgTx) Bookings() shared.BookingStore {
	return t.bookings()
}

func (t *pgTx) Providers() shared.ProviderDirectory {
	if t.directory == nil {
		t.directory = readstore.NewDirectoryReadStore(t.dbtx)
	}
	return t.directory
}

func (t *pgTx) Reviews() shared.ReviewLookup {
	if t.reviewStore == nil {
		t.reviewStore = readstore.NewReviewReadStore(t.dbtx)
	}
	return t.reviewStore
}

type pgReadTx struct {
	pgTx
}

func (t *pgReadTx) Bookings() shared.BookingReader {
	return t.bookings()
}
