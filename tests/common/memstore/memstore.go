//go:build unit || e2e

// Package memstore is an in-memory UnitOfWork with the same observable
// behaviour as the postgres one: write transactions are serialized and
// applied atomically on commit, reads see the last committed state.
package memstore

import (
	"context"
	"maps"
	"sync"
	"time"

	"tutor-booking/internal/domain/booking"
	"tutor-booking/internal/infra"
	"tutor-booking/internal/usecase/shared"

	"github.com/google/uuid"
)

type bookingRow struct {
	id             uuid.UUID
	requesterID    uuid.UUID
	providerID     uuid.UUID
	providerUserID uuid.UUID
	mode           booking.SessionMode
	preferredDate  *string
	price          booking.Money
	status         booking.Status
	version        int
	createdAt      time.Time
	updatedAt      time.Time
}

type messageRow struct {
	id        uuid.UUID
	bookingID uuid.UUID
	senderID  uuid.UUID
	content   string
	sentAt    time.Time
	read      bool
	readAt    *time.Time
}

type state struct {
	bookings  map[uuid.UUID]bookingRow
	messages  map[uuid.UUID][]messageRow
	reviews   map[uuid.UUID]bool
	providers map[uuid.UUID]shared.ProviderSnapshot
	users     map[uuid.UUID]shared.UserSnapshot
}

func (s *state) clone() *state {
	out := &state{
		bookings:  maps.Clone(s.bookings),
		messages:  make(map[uuid.UUID][]messageRow, len(s.messages)),
		reviews:   maps.Clone(s.reviews),
		providers: maps.Clone(s.providers),
		users:     maps.Clone(s.users),
	}
	for id, msgs := range s.messages {
		out.messages[id] = append([]messageRow(nil), msgs...)
	}
	return out
}

type Store struct {
	// writeMu serializes write transactions, standing in for row locks.
	writeMu sync.Mutex
	mu      sync.RWMutex
	state   *state

	faultMu      sync.Mutex
	readFaults   []error
	commitFaults []error
	reads        int
}

func New() *Store {
	return &Store{state: &state{
		bookings:  map[uuid.UUID]bookingRow{},
		messages:  map[uuid.UUID][]messageRow{},
		reviews:   map[uuid.UUID]bool{},
		providers: map[uuid.UUID]shared.ProviderSnapshot{},
		users:     map[uuid.UUID]shared.UserSnapshot{},
	}}
}

var _ shared.UnitOfWork = (*Store)(nil)

func (s *Store) Within(ctx context.Context, fn func(ctx context.Context, tx shared.Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	work := s.state.clone()
	s.mu.RUnlock()

	if err := fn(ctx, &tx{st: work}); err != nil {
		return err
	}
	if err := s.nextFault(&s.commitFaults); err != nil {
		return err
	}

	s.mu.Lock()
	s.state = work
	s.mu.Unlock()
	return nil
}

func (s *Store) WithinReadOnly(ctx context.Context, fn func(ctx context.Context, tx shared.ReadTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.faultMu.Lock()
	s.reads++
	s.faultMu.Unlock()

	if err := s.nextFault(&s.readFaults); err != nil {
		return err
	}

	s.mu.RLock()
	snapshot := s.state
	s.mu.RUnlock()

	// committed states are never mutated, so the snapshot is safe to read unlocked
	return fn(ctx, &readTx{st: snapshot})
}

// FailNextRead makes the next read-only transaction fail with err.
func (s *Store) FailNextRead(err error) {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	s.readFaults = append(s.readFaults, err)
}

// FailNextCommit makes the next write transaction fail after fn returned.
func (s *Store) FailNextCommit(err error) {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	s.commitFaults = append(s.commitFaults, err)
}

// ReadCount is the number of read-only transactions started so far.
func (s *Store) ReadCount() int {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	return s.reads
}

func (s *Store) nextFault(queue *[]error) error {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	if len(*queue) == 0 {
		return nil
	}
	err := (*queue)[0]
	*queue = (*queue)[1:]
	return err
}

// Transient returns an error that the read retry treats as transient.
func Transient() error {
	return infra.NewRepoErr(infra.KindUnavailable, "injected connection loss")
}

// Seeding helpers. These bypass transactions and act like other subsystems
// writing their own tables.

func (s *Store) mutate(fn func(st *state)) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.state.clone()
	fn(next)
	s.state = next
}

func (s *Store) PutUser(u shared.UserSnapshot) {
	s.mutate(func(st *state) { st.users[u.ID] = u })
}

func (s *Store) PutProvider(p shared.ProviderSnapshot) {
	s.mutate(func(st *state) { st.providers[p.ID] = p })
}

// SetProviderRate changes a provider's listed rate.
func (s *Store) SetProviderRate(providerID uuid.UUID, rate booking.Money) {
	s.mutate(func(st *state) {
		p := st.providers[providerID]
		p.HourlyRate = rate
		st.providers[providerID] = p
	})
}

// PutReview records that the review subsystem stored a review for bookingID.
func (s *Store) PutReview(bookingID uuid.UUID) {
	s.mutate(func(st *state) { st.reviews[bookingID] = true })
}

// PendingCount counts committed pending bookings for a pair.
func (s *Store) PendingCount(requesterID, providerID uuid.UUID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, b := range s.state.bookings {
		if b.requesterID == requesterID && b.providerID == providerID && b.status == booking.StatusPending {
			n++
		}
	}
	return n
}

// Directory returns a UserDirectory reading committed users.
func (s *Store) Directory() shared.UserDirectory {
	return directory{s: s}
}

type directory struct{ s *Store }

func (d directory) FindUser(_ context.Context, userID uuid.UUID) (*shared.UserSnapshot, error) {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()
	u, ok := d.s.state.users[userID]
	if !ok {
		return nil, infra.NewRepoErr(infra.KindNotFound, "user not found")
	}
	return &u, nil
}
