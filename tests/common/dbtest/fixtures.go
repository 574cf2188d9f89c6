//go:build unit || e2e

package dbtest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"tutor-booking/tests/common/builder"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

func CreateTestUser(t *testing.T, db DBLike, u *builder.UserBuilder) uuid.UUID {
	t.Helper()

	_, err := db.Exec(context.Background(),
		"INSERT INTO users (id, display_name, role) VALUES ($1, $2, $3) ON CONFLICT (id) DO NOTHING",
		u.ID, u.DisplayName, u.Role.String())
	require.NoError(t, err)
	return u.ID
}

// CreateTestProvider inserts the tutor user and the profile.
func CreateTestProvider(t *testing.T, db DBLike, p *builder.ProviderBuilder) uuid.UUID {
	t.Helper()

	ctx := context.Background()
	_, err := db.Exec(ctx,
		"INSERT INTO users (id, display_name, role) VALUES ($1, $2, 'tutor') ON CONFLICT (id) DO NOTHING",
		p.UserID, p.DisplayName)
	require.NoError(t, err)

	_, err = db.Exec(ctx,
		"INSERT INTO provider_profiles (id, user_id, display_name, hourly_rate_minor, currency) VALUES ($1, $2, $3, $4, $5)",
		p.ID, p.UserID, p.DisplayName, p.RateMinor, p.Currency)
	require.NoError(t, err)
	return p.ID
}

func SetProviderRate(t *testing.T, db DBLike, providerID uuid.UUID, minor int64) {
	t.Helper()

	tag, err := db.Exec(context.Background(),
		"UPDATE provider_profiles SET hourly_rate_minor = $2, updated_at = now() WHERE id = $1", providerID, minor)
	require.NoError(t, err)
	require.EqualValues(t, 1, tag.RowsAffected())
}

func CreateTestReview(t *testing.T, db DBLike, bookingID, reviewerID uuid.UUID, rating int) {
	t.Helper()

	_, err := db.Exec(context.Background(),
		"INSERT INTO reviews (booking_id, reviewer_id, rating) VALUES ($1, $2, $3)", bookingID, reviewerID, rating)
	require.NoError(t, err)
}

var (
	buildTruncateOnce sync.Once
	truncateSQL       atomic.Value // string
)

// truncates all tables
func ResetDB(pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	buildTruncateOnce.Do(func() {
		rows, err := pool.Query(ctx, `
		  SELECT 'public.' || quote_ident(tablename)
		  FROM pg_tables
		  WHERE schemaname = 'public'
		    AND tablename NOT IN ('schema_migrations', 'atlas_schema_revisions')`)
		if err != nil {
			truncateSQL.Store("")
			return
		}
		defer rows.Close()
		var tables []string
		for rows.Next() {
			var t string
			if err := rows.Scan(&t); err != nil {
				truncateSQL.Store("")
				return
			}
			tables = append(tables, t)
		}
		if rows.Err() != nil {
			truncateSQL.Store("")
			return
		}
		if len(tables) == 0 {
			truncateSQL.Store("SELECT 1")
			return
		}
		truncateSQL.Store("TRUNCATE " + strings.Join(tables, ", ") + " RESTART IDENTITY CASCADE;")
	})
	sqlAny := truncateSQL.Load()
	if sqlAny == nil || sqlAny.(string) == "" {
		return fmt.Errorf("failed to build TRUNCATE SQL")
	}
	_, err := pool.Exec(ctx, sqlAny.(string))
	return err
}
