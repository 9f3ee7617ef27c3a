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

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

// CreateTestUnit inserts a bookable inventory unit and returns its id.
// A nil totalCapacity means unlimited capacity.
func CreateTestUnit(t *testing.T, db DBLike, name string, totalCapacity *int32) uuid.UUID {
	t.Helper()

	unitID := uuid.New()
	ctx := context.Background()

	_, err := db.Exec(ctx, `
		INSERT INTO inventory_units (id, kind, name, starts_at, price_cents, currency, total_capacity, consumed, active)
		VALUES ($1, 'event', $2, now() + interval '72 hours', 500000, 'NGN', $3, 0, true)`,
		unitID, name, totalCapacity)
	require.NoError(t, err)

	return unitID
}

// CreateSoldOutUnit inserts a unit whose capacity is fully consumed.
func CreateSoldOutUnit(t *testing.T, db DBLike, name string, capacity int32) uuid.UUID {
	t.Helper()

	unitID := uuid.New()
	ctx := context.Background()

	_, err := db.Exec(ctx, `
		INSERT INTO inventory_units (id, kind, name, starts_at, price_cents, currency, total_capacity, consumed, active)
		VALUES ($1, 'event', $2, now() + interval '72 hours', 500000, 'NGN', $3, $3, true)`,
		unitID, name, capacity)
	require.NoError(t, err)

	return unitID
}

// UnitConsumed reads the capacity ledger's consumed counter.
func UnitConsumed(t *testing.T, db DBLike, unitID uuid.UUID) int32 {
	t.Helper()

	var consumed int32
	err := db.QueryRow(context.Background(),
		"SELECT consumed FROM inventory_units WHERE id = $1", unitID).Scan(&consumed)
	require.NoError(t, err)
	return consumed
}

var (
	buildTruncateOnce sync.Once
	truncateSQL       atomic.Value // string
)

// truncates all tables between tests
func ResetDB(pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	buildTruncateOnce.Do(func() {
		rows, err := pool.Query(ctx, `
		  SELECT 'public.' || quote_ident(tablename)
		  FROM pg_tables
		  WHERE schemaname = 'public'
		    AND tablename NOT IN ('schema_migrations')`)
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
	if _, err := pool.Exec(ctx, sqlAny.(string)); err != nil {
		return err
	}

	return nil
}
