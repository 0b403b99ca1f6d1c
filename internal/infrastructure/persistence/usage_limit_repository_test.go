package persistence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/leadflow/backend/internal/domain/shared"
	"github.com/leadflow/backend/internal/domain/usage"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var march2024 = usage.Period{Year: 2024, Month: time.March}

func TestUsageLimitRepository_FindByUserAndPeriod(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUsageLimitRepository(db)
	ctx := context.Background()

	t.Run("absent key returns not found", func(t *testing.T) {
		_, err := repo.FindByUserAndPeriod(ctx, "u1", march2024)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("returns stored counter", func(t *testing.T) {
		now := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
		require.NoError(t, repo.Upsert(ctx, "u1", march2024, 7, now))

		rec, err := repo.FindByUserAndPeriod(ctx, "u1", march2024)
		require.NoError(t, err)
		assert.Equal(t, "u1", rec.UserID)
		assert.Equal(t, march2024, rec.Period)
		assert.Equal(t, int64(7), rec.Count)
		assert.Equal(t, 1, rec.Version)
		assert.NotEqual(t, uuid.Nil, rec.ID)
	})
}

func TestUsageLimitRepository_Upsert(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUsageLimitRepository(db)
	ctx := context.Background()
	now := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)

	t.Run("first write inserts, later writes accumulate", func(t *testing.T) {
		require.NoError(t, repo.Upsert(ctx, "u1", march2024, 4, now))
		require.NoError(t, repo.Upsert(ctx, "u1", march2024, 8, now.Add(time.Hour)))

		rec, err := repo.FindByUserAndPeriod(ctx, "u1", march2024)
		require.NoError(t, err)
		assert.Equal(t, int64(12), rec.Count)
		assert.Equal(t, 2, rec.Version)

		var rows int64
		require.NoError(t, db.Model(&UsageLimitModel{}).Where("user_id = ?", "u1").Count(&rows).Error)
		assert.Equal(t, int64(1), rows)
	})

	t.Run("periods and users are isolated", func(t *testing.T) {
		april := usage.Period{Year: 2024, Month: time.April}
		require.NoError(t, repo.Upsert(ctx, "u2", march2024, 5, now))
		require.NoError(t, repo.Upsert(ctx, "u2", april, 3, now))

		mar, err := repo.FindByUserAndPeriod(ctx, "u2", march2024)
		require.NoError(t, err)
		apr, err := repo.FindByUserAndPeriod(ctx, "u2", april)
		require.NoError(t, err)
		assert.Equal(t, int64(5), mar.Count)
		assert.Equal(t, int64(3), apr.Count)
	})

	t.Run("negative delta is rejected before touching storage", func(t *testing.T) {
		err := repo.Upsert(ctx, "u3", march2024, -1, now)
		assert.ErrorIs(t, err, usage.ErrInvalidArgument)
	})
}

func TestUsageLimitRepository_IncrementWithVersion(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUsageLimitRepository(db)
	ctx := context.Background()
	now := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)

	require.NoError(t, repo.IncrementWithVersion(ctx, "u1", march2024, 4, now))
	require.NoError(t, repo.IncrementWithVersion(ctx, "u1", march2024, 8, now))
	require.NoError(t, repo.IncrementWithVersion(ctx, "u1", march2024, 1, now))

	rec, err := repo.FindByUserAndPeriod(ctx, "u1", march2024)
	require.NoError(t, err)
	assert.Equal(t, int64(13), rec.Count)
	assert.Equal(t, 3, rec.Version)
}

func TestUsageLimitRepository_ConcurrentIncrements(t *testing.T) {
	for _, optimistic := range []bool{false, true} {
		name := "upsert"
		if optimistic {
			name = "optimistic"
		}
		t.Run(name, func(t *testing.T) {
			repo := NewUsageLimitRepository(setupTestDB(t))
			increment := repo.Upsert
			if optimistic {
				increment = repo.IncrementWithVersion
			}
			ctx := context.Background()
			now := time.Now().UTC()
			period := usage.PeriodOf(now)

			const workers = 50
			var wg sync.WaitGroup
			errs := make(chan error, workers)
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					errs <- increment(ctx, "race-user", period, 1, now)
				}()
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				require.NoError(t, err)
			}

			rec, err := repo.FindByUserAndPeriod(ctx, "race-user", period)
			require.NoError(t, err)
			assert.Equal(t, int64(workers), rec.Count)
		})
	}
}

func TestUsageLimitRepository_ListByUser(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUsageLimitRepository(db)
	ctx := context.Background()
	now := time.Now()

	periods := []usage.Period{
		{Year: 2023, Month: time.November},
		{Year: 2023, Month: time.December},
		{Year: 2024, Month: time.January},
		{Year: 2024, Month: time.February},
	}
	for i, p := range periods {
		require.NoError(t, repo.Upsert(ctx, "u1", p, int64(i+1), now))
	}
	require.NoError(t, repo.Upsert(ctx, "other", march2024, 9, now))

	records, err := repo.ListByUser(ctx, "u1", 3)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, usage.Period{Year: 2024, Month: time.February}, records[0].Period)
	assert.Equal(t, usage.Period{Year: 2024, Month: time.January}, records[1].Period)
	assert.Equal(t, usage.Period{Year: 2023, Month: time.December}, records[2].Period)
}

func TestUsageLimitRepository_SQL(t *testing.T) {
	usageColumns := []string{"id", "user_id", "year", "month", "count", "version", "created_at", "updated_at"}
	now := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)

	t.Run("upsert issues ON CONFLICT DO UPDATE inside a transaction", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()
		repo := NewUsageLimitRepository(db.DB)

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO "usage_limits" .* ON CONFLICT \("user_id","year","month"\) DO UPDATE SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, repo.Upsert(context.Background(), "u1", march2024, 3, now))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("serialization failure maps to concurrency conflict", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()
		repo := NewUsageLimitRepository(db.DB)

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO "usage_limits"`).
			WillReturnError(&pgconn.PgError{Code: "40001", Message: "could not serialize access"})
		mock.ExpectRollback()

		err := repo.Upsert(context.Background(), "u1", march2024, 3, now)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)

		var pgErr *pgconn.PgError
		assert.True(t, errors.As(err, &pgErr))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("other driver errors pass through", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()
		repo := NewUsageLimitRepository(db.DB)

		mock.ExpectQuery(`SELECT \* FROM "usage_limits" WHERE`).
			WillReturnError(errors.New("connection refused"))

		_, err := repo.FindByUserAndPeriod(context.Background(), "u1", march2024)
		require.Error(t, err)
		assert.NotErrorIs(t, err, shared.ErrConcurrencyConflict)
		assert.NotErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("lost version race reports conflict and rolls back", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()
		repo := NewUsageLimitRepository(db.DB)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT \* FROM "usage_limits" WHERE`).
			WillReturnRows(sqlmock.NewRows(usageColumns).
				AddRow(uuid.New().String(), "u1", 2024, 3, 5, 2, now, now))
		mock.ExpectExec(`UPDATE "usage_limits" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := repo.IncrementWithVersion(context.Background(), "u1", march2024, 1, now)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("lost insert race reports conflict", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()
		repo := NewUsageLimitRepository(db.DB)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT \* FROM "usage_limits" WHERE`).
			WillReturnRows(sqlmock.NewRows(usageColumns))
		mock.ExpectExec(`INSERT INTO "usage_limits" .* ON CONFLICT .* DO NOTHING`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := repo.IncrementWithVersion(context.Background(), "u1", march2024, 1, now)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, isRetryable(&pgconn.PgError{Code: "40001"}))
	assert.True(t, isRetryable(&pgconn.PgError{Code: "40P01"}))
	assert.False(t, isRetryable(&pgconn.PgError{Code: "23505"}))
	assert.True(t, isRetryable(&pq.Error{Code: "40001"}))
	assert.False(t, isRetryable(errors.New("plain")))
	assert.Nil(t, translateError(nil))
}
