package runlock

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func redisLockPair(t *testing.T) (*RedisLock, *RedisLock, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisLock(client, time.Minute), NewRedisLock(client, time.Minute), mr
}

func TestRedisLockExcludesSecondHolder(t *testing.T) {
	first, second, _ := redisLockPair(t)
	ctx := context.Background()

	ok, err := first.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}
	if !ok {
		t.Fatal("first holder failed to acquire a free lock")
	}

	ok, err = second.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}
	if ok {
		t.Error("second holder acquired a held lock")
	}
}

func TestRedisLockReleaseFreesLock(t *testing.T) {
	first, second, _ := redisLockPair(t)
	ctx := context.Background()

	if _, err := first.Acquire(ctx); err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}
	if err := first.Release(ctx); err != nil {
		t.Fatalf("Release() error: %v", err)
	}

	ok, err := second.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}
	if !ok {
		t.Error("lock still held after release")
	}
}

func TestRedisLockReleaseOnlyByOwner(t *testing.T) {
	first, second, mr := redisLockPair(t)
	ctx := context.Background()

	if _, err := first.Acquire(ctx); err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}

	// A non-owner release must leave the lock in place.
	if err := second.Release(ctx); err != nil {
		t.Fatalf("Release() error: %v", err)
	}
	if !mr.Exists("cvo:pipeline:run") {
		t.Error("non-owner release removed the lock")
	}
}

func TestRedisLockExpires(t *testing.T) {
	first, second, mr := redisLockPair(t)
	ctx := context.Background()

	if _, err := first.Acquire(ctx); err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	ok, err := second.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}
	if !ok {
		t.Error("expired lock still blocks new holders")
	}
}

func TestRedisLockExtend(t *testing.T) {
	first, _, mr := redisLockPair(t)
	ctx := context.Background()

	if _, err := first.Acquire(ctx); err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}
	if err := first.Extend(ctx, 10*time.Minute); err != nil {
		t.Fatalf("Extend() error: %v", err)
	}

	mr.FastForward(2 * time.Minute)
	if !mr.Exists("cvo:pipeline:run") {
		t.Error("extended lock expired at the original TTL")
	}
}

func TestAdvisoryLockAcquireRelease(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()
	ctx := context.Background()

	mock.ExpectQuery(`SELECT pg_try_advisory_lock`).
		WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(true))
	mock.ExpectExec(`SELECT pg_advisory_unlock`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	lock := NewAdvisoryLock(db)
	ok, err := lock.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}
	if !ok {
		t.Fatal("failed to acquire a free advisory lock")
	}

	if err := lock.Release(ctx); err != nil {
		t.Fatalf("Release() error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestAdvisoryLockContended(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()
	ctx := context.Background()

	mock.ExpectQuery(`SELECT pg_try_advisory_lock`).
		WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(false))

	lock := NewAdvisoryLock(db)
	ok, err := lock.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}
	if ok {
		t.Error("acquired a lock another session holds")
	}

	// Releasing a never-acquired lock is a no-op, not an unlock call.
	if err := lock.Release(ctx); err != nil {
		t.Fatalf("Release() error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestNewPrefersRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	if _, ok := New(client, nil, time.Minute).(*RedisLock); !ok {
		t.Error("New() with Redis did not return a RedisLock")
	}

	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()
	if _, ok := New(nil, db, time.Minute).(*AdvisoryLock); !ok {
		t.Error("New() without Redis did not return an AdvisoryLock")
	}
}
