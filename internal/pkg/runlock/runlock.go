// Package runlock serializes pipeline runs. Two schedulers firing the
// batch at the same minute must not double-score a run, so the pipeline
// takes a cross-host lock before it starts and drops it when the run is
// saved.
package runlock

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/redis/go-redis/v9"
)

// lockKey names the single pipeline lock. One optimizer deployment runs
// one pipeline.
const lockKey = "cvo:pipeline:run"

// Lock is a non-blocking cross-host mutex.
// A Lock instance belongs to one goroutine; concurrent holders need
// separate instances.
type Lock interface {
	// Acquire tries to take the lock. Returns true on success.
	Acquire(ctx context.Context) (bool, error)
	// Release drops the lock if this instance still owns it.
	Release(ctx context.Context) error
}

// New creates a run lock on the best available backend. Redis wins when
// configured; otherwise the lock rides a Postgres advisory lock, which the
// database releases on its own if the session dies mid-run.
func New(redisClient *redis.Client, db *sql.DB, ttl time.Duration) Lock {
	if redisClient != nil {
		return NewRedisLock(redisClient, ttl)
	}
	return NewAdvisoryLock(db)
}

// RedisLock holds the lock as a SET NX key with a TTL. The value is a
// random ownership token so a crashed holder's expired lock cannot be
// released by its replacement.
type RedisLock struct {
	client *redis.Client
	token  string
	ttl    time.Duration
}

// NewRedisLock creates a Redis-backed run lock. The TTL bounds how long a
// crashed run can block the next one.
func NewRedisLock(client *redis.Client, ttl time.Duration) *RedisLock {
	b := make([]byte, 16)
	rand.Read(b)
	return &RedisLock{
		client: client,
		token:  hex.EncodeToString(b),
		ttl:    ttl,
	}
}

func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	ok, err := l.client.SetNX(ctx, lockKey, l.token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquiring run lock: %w", err)
	}
	return ok, nil
}

func (l *RedisLock) Release(ctx context.Context) error {
	script := redis.NewScript(`
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("del", KEYS[1])
		else
			return 0
		end
	`)
	_, err := script.Run(ctx, l.client, []string{lockKey}, l.token).Result()
	return err
}

// Extend pushes the TTL out for a run that outlives the initial lease.
// Fails if the lock is no longer owned.
func (l *RedisLock) Extend(ctx context.Context, ttl time.Duration) error {
	script := redis.NewScript(`
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("pexpire", KEYS[1], ARGV[2])
		else
			return 0
		end
	`)
	_, err := script.Run(ctx, l.client, []string{lockKey}, l.token, ttl.Milliseconds()).Result()
	return err
}

// AdvisoryLock implements Lock on pg_try_advisory_lock. Advisory locks
// are session scoped, so the lock pins one pooled connection from Acquire
// until Release; if the session dies mid-run Postgres drops the lock on
// its own and the schedule never wedges.
type AdvisoryLock struct {
	db     *sql.DB
	conn   *sql.Conn
	lockID int64
}

// NewAdvisoryLock creates the Postgres fallback lock.
func NewAdvisoryLock(db *sql.DB) *AdvisoryLock {
	h := fnv.New64a()
	h.Write([]byte(lockKey))
	return &AdvisoryLock{
		db:     db,
		lockID: int64(h.Sum64()),
	}
}

func (l *AdvisoryLock) Acquire(ctx context.Context) (bool, error) {
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return false, fmt.Errorf("acquiring run lock: %w", err)
	}
	var acquired bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", l.lockID).Scan(&acquired); err != nil {
		conn.Close()
		return false, fmt.Errorf("acquiring run lock: %w", err)
	}
	if !acquired {
		conn.Close()
		return false, nil
	}
	l.conn = conn
	return true, nil
}

func (l *AdvisoryLock) Release(ctx context.Context) error {
	if l.conn == nil {
		return nil
	}
	_, err := l.conn.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", l.lockID)
	closeErr := l.conn.Close()
	l.conn = nil
	if err != nil {
		return fmt.Errorf("releasing run lock: %w", err)
	}
	return closeErr
}
