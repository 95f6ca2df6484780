package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var releaseLockScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// SolveQueue is a Redis list of problem ids plus a per-problem lock.
// New work goes to the head with LPUSH and is consumed from the tail with BRPOP.
type SolveQueue struct {
	rdb        *redis.Client
	name       string
	lockPrefix string
	lockTTL    time.Duration
}

func NewSolveQueue(rdb *redis.Client, name, lockPrefix string, lockTTL time.Duration) *SolveQueue {
	return &SolveQueue{rdb: rdb, name: name, lockPrefix: lockPrefix, lockTTL: lockTTL}
}

func (q *SolveQueue) Name() string { return q.name }

func (q *SolveQueue) Enqueue(ctx context.Context, problemID string) error {
	if err := q.rdb.LPush(ctx, q.name, problemID).Err(); err != nil {
		return fmt.Errorf("failed to push problem %s to queue %s: %w", problemID, q.name, err)
	}
	return nil
}

// Requeue puts the id back at the consuming end so it is picked up next.
func (q *SolveQueue) Requeue(ctx context.Context, problemID string) error {
	return q.rdb.RPush(ctx, q.name, problemID).Err()
}

// Pop blocks for up to timeout. It returns "" with a nil error when nothing arrived.
func (q *SolveQueue) Pop(ctx context.Context, timeout time.Duration) (string, error) {
	res, err := q.rdb.BRPop(ctx, timeout, q.name).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", err
	}
	// BRPOP replies with [queue, value].
	if len(res) < 2 {
		return "", nil
	}
	return res[1], nil
}

// Lock takes the per-problem lock. The returned release func only deletes
// the key if it still holds this holder's value.
func (q *SolveQueue) Lock(ctx context.Context, problemID string) (release func(context.Context) error, ok bool, err error) {
	key := q.lockPrefix + problemID
	value := uuid.NewString()
	ok, err = q.rdb.SetNX(ctx, key, value, q.lockTTL).Result()
	if err != nil || !ok {
		return nil, ok, err
	}
	release = func(ctx context.Context) error {
		deleted, err := releaseLockScript.Run(ctx, q.rdb, []string{key}, value).Int64()
		if err != nil {
			return err
		}
		if deleted == 0 {
			return fmt.Errorf("lock %s expired or was taken over", key)
		}
		return nil
	}
	return release, true, nil
}
