package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	queueKey      = "bazaar:reconcile:queue"
	deadLetterKey = "bazaar:reconcile:dead"
)

// RedisQueue keeps tasks in a sorted set scored by due time, so several
// workers can share it. ZREM decides which worker owns a task.
type RedisQueue struct {
	client *redis.Client
}

func NewRedisQueue(client *redis.Client) *RedisQueue {
	return &RedisQueue{client: client}
}

func (q *RedisQueue) EnqueueAt(ctx context.Context, task Task, at time.Time) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshaling reconcile task: %w", err)
	}

	return q.client.ZAdd(ctx, queueKey, redis.Z{
		Score:  float64(at.UnixNano()),
		Member: string(data),
	}).Err()
}

func (q *RedisQueue) Dequeue(ctx context.Context) (*Task, error) {
	now := time.Now().UnixNano()

	results, err := q.client.ZRangeByScoreWithScores(ctx, queueKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now, 10),
		Count: 1,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("reading reconcile queue: %w", err)
	}

	if len(results) == 0 {
		return nil, nil
	}

	member, ok := results[0].Member.(string)
	if !ok {
		return nil, fmt.Errorf("unexpected reconcile queue member %T", results[0].Member)
	}

	removed, err := q.client.ZRem(ctx, queueKey, member).Result()
	if err != nil {
		return nil, fmt.Errorf("removing reconcile task: %w", err)
	}
	if removed == 0 {
		// Another worker took it.
		return nil, nil
	}

	var task Task
	if err := json.Unmarshal([]byte(member), &task); err != nil {
		return nil, fmt.Errorf("unmarshaling reconcile task: %w", err)
	}

	return &task, nil
}

func (q *RedisQueue) DeadLetter(ctx context.Context, task Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshaling reconcile task: %w", err)
	}
	return q.client.LPush(ctx, deadLetterKey, data).Err()
}

func (q *RedisQueue) Size(ctx context.Context) (int64, error) {
	return q.client.ZCard(ctx, queueKey).Result()
}

// DeadLetters returns every decodable dead letter. Entries that fail to
// decode are reported in the error next to the tasks that did.
func (q *RedisQueue) DeadLetters(ctx context.Context) ([]Task, error) {
	raw, err := q.client.LRange(ctx, deadLetterKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("reading dead letters: %w", err)
	}

	tasks := make([]Task, 0, len(raw))
	var decodeErrs []error
	for i, r := range raw {
		var task Task
		if err := json.Unmarshal([]byte(r), &task); err != nil {
			decodeErrs = append(decodeErrs, fmt.Errorf("decoding dead letter %d: %w", i, err))
			continue
		}
		tasks = append(tasks, task)
	}
	return tasks, errors.Join(decodeErrs...)
}
