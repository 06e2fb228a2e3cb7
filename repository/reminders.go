package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"notebook/model"
	"notebook/utils"

	"github.com/redis/go-redis/v9"
)

const reminderQueueKey = "reminders:queue"

func reminderKey(id string) string {
	return fmt.Sprintf("reminder:%s", id)
}

// RemindersRepo is a Redis-backed reminder queue: a sorted set scored by
// due time (unix milliseconds) plus one JSON payload key per reminder.
type RemindersRepo struct {
	Client *redis.Client
}

func GetRemindersRepo(client *redis.Client) *RemindersRepo {
	return &RemindersRepo{Client: client}
}

func (r *RemindersRepo) Add(ctx context.Context, reminder model.Reminder) error {
	timer := utils.TrackStoreOperation("add", "reminders")
	defer timer.ObserveDuration()

	data, err := json.Marshal(reminder)
	if err != nil {
		return fmt.Errorf("failed to marshal reminder: %w", err)
	}

	_, err = r.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, reminderKey(reminder.ID), data, 0)
		pipe.ZAdd(ctx, reminderQueueKey, redis.Z{
			Score:  float64(reminder.When.UnixMilli()),
			Member: reminder.ID,
		})
		return nil
	})
	if err != nil {
		return utils.TrackStoreError("add", "reminders", fmt.Errorf("failed to queue reminder: %w", err))
	}
	return nil
}

// Remove dequeues a pending reminder. Removing one that already fired or
// never existed returns ErrReminderNotFound.
func (r *RemindersRepo) Remove(ctx context.Context, id string) error {
	timer := utils.TrackStoreOperation("remove", "reminders")
	defer timer.ObserveDuration()

	removed, err := r.Client.ZRem(ctx, reminderQueueKey, id).Result()
	if err != nil {
		return utils.TrackStoreError("remove", "reminders", fmt.Errorf("failed to remove reminder: %w", err))
	}
	if err := r.Client.Del(ctx, reminderKey(id)).Err(); err != nil {
		return utils.TrackStoreError("remove", "reminders", fmt.Errorf("failed to delete reminder payload: %w", err))
	}
	if removed == 0 {
		return fmt.Errorf("%w: %s", ErrReminderNotFound, id)
	}
	return nil
}

// ClaimDue pops every reminder due at or before now. ZREM decides the
// winner, so concurrent dispatchers never deliver the same reminder twice.
func (r *RemindersRepo) ClaimDue(ctx context.Context, now time.Time) ([]model.Reminder, error) {
	ids, err := r.Client.ZRangeByScore(ctx, reminderQueueKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return nil, utils.TrackStoreError("claim", "reminders", fmt.Errorf("failed to read due reminders: %w", err))
	}

	var due []model.Reminder
	for _, id := range ids {
		claimed, err := r.Client.ZRem(ctx, reminderQueueKey, id).Result()
		if err != nil {
			return due, utils.TrackStoreError("claim", "reminders", fmt.Errorf("failed to claim reminder: %w", err))
		}
		if claimed == 0 {
			continue
		}

		data, err := r.Client.GetDel(ctx, reminderKey(id)).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return due, utils.TrackStoreError("claim", "reminders", fmt.Errorf("failed to load reminder: %w", err))
		}

		var reminder model.Reminder
		if err := json.Unmarshal(data, &reminder); err != nil {
			return due, fmt.Errorf("failed to unmarshal reminder %s: %w", id, err)
		}
		due = append(due, reminder)
	}
	return due, nil
}
