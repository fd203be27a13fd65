package repositories

import (
	"chat-room/domain"
	"chat-room/errors"
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const participantsHash = "participants"

// touchScript refreshes the heartbeat only when the field already exists.
var touchScript = redis.NewScript(`
if redis.call('HEXISTS', KEYS[1], ARGV[1]) == 1 then
  redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
  return 1
end
return 0
`)

// RedisParticipantRepository keeps every participant as a field of a single hash,
// name -> last status in unix nanoseconds.
type RedisParticipantRepository struct {
	client *redis.Client
	log    *slog.Logger
}

func NewRedisParticipantRepository(client *redis.Client, log *slog.Logger) RedisParticipantRepository {
	return RedisParticipantRepository{client: client, log: log}
}

func (r RedisParticipantRepository) Create(ctx context.Context, p domain.Participant) error {
	created, err := r.client.HSetNX(ctx, participantsHash, p.Name, p.LastStatus.UnixNano()).Result()
	if err != nil {
		return err
	}
	if !created {
		return errors.ErrParticipantExists
	}
	return nil
}

// List returns participants sorted by name, a hash has no natural order.
func (r RedisParticipantRepository) List(ctx context.Context) ([]domain.Participant, error) {
	fields, err := r.client.HGetAll(ctx, participantsHash).Result()
	if err != nil {
		return nil, err
	}
	participants := make([]domain.Participant, 0, len(fields))
	for name, raw := range fields {
		nanos, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("participant %q: invalid last status %q: %w", name, raw, err)
		}
		participants = append(participants, domain.NewParticipant(name, time.Unix(0, nanos).UTC()))
	}
	sort.Slice(participants, func(i, j int) bool {
		return participants[i].Name < participants[j].Name
	})
	return participants, nil
}

func (r RedisParticipantRepository) Exists(ctx context.Context, name string) (bool, error) {
	return r.client.HExists(ctx, participantsHash, name).Result()
}

func (r RedisParticipantRepository) Touch(ctx context.Context, name string, at time.Time) error {
	updated, err := touchScript.Run(ctx, r.client, []string{participantsHash}, name, at.UnixNano()).Int()
	if err != nil {
		return err
	}
	if updated == 0 {
		return errors.ErrParticipantNotFound
	}
	return nil
}

func (r RedisParticipantRepository) Delete(ctx context.Context, name string) error {
	removed, err := r.client.HDel(ctx, participantsHash, name).Result()
	if err != nil {
		return err
	}
	if removed == 0 {
		return errors.ErrParticipantNotFound
	}
	return nil
}

func (r RedisParticipantRepository) DeleteAll(ctx context.Context) error {
	r.log.Debug("Dropping every participant")
	return r.client.Del(ctx, participantsHash).Err()
}
