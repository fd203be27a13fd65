package repositories

import (
	"chat-room/domain"
	"chat-room/errors"
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	messagesList        = "messages"
	messageHashPrefix   = "message:"
	ownedMissing        = 0
	ownedByAnotherOwner = -1
)

// deleteAllScript drops the id list and every hash it points to in one step,
// so a concurrent Store is either fully dropped or fully kept.
var deleteAllScript = redis.NewScript(`
local ids = redis.call('LRANGE', KEYS[1], 0, -1)
for _, id in ipairs(ids) do
  redis.call('DEL', ARGV[1] .. id)
end
redis.call('DEL', KEYS[1])
return #ids
`)

// updateOwnedScript and deleteOwnedScript check the sender and write in one step.
// They return 0 when the message is missing, -1 when owner differs, 1 on success.
var updateOwnedScript = redis.NewScript(`
local from = redis.call('HGET', KEYS[1], 'from')
if not from then return 0 end
if from ~= ARGV[1] then return -1 end
redis.call('HSET', KEYS[1], 'to', ARGV[2], 'text', ARGV[3], 'type', ARGV[4], 'time', ARGV[5])
return 1
`)

var deleteOwnedScript = redis.NewScript(`
local from = redis.call('HGET', KEYS[1], 'from')
if not from then return 0 end
if from ~= ARGV[1] then return -1 end
redis.call('DEL', KEYS[1])
redis.call('LREM', KEYS[2], 0, ARGV[2])
return 1
`)

// RedisMessageRepository keeps message ids in a list (insertion order) and every
// message in its own hash.
type RedisMessageRepository struct {
	client *redis.Client
	log    *slog.Logger
}

func NewRedisMessageRepository(client *redis.Client, log *slog.Logger) RedisMessageRepository {
	return RedisMessageRepository{client: client, log: log}
}

func messageHashKey(id string) string {
	return messageHashPrefix + id
}

func (m RedisMessageRepository) Store(ctx context.Context, message domain.Message) error {
	id := message.ID.String()
	_, err := m.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, messageHashKey(id), map[string]any{
			"id":         id,
			"from":       message.From,
			"to":         message.To,
			"text":       message.Text,
			"type":       string(message.Type),
			"time":       message.Time,
			"created_at": strconv.FormatInt(message.CreatedAt.UnixNano(), 10),
		})
		pipe.RPush(ctx, messagesList, id)
		return nil
	})
	return err
}

func (m RedisMessageRepository) ListVisibleTo(ctx context.Context, requester string) ([]domain.Message, error) {
	return m.scan(ctx, func(message domain.Message) bool {
		return message.VisibleTo(requester)
	})
}

func (m RedisMessageRepository) ListAll(ctx context.Context) ([]domain.Message, error) {
	return m.scan(ctx, func(domain.Message) bool { return true })
}

func (m RedisMessageRepository) scan(ctx context.Context, keep func(domain.Message) bool) ([]domain.Message, error) {
	ids, err := m.client.LRange(ctx, messagesList, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	messages := make([]domain.Message, 0, len(ids))
	if len(ids) == 0 {
		return messages, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = m.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, messageHashKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, cmd := range cmds {
		fields := cmd.Val()
		// Deleted between LRANGE and HGETALL
		if len(fields) == 0 {
			continue
		}
		message, err := toRedisMessage(fields)
		if err != nil {
			return nil, err
		}
		if keep(message) {
			messages = append(messages, message)
		}
	}
	return messages, nil
}

func (m RedisMessageRepository) UpdateOwned(ctx context.Context, id uuid.UUID, owner string, patch domain.MessagePatch) (domain.Message, error) {
	key := messageHashKey(id.String())
	result, err := updateOwnedScript.Run(ctx, m.client, []string{key},
		owner, patch.To, patch.Text, string(patch.Type), patch.Time).Int()
	if err != nil {
		return domain.Message{}, err
	}
	if err = ownedResult(result); err != nil {
		return domain.Message{}, err
	}
	fields, err := m.client.HGetAll(ctx, key).Result()
	if err != nil {
		return domain.Message{}, err
	}
	if len(fields) == 0 {
		return domain.Message{}, errors.ErrMessageNotFound
	}
	return toRedisMessage(fields)
}

func (m RedisMessageRepository) DeleteOwned(ctx context.Context, id uuid.UUID, owner string) error {
	result, err := deleteOwnedScript.Run(ctx, m.client,
		[]string{messageHashKey(id.String()), messagesList}, owner, id.String()).Int()
	if err != nil {
		return err
	}
	return ownedResult(result)
}

func (m RedisMessageRepository) DeleteAll(ctx context.Context) error {
	dropped, err := deleteAllScript.Run(ctx, m.client, []string{messagesList}, messageHashPrefix).Int()
	if err != nil {
		return err
	}
	m.log.Debug("Dropped every message", "count", dropped)
	return nil
}

func ownedResult(result int) error {
	switch result {
	case ownedMissing:
		return errors.ErrMessageNotFound
	case ownedByAnotherOwner:
		return errors.ErrNotMessageOwner
	default:
		return nil
	}
}

func toRedisMessage(fields map[string]string) (domain.Message, error) {
	parsedID, err := uuid.Parse(fields["id"])
	if err != nil {
		return domain.Message{}, err
	}
	nanos, err := strconv.ParseInt(fields["created_at"], 10, 64)
	if err != nil {
		return domain.Message{}, fmt.Errorf("message %s: invalid creation time: %w", parsedID, err)
	}
	return domain.Message{
		ID:        parsedID,
		From:      fields["from"],
		To:        fields["to"],
		Text:      fields["text"],
		Type:      domain.MessageType(fields["type"]),
		Time:      fields["time"],
		CreatedAt: time.Unix(0, nanos).UTC(),
	}, nil
}
