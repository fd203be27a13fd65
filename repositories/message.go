//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"chat-room/domain"
	"chat-room/errors"
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

const messagePrefix = "msg:"

type IMessageRepository interface {
	Store(ctx context.Context, message domain.Message) error
	// ListVisibleTo returns, in store order, the messages requester is allowed to read.
	ListVisibleTo(ctx context.Context, requester string) ([]domain.Message, error)
	ListAll(ctx context.Context) ([]domain.Message, error)
	// UpdateOwned overwrites the message only when owner sent it
	// (ErrMessageNotFound, ErrNotMessageOwner).
	UpdateOwned(ctx context.Context, id uuid.UUID, owner string, patch domain.MessagePatch) (domain.Message, error)
	// DeleteOwned removes the message only when owner sent it
	// (ErrMessageNotFound, ErrNotMessageOwner).
	DeleteOwned(ctx context.Context, id uuid.UUID, owner string) error
	DeleteAll(ctx context.Context) error
}

type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) MessageRepository {
	return MessageRepository{db: db, log: log}
}

type diskMessage struct {
	ID        string `cbor:"1,keyasint"`
	From      string `cbor:"2,keyasint"`
	To        string `cbor:"3,keyasint"`
	Text      string `cbor:"4,keyasint"`
	Type      string `cbor:"5,keyasint"`
	Time      string `cbor:"6,keyasint"`
	CreatedAt int64  `cbor:"7,keyasint"`
}

// messageKey is "msg:{uuid}". Ids are UUIDv7, generated monotonically within the
// process, so a forward prefix scan returns messages in insertion order even when
// two of them share a creation timestamp.
func messageKey(id uuid.UUID) []byte {
	return []byte(messagePrefix + id.String())
}

func (m MessageRepository) Store(_ context.Context, message domain.Message) error {
	bytes, err := marshal(fromMessage(message))
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(message.ID), bytes)
	})
}

// ListVisibleTo scans the message prefix forward, in key order.
func (m MessageRepository) ListVisibleTo(_ context.Context, requester string) ([]domain.Message, error) {
	return m.scan(func(message domain.Message) bool {
		return message.VisibleTo(requester)
	})
}

func (m MessageRepository) ListAll(_ context.Context) ([]domain.Message, error) {
	return m.scan(func(domain.Message) bool { return true })
}

func (m MessageRepository) scan(keep func(domain.Message) bool) ([]domain.Message, error) {
	messages := make([]domain.Message, 0)
	err := m.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(messagePrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var dm diskMessage
			if err := it.Item().Value(func(val []byte) error {
				return unmarshal(val, &dm)
			}); err != nil {
				return err
			}
			message, err := toMessage(dm)
			if err != nil {
				return err
			}
			if keep(message) {
				messages = append(messages, message)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (m MessageRepository) UpdateOwned(_ context.Context, id uuid.UUID, owner string, patch domain.MessagePatch) (domain.Message, error) {
	var updated domain.Message
	err := m.db.Update(func(txn *badger.Txn) error {
		key, message, err := m.getOwned(txn, id, owner)
		if err != nil {
			return err
		}
		updated = message.Apply(patch)
		bytes, err := marshal(fromMessage(updated))
		if err != nil {
			return fmt.Errorf("marshal failed: %w", err)
		}
		return txn.Set(key, bytes)
	})
	if err != nil {
		return domain.Message{}, err
	}
	return updated, nil
}

func (m MessageRepository) DeleteOwned(_ context.Context, id uuid.UUID, owner string) error {
	return m.db.Update(func(txn *badger.Txn) error {
		key, _, err := m.getOwned(txn, id, owner)
		if err != nil {
			return err
		}
		return txn.Delete(key)
	})
}

func (m MessageRepository) DeleteAll(_ context.Context) error {
	m.log.Debug("Dropping every message")
	return m.db.DropPrefix([]byte(messagePrefix))
}

// getOwned loads the message and checks ownership inside the caller's transaction,
// so the check and the following write commit or abort together.
func (m MessageRepository) getOwned(txn *badger.Txn, id uuid.UUID, owner string) ([]byte, domain.Message, error) {
	key := messageKey(id)
	item, err := txn.Get(key)
	if err != nil {
		if stdErrors.Is(err, badger.ErrKeyNotFound) {
			return nil, domain.Message{}, errors.ErrMessageNotFound
		}
		return nil, domain.Message{}, err
	}
	var dm diskMessage
	if err = item.Value(func(val []byte) error {
		return unmarshal(val, &dm)
	}); err != nil {
		return nil, domain.Message{}, err
	}
	message, err := toMessage(dm)
	if err != nil {
		return nil, domain.Message{}, err
	}
	if message.From != owner {
		return nil, domain.Message{}, errors.ErrNotMessageOwner
	}
	return key, message, nil
}

func fromMessage(message domain.Message) diskMessage {
	return diskMessage{
		ID:        message.ID.String(),
		From:      message.From,
		To:        message.To,
		Text:      message.Text,
		Type:      string(message.Type),
		Time:      message.Time,
		CreatedAt: message.CreatedAt.UnixNano(),
	}
}

func toMessage(dm diskMessage) (domain.Message, error) {
	parsedID, err := uuid.Parse(dm.ID)
	if err != nil {
		return domain.Message{}, err
	}
	return domain.Message{
		ID:        parsedID,
		From:      dm.From,
		To:        dm.To,
		Text:      dm.Text,
		Type:      domain.MessageType(dm.Type),
		Time:      dm.Time,
		CreatedAt: time.Unix(0, dm.CreatedAt).UTC(),
	}, nil
}
