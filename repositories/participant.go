//go:generate go run go.uber.org/mock/mockgen -source=participant.go -destination=../mocks/mock_participant_repository.go -package=mocks
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
)

const (
	participantPrefix  = "participant:"
	maxConflictRetries = 3
)

type IParticipantRepository interface {
	// Create stores p unless a participant with the same name exists (ErrParticipantExists).
	Create(ctx context.Context, p domain.Participant) error
	List(ctx context.Context) ([]domain.Participant, error)
	Exists(ctx context.Context, name string) (bool, error)
	// Touch refreshes LastStatus of an existing participant (ErrParticipantNotFound).
	Touch(ctx context.Context, name string, at time.Time) error
	// Delete removes a participant (ErrParticipantNotFound when already gone).
	Delete(ctx context.Context, name string) error
	DeleteAll(ctx context.Context) error
}

type ParticipantRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewParticipantRepository(db *badger.DB, log *slog.Logger) ParticipantRepository {
	return ParticipantRepository{db: db, log: log}
}

type diskParticipant struct {
	Name       string `cbor:"1,keyasint"`
	LastStatus int64  `cbor:"2,keyasint"`
}

func participantKey(name string) []byte {
	return []byte(participantPrefix + name)
}

// Create checks and writes inside a single read-write transaction. Two concurrent joins
// with the same name make Badger abort one of them with ErrConflict, reported as a duplicate.
func (r ParticipantRepository) Create(_ context.Context, p domain.Participant) error {
	data, err := marshal(fromParticipant(p))
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	err = r.db.Update(func(txn *badger.Txn) error {
		key := participantKey(p.Name)
		_, err := txn.Get(key)
		switch {
		case err == nil:
			return errors.ErrParticipantExists
		case !stdErrors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		return txn.Set(key, data)
	})
	if stdErrors.Is(err, badger.ErrConflict) {
		return errors.ErrParticipantExists
	}
	return err
}

func (r ParticipantRepository) List(_ context.Context) ([]domain.Participant, error) {
	participants := make([]domain.Participant, 0)
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(participantPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var dp diskParticipant
			err := it.Item().Value(func(val []byte) error {
				return unmarshal(val, &dp)
			})
			if err != nil {
				return err
			}
			participants = append(participants, toParticipant(dp))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return participants, nil
}

func (r ParticipantRepository) Exists(_ context.Context, name string) (bool, error) {
	var found bool
	err := r.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(participantKey(name))
		switch {
		case err == nil:
			found = true
			return nil
		case stdErrors.Is(err, badger.ErrKeyNotFound):
			return nil
		default:
			return err
		}
	})
	return found, err
}

func (r ParticipantRepository) Touch(_ context.Context, name string, at time.Time) error {
	data, err := marshal(fromParticipant(domain.NewParticipant(name, at)))
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	return retryOnConflict(r.log, "touch", name, func() error {
		return r.db.Update(func(txn *badger.Txn) error {
			key := participantKey(name)
			if _, err := txn.Get(key); err != nil {
				if stdErrors.Is(err, badger.ErrKeyNotFound) {
					return errors.ErrParticipantNotFound
				}
				return err
			}
			return txn.Set(key, data)
		})
	})
}

func (r ParticipantRepository) Delete(_ context.Context, name string) error {
	return retryOnConflict(r.log, "delete", name, func() error {
		return r.db.Update(func(txn *badger.Txn) error {
			key := participantKey(name)
			if _, err := txn.Get(key); err != nil {
				if stdErrors.Is(err, badger.ErrKeyNotFound) {
					return errors.ErrParticipantNotFound
				}
				return err
			}
			return txn.Delete(key)
		})
	})
}

// retryOnConflict reruns update when another commit wrote the same key first.
// The rerun reads the winner's result, so a touch racing a delete ends with
// ErrParticipantNotFound instead of a conflict.
func retryOnConflict(log *slog.Logger, op, name string, update func() error) error {
	var err error
	for attempt := 1; attempt <= maxConflictRetries; attempt++ {
		if err = update(); !stdErrors.Is(err, badger.ErrConflict) {
			return err
		}
		log.Debug("Participant write conflicted, retrying", "op", op, "name", name, "attempt", attempt)
	}
	return err
}

func (r ParticipantRepository) DeleteAll(_ context.Context) error {
	r.log.Debug("Dropping every participant")
	return r.db.DropPrefix([]byte(participantPrefix))
}

func fromParticipant(p domain.Participant) diskParticipant {
	return diskParticipant{Name: p.Name, LastStatus: p.LastStatus.UnixNano()}
}

func toParticipant(dp diskParticipant) domain.Participant {
	return domain.Participant{Name: dp.Name, LastStatus: time.Unix(0, dp.LastStatus).UTC()}
}
