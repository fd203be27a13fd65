package repositories

import (
	"chat-room/errors"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/redis/go-redis/v9"
)

// Store bundles the repositories sharing one process-wide handle.
// Close releases the handle once; later calls are no-ops.
type Store struct {
	Participants IParticipantRepository
	Messages     IMessageRepository

	ping      func(ctx context.Context) error
	close     func() error
	closeOnce sync.Once
	closeErr  error
}

func (s *Store) Ping(ctx context.Context) error {
	return s.ping(ctx)
}

func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.close()
	})
	return s.closeErr
}

// OpenBadger opens (or creates) the Badger database under path.
func OpenBadger(path string, log *slog.Logger) (*Store, error) {
	db, err := badger.Open(badger.DefaultOptions(path).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return nil, fmt.Errorf("database opening failed: %w", err)
	}
	return NewBadgerStore(db, log), nil
}

// OpenBadgerReadOnly opens the database without taking the directory lock,
// so it can be inspected while the server runs.
func OpenBadgerReadOnly(path string, log *slog.Logger) (*Store, error) {
	db, err := badger.Open(badger.DefaultOptions(path).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("database opening failed: %w", err)
	}
	return NewBadgerStore(db, log), nil
}

func NewBadgerStore(db *badger.DB, log *slog.Logger) *Store {
	return &Store{
		Participants: NewParticipantRepository(db, log),
		Messages:     NewMessageRepository(db, log),
		ping: func(context.Context) error {
			if db.IsClosed() {
				return errors.ErrStoreClosed
			}
			return nil
		},
		close: func() error {
			log.Info("Closing BadgerDB...")
			return db.Close()
		},
	}
}

// OpenRedis connects to redisURL and checks the connection before handing the store out.
func OpenRedis(ctx context.Context, redisURL string, log *slog.Logger) (*Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err = client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewRedisStore(client, log), nil
}

func NewRedisStore(client *redis.Client, log *slog.Logger) *Store {
	return &Store{
		Participants: NewRedisParticipantRepository(client, log),
		Messages:     NewRedisMessageRepository(client, log),
		ping: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		},
		close: func() error {
			log.Info("Closing Redis client...")
			return client.Close()
		},
	}
}
