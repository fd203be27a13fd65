package repositories

import (
	"chat-room/domain"
	"chat-room/errors"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	store, err := OpenRedis(context.Background(), "redis://"+s.Addr(), slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, s
}

func TestRedisParticipants(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	store, _ := setupTestRedis(t)
	repository := store.Participants
	at := time.Now().UTC()

	req.NoError(repository.Create(ctx, domain.NewParticipant("Bob", at)))
	req.NoError(repository.Create(ctx, domain.NewParticipant("Ana", at)))
	req.ErrorIs(repository.Create(ctx, domain.NewParticipant("Ana", at)), errors.ErrParticipantExists)

	participants, err := repository.List(ctx)
	req.NoError(err)
	req.Len(participants, 2)
	req.Equal("Ana", participants[0].Name)
	req.Equal("Bob", participants[1].Name)
	req.True(at.Equal(participants[0].LastStatus))

	later := at.Add(5 * time.Second)
	req.NoError(repository.Touch(ctx, "Ana", later))
	req.ErrorIs(repository.Touch(ctx, "Carl", later), errors.ErrParticipantNotFound)
	exists, err := repository.Exists(ctx, "Carl")
	req.NoError(err)
	req.False(exists)

	participants, err = repository.List(ctx)
	req.NoError(err)
	req.True(later.Equal(participants[0].LastStatus))

	req.NoError(repository.Delete(ctx, "Bob"))
	req.ErrorIs(repository.Delete(ctx, "Bob"), errors.ErrParticipantNotFound)

	req.NoError(repository.DeleteAll(ctx))
	participants, err = repository.List(ctx)
	req.NoError(err)
	req.Empty(participants)
}

func TestRedisMessages(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	store, s := setupTestRedis(t)
	repository := store.Messages
	at := time.Now().UTC()

	broadcast := domain.NewMessage("Alice", domain.BroadcastTarget, "hello", domain.NormalMessage, at)
	private := domain.NewMessage("Bob", "Clara", "secret", domain.PrivateMessage, at.Add(time.Second))
	reply := domain.NewMessage("Clara", "Bob", "ok", domain.PrivateMessage, at.Add(2*time.Second))
	for _, m := range []domain.Message{broadcast, private, reply} {
		req.NoError(repository.Store(ctx, m))
	}

	all, err := repository.ListAll(ctx)
	req.NoError(err)
	req.Len(all, 3)

	fetched, err := repository.ListVisibleTo(ctx, "Alice")
	req.NoError(err)
	req.Len(fetched, 1)
	req.Equal(broadcast.ID, fetched[0].ID)
	req.Equal(broadcast.Time, fetched[0].Time)
	req.True(broadcast.CreatedAt.Equal(fetched[0].CreatedAt))

	fetched, err = repository.ListVisibleTo(ctx, "Bob")
	req.NoError(err)
	req.Len(fetched, 3)
	req.Equal([]uuid.UUID{broadcast.ID, private.ID, reply.ID},
		[]uuid.UUID{fetched[0].ID, fetched[1].ID, fetched[2].ID})

	patch := domain.MessagePatch{To: domain.BroadcastTarget, Text: "not a secret", Type: domain.NormalMessage, Time: "11:11:11"}
	_, err = repository.UpdateOwned(ctx, private.ID, "Clara", patch)
	req.ErrorIs(err, errors.ErrNotMessageOwner)
	_, err = repository.UpdateOwned(ctx, uuid.New(), "Bob", patch)
	req.ErrorIs(err, errors.ErrMessageNotFound)

	updated, err := repository.UpdateOwned(ctx, private.ID, "Bob", patch)
	req.NoError(err)
	req.Equal("not a secret", updated.Text)
	req.Equal(domain.BroadcastTarget, updated.To)
	req.Equal("11:11:11", updated.Time)

	fetched, err = repository.ListVisibleTo(ctx, "Alice")
	req.NoError(err)
	req.Len(fetched, 2)
	req.Equal(private.ID, fetched[1].ID)

	req.ErrorIs(repository.DeleteOwned(ctx, reply.ID, "Bob"), errors.ErrNotMessageOwner)
	req.NoError(repository.DeleteOwned(ctx, reply.ID, "Clara"))
	req.ErrorIs(repository.DeleteOwned(ctx, reply.ID, "Clara"), errors.ErrMessageNotFound)

	fetched, err = repository.ListVisibleTo(ctx, "Bob")
	req.NoError(err)
	req.Len(fetched, 2)

	req.NoError(repository.DeleteAll(ctx))
	fetched, err = repository.ListVisibleTo(ctx, "Bob")
	req.NoError(err)
	req.Empty(fetched)
	// No message hash outlives the id list
	req.Empty(s.Keys())
}

func TestRedisStore_PingAndClose(t *testing.T) {
	req := require.New(t)
	store, s := setupTestRedis(t)
	ctx := context.Background()

	req.NoError(store.Ping(ctx))

	s.Close()
	req.Error(store.Ping(ctx))

	req.NoError(store.Close())
	// A second close is harmless
	req.NoError(store.Close())
}

func TestBadgerStore_PingAndClose(t *testing.T) {
	req := require.New(t)
	store, err := OpenBadger(t.TempDir(), slog.Default())
	req.NoError(err)

	req.NoError(store.Ping(context.Background()))
	req.NoError(store.Close())
	req.NoError(store.Close())
	req.ErrorIs(store.Ping(context.Background()), errors.ErrStoreClosed)
}

func TestOpenRedis_Unreachable(t *testing.T) {
	_, err := OpenRedis(context.Background(), "redis://127.0.0.1:1", slog.Default())
	require.Error(t, err)
}
