package repositories

import (
	"chat-room/domain"
	"chat-room/errors"
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).
		WithLoggingLevel(badger.ERROR).
		WithValueLogFileSize(16 << 20))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func Test_Record_Multiple_Message_In_Insertion_Order(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := NewMessageRepository(openTestDB(t), slog.Default())
	at := time.Now().UTC()
	messages := []domain.Message{
		domain.NewMessage("Alice", domain.BroadcastTarget, "first", domain.NormalMessage, at),
		domain.NewMessage("Bob", "Alice", "second", domain.PrivateMessage, at.Add(time.Second)),
		domain.NewMessage("Clara", "Bob", "third", domain.PrivateMessage, at.Add(2*time.Second)),
		domain.NewMessage("Bob", domain.BroadcastTarget, "fourth", domain.NormalMessage, at.Add(3*time.Second)),
	}
	for _, m := range messages {
		req.NoError(repository.Store(ctx, m))
	}

	// When Alice lists her messages
	fetched, err := repository.ListVisibleTo(ctx, "Alice")
	req.NoError(err)

	// Then she sees broadcasts and what was sent to her, nothing else, in insertion order
	req.Len(fetched, 3)
	req.Equal(messages[0].ID, fetched[0].ID)
	req.Equal(messages[1].ID, fetched[1].ID)
	req.Equal(messages[3].ID, fetched[2].ID)
	req.Equal("second", fetched[1].Text)
	req.Equal(domain.PrivateMessage, fetched[1].Type)
	req.True(messages[1].CreatedAt.Equal(fetched[1].CreatedAt))

	// And Clara sees her own private message
	fetched, err = repository.ListVisibleTo(ctx, "Clara")
	req.NoError(err)
	req.Len(fetched, 3)
}

func Test_List_Empty_Store_Returns_Empty_Slice(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default())

	fetched, err := repository.ListVisibleTo(context.Background(), "Alice")
	req.NoError(err)
	req.NotNil(fetched)
	req.Empty(fetched)
}

func Test_UpdateOwned(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := NewMessageRepository(openTestDB(t), slog.Default())
	original := domain.NewMessage("Alice", domain.BroadcastTarget, "hello", domain.NormalMessage, time.Now().UTC())
	req.NoError(repository.Store(ctx, original))
	patch := domain.MessagePatch{To: "Bob", Text: "hello Bob", Type: domain.PrivateMessage, Time: "01:02:03"}

	t.Run("unknown id", func(t *testing.T) {
		_, err := repository.UpdateOwned(ctx, uuid.New(), "Alice", patch)
		require.ErrorIs(t, err, errors.ErrMessageNotFound)
	})

	t.Run("not the owner leaves the message untouched", func(t *testing.T) {
		_, err := repository.UpdateOwned(ctx, original.ID, "Bob", patch)
		require.ErrorIs(t, err, errors.ErrNotMessageOwner)

		fetched, err := repository.ListVisibleTo(ctx, "Alice")
		require.NoError(t, err)
		require.Len(t, fetched, 1)
		require.Equal(t, "hello", fetched[0].Text)
		require.Equal(t, domain.BroadcastTarget, fetched[0].To)
	})

	t.Run("owner overwrites fields and keeps position", func(t *testing.T) {
		updated, err := repository.UpdateOwned(ctx, original.ID, "Alice", patch)
		require.NoError(t, err)
		require.Equal(t, original.ID, updated.ID)
		require.Equal(t, "hello Bob", updated.Text)
		require.Equal(t, "01:02:03", updated.Time)

		fetched, err := repository.ListVisibleTo(ctx, "Bob")
		require.NoError(t, err)
		require.Len(t, fetched, 1)
		require.Equal(t, "hello Bob", fetched[0].Text)
		require.Equal(t, domain.PrivateMessage, fetched[0].Type)
		require.True(t, original.CreatedAt.Equal(fetched[0].CreatedAt))
	})
}

func Test_DeleteOwned(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := NewMessageRepository(openTestDB(t), slog.Default())
	message := domain.NewMessage("Alice", domain.BroadcastTarget, "bye", domain.NormalMessage, time.Now().UTC())
	req.NoError(repository.Store(ctx, message))

	req.ErrorIs(repository.DeleteOwned(ctx, uuid.New(), "Alice"), errors.ErrMessageNotFound)
	req.ErrorIs(repository.DeleteOwned(ctx, message.ID, "Bob"), errors.ErrNotMessageOwner)

	fetched, err := repository.ListVisibleTo(ctx, "Bob")
	req.NoError(err)
	req.Len(fetched, 1)

	req.NoError(repository.DeleteOwned(ctx, message.ID, "Alice"))
	req.ErrorIs(repository.DeleteOwned(ctx, message.ID, "Alice"), errors.ErrMessageNotFound)

	fetched, err = repository.ListVisibleTo(ctx, "Alice")
	req.NoError(err)
	req.Empty(fetched)
}

func Test_Message_DeleteAll(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := NewMessageRepository(openTestDB(t), slog.Default())
	at := time.Now().UTC()
	first := domain.NewMessage("Alice", domain.BroadcastTarget, "1", domain.NormalMessage, at)
	req.NoError(repository.Store(ctx, first))
	req.NoError(repository.Store(ctx, domain.NewMessage("Bob", domain.BroadcastTarget, "2", domain.NormalMessage, at.Add(time.Second))))

	req.NoError(repository.DeleteAll(ctx))

	fetched, err := repository.ListVisibleTo(ctx, "Alice")
	req.NoError(err)
	req.Empty(fetched)
	// Cleared messages cannot be targeted anymore
	req.ErrorIs(repository.DeleteOwned(ctx, first.ID, "Alice"), errors.ErrMessageNotFound)
}

func Test_Same_Timestamp_Keeps_Insertion_Order(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := NewMessageRepository(openTestDB(t), slog.Default())
	at := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

	var texts []string
	for i := 0; i < 50; i++ {
		text := fmt.Sprintf("message %02d", i)
		texts = append(texts, text)
		req.NoError(repository.Store(ctx, domain.NewMessage("Alice", domain.BroadcastTarget, text, domain.NormalMessage, at)))
	}

	fetched, err := repository.ListAll(ctx)
	req.NoError(err)
	req.Equal(texts, lo.Map(fetched, func(m domain.Message, _ int) string { return m.Text }))
}
