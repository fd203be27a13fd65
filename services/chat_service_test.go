package services

import (
	"chat-room/domain"
	"chat-room/errors"
	"chat-room/mocks"
	"chat-room/moderation"
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var fixedNow = time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

func clock() time.Time { return fixedNow }

func TestMessageService_Send(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	ctx := context.Background()

	mockParticipants := mocks.NewMockIParticipantRepository(ctrl)
	mockMessages := mocks.NewMockIMessageRepository(ctrl)
	svc := NewMessageService(mockParticipants, mockMessages, nil, slog.Default(), clock)

	t.Run("should store a sanitized message from a registered participant", func(t *testing.T) {
		req := require.New(t)
		mockParticipants.EXPECT().Exists(ctx, "Ana").Return(true, nil).Times(1)
		mockMessages.EXPECT().
			Store(ctx, gomock.Any()).
			DoAndReturn(func(_ context.Context, m domain.Message) error {
				req.Equal("Ana", m.From)
				req.Equal(domain.BroadcastTarget, m.To)
				req.Equal("hi", m.Text)
				req.Equal(domain.NormalMessage, m.Type)
				req.Equal("02:05:07", m.Time)
				req.Equal(fixedNow, m.CreatedAt)
				req.NotEqual(uuid.Nil, m.ID)
				return nil
			}).
			Times(1)

		err := svc.Send(ctx, " <i>Ana</i> ", MessageInput{To: "all", Text: "  <b>hi</b>  ", Type: "message"})
		req.NoError(err)
	})

	t.Run("should reject invalid input before any store access", func(t *testing.T) {
		mockParticipants.EXPECT().Exists(gomock.Any(), gomock.Any()).Times(0)
		mockMessages.EXPECT().Store(gomock.Any(), gomock.Any()).Times(0)

		inputs := []MessageInput{
			{To: "", Text: "hi", Type: "message"},
			{To: "all", Text: "", Type: "message"},
			{To: "all", Text: "<b></b>", Type: "message"},
			{To: "all", Text: "hi", Type: "status"},
			{To: "all", Text: "hi", Type: ""},
		}
		for _, input := range inputs {
			err := svc.Send(ctx, "Ana", input)
			require.ErrorIs(t, err, errors.ErrInvalidInput, "input=%+v", input)
		}
	})

	t.Run("should reject an unregistered sender", func(t *testing.T) {
		req := require.New(t)
		mockParticipants.EXPECT().Exists(ctx, "Ghost").Return(false, nil).Times(1)
		mockMessages.EXPECT().Store(gomock.Any(), gomock.Any()).Times(0)

		err := svc.Send(ctx, "Ghost", MessageInput{To: "all", Text: "boo", Type: "message"})
		req.ErrorIs(err, errors.ErrUnknownSender)

		err = svc.Send(ctx, "  ", MessageInput{To: "all", Text: "boo", Type: "message"})
		req.ErrorIs(err, errors.ErrUnknownSender)
	})

	t.Run("should surface store failures", func(t *testing.T) {
		boom := fmt.Errorf("disk is gone")
		mockParticipants.EXPECT().Exists(ctx, "Ana").Return(false, boom).Times(1)

		err := svc.Send(ctx, "Ana", MessageInput{To: "all", Text: "hi", Type: "message"})
		require.ErrorIs(t, err, boom)
	})
}

func TestMessageService_Send_Censored(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	ctx := context.Background()

	moderator, err := moderation.NewModerator([]string{"badger"}, '*', slog.Default())
	req.NoError(err)
	mockParticipants := mocks.NewMockIParticipantRepository(ctrl)
	mockMessages := mocks.NewMockIMessageRepository(ctrl)
	svc := NewMessageService(mockParticipants, mockMessages, moderator, slog.Default(), clock)

	mockParticipants.EXPECT().Exists(ctx, "Ana").Return(true, nil)
	mockMessages.EXPECT().
		Store(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, m domain.Message) error {
			req.Equal("a ****** here", m.Text)
			return nil
		})

	req.NoError(svc.Send(ctx, "Ana", MessageInput{To: "all", Text: "a badger here", Type: "message"}))
}

func TestMessageService_List(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	ctx := context.Background()

	mockMessages := mocks.NewMockIMessageRepository(ctrl)
	svc := NewMessageService(mocks.NewMockIParticipantRepository(ctrl), mockMessages, nil, slog.Default(), clock)

	var stored []domain.Message
	for i := 1; i <= 5; i++ {
		stored = append(stored, domain.NewMessage("Ana", domain.BroadcastTarget, fmt.Sprintf("%d", i), domain.NormalMessage, fixedNow))
	}

	tests := []struct {
		name     string
		limit    int
		expected []string
	}{
		{"no limit", 0, []string{"1", "2", "3", "4", "5"}},
		{"last two", 2, []string{"4", "5"}},
		{"limit above size", 9, []string{"1", "2", "3", "4", "5"}},
		{"negative limit drops head", -3, []string{"4", "5"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockMessages.EXPECT().ListVisibleTo(ctx, "Ana").Return(stored, nil).Times(1)

			messages, err := svc.List(ctx, "Ana", tt.limit)
			require.NoError(t, err)
			var texts []string
			for _, m := range messages {
				texts = append(texts, m.Text)
			}
			require.Equal(t, tt.expected, texts)
		})
	}
}

func TestMessageService_Update(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	ctx := context.Background()

	mockMessages := mocks.NewMockIMessageRepository(ctrl)
	svc := NewMessageService(mocks.NewMockIParticipantRepository(ctrl), mockMessages, nil, slog.Default(), clock)
	id := uuid.New()
	input := MessageInput{To: "Bob", Text: "<p>edited</p>", Type: "private_message"}

	t.Run("should pass a sanitized patch to the owner-filtered update", func(t *testing.T) {
		req := require.New(t)
		expected := domain.MessagePatch{To: "Bob", Text: "edited", Type: domain.PrivateMessage, Time: "02:05:07"}
		mockMessages.EXPECT().
			UpdateOwned(ctx, id, "Ana", expected).
			Return(domain.Message{ID: id, From: "Ana", To: "Bob", Text: "edited"}, nil).
			Times(1)

		updated, err := svc.Update(ctx, id.String(), "Ana", input)
		req.NoError(err)
		req.Equal("edited", updated.Text)
	})

	t.Run("should propagate ownership mismatch", func(t *testing.T) {
		mockMessages.EXPECT().
			UpdateOwned(ctx, id, "Bob", gomock.Any()).
			Return(domain.Message{}, errors.ErrNotMessageOwner).
			Times(1)

		_, err := svc.Update(ctx, id.String(), "Bob", input)
		require.ErrorIs(t, err, errors.ErrNotMessageOwner)
	})

	t.Run("should validate before resolving the id", func(t *testing.T) {
		mockMessages.EXPECT().UpdateOwned(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		_, err := svc.Update(ctx, "not-a-uuid", "Ana", MessageInput{To: "Bob", Text: "", Type: "message"})
		require.ErrorIs(t, err, errors.ErrInvalidInput)

		_, err = svc.Update(ctx, "not-a-uuid", "Ana", input)
		require.ErrorIs(t, err, errors.ErrMessageNotFound)
	})
}

func TestMessageService_Delete(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	ctx := context.Background()

	mockMessages := mocks.NewMockIMessageRepository(ctrl)
	svc := NewMessageService(mocks.NewMockIParticipantRepository(ctrl), mockMessages, nil, slog.Default(), clock)
	id := uuid.New()

	mockMessages.EXPECT().DeleteOwned(ctx, id, "Ana").Return(nil).Times(1)
	require.NoError(t, svc.Delete(ctx, id.String(), "Ana"))

	mockMessages.EXPECT().DeleteOwned(ctx, id, "Bob").Return(errors.ErrNotMessageOwner).Times(1)
	require.ErrorIs(t, svc.Delete(ctx, id.String(), "Bob"), errors.ErrNotMessageOwner)

	require.ErrorIs(t, svc.Delete(ctx, "42", "Ana"), errors.ErrMessageNotFound)
}

func TestMessageService_PostStatus(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	ctx := context.Background()

	mockMessages := mocks.NewMockIMessageRepository(ctrl)
	svc := NewMessageService(mocks.NewMockIParticipantRepository(ctrl), mockMessages, nil, slog.Default(), clock)

	mockMessages.EXPECT().
		Store(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, m domain.Message) error {
			req.Equal("Ana", m.From)
			req.Equal(domain.BroadcastTarget, m.To)
			req.Equal(domain.StatusMessage, m.Type)
			req.Equal(domain.LeftText, m.Text)
			return nil
		})

	req.NoError(svc.PostStatus(ctx, "Ana", domain.LeftText))
}
