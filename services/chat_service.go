package services

import (
	"chat-room/domain"
	"chat-room/errors"
	"chat-room/moderation"
	"chat-room/repositories"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

type IMessageService interface {
	Send(ctx context.Context, from string, input MessageInput) error
	List(ctx context.Context, requester string, limit int) ([]domain.Message, error)
	Update(ctx context.Context, id, requester string, input MessageInput) (domain.Message, error)
	Delete(ctx context.Context, id, requester string) error
	RemoveAll(ctx context.Context) error
	PostStatus(ctx context.Context, name, text string) error
}

// MessageInput is the user supplied part of a message, before sanitization.
type MessageInput struct {
	To   string
	Text string
	Type string
}

// Censor hides forbidden words of a text. A nil Censor disables moderation.
type Censor interface {
	Censor(text string) (string, []string)
}

type MessageService struct {
	participants repositories.IParticipantRepository
	messages     repositories.IMessageRepository
	censor       Censor
	log          *slog.Logger
	now          func() time.Time
}

func NewMessageService(
	participants repositories.IParticipantRepository,
	messages repositories.IMessageRepository,
	censor Censor,
	log *slog.Logger,
	now func() time.Time,
) *MessageService {
	return &MessageService{participants: participants, messages: messages, censor: censor, log: log, now: now}
}

// Send stores a message from a registered participant.
// Validation happens on sanitized values, so markup-only fields are rejected too.
func (s *MessageService) Send(ctx context.Context, from string, input MessageInput) error {
	request, err := sanitizeMessage(input)
	if err != nil {
		return err
	}

	from = moderation.Sanitize(from)
	if from == "" {
		return errors.ErrUnknownSender
	}
	registered, err := s.participants.Exists(ctx, from)
	if err != nil {
		return fmt.Errorf("lookup sender: %w", err)
	}
	if !registered {
		return errors.ErrUnknownSender
	}

	message := domain.NewMessage(from, request.To, s.moderate(request.Text), domain.MessageType(request.Type), s.now())
	if err = s.messages.Store(ctx, message); err != nil {
		return fmt.Errorf("store message: %w", err)
	}
	s.log.Debug("Message stored", "id", message.ID, "from", from, "to", message.To)
	return nil
}

// List returns the messages visible to requester, keeping the window selected by limit.
func (s *MessageService) List(ctx context.Context, requester string, limit int) ([]domain.Message, error) {
	messages, err := s.messages.ListVisibleTo(ctx, moderation.Sanitize(requester))
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return domain.Window(messages, limit), nil
}

func (s *MessageService) Update(ctx context.Context, id, requester string, input MessageInput) (domain.Message, error) {
	request, err := sanitizeMessage(input)
	if err != nil {
		return domain.Message{}, err
	}
	messageID, err := uuid.Parse(id)
	if err != nil {
		return domain.Message{}, errors.ErrMessageNotFound
	}

	patch := domain.MessagePatch{
		To:   request.To,
		Text: s.moderate(request.Text),
		Type: domain.MessageType(request.Type),
		Time: s.now().Format(domain.TimeLayout),
	}
	return s.messages.UpdateOwned(ctx, messageID, moderation.Sanitize(requester), patch)
}

func (s *MessageService) Delete(ctx context.Context, id, requester string) error {
	messageID, err := uuid.Parse(id)
	if err != nil {
		return errors.ErrMessageNotFound
	}
	return s.messages.DeleteOwned(ctx, messageID, moderation.Sanitize(requester))
}

func (s *MessageService) RemoveAll(ctx context.Context) error {
	s.log.Warn("Removing every message")
	return s.messages.DeleteAll(ctx)
}

// PostStatus broadcasts a system notice on behalf of name.
func (s *MessageService) PostStatus(ctx context.Context, name, text string) error {
	return s.messages.Store(ctx, domain.NewStatusMessage(name, text, s.now()))
}

func (s *MessageService) moderate(text string) string {
	if s.censor == nil {
		return text
	}
	censored, words := s.censor.Censor(text)
	if len(words) > 0 {
		s.log.Info("Message censored", "words", words)
	}
	return censored
}

func sanitizeMessage(input MessageInput) (messageRequest, error) {
	request := messageRequest{
		To:   moderation.Sanitize(input.To),
		Text: moderation.Sanitize(input.Text),
		Type: moderation.Sanitize(input.Type),
	}
	if err := validateStruct(request); err != nil {
		return messageRequest{}, err
	}
	return request, nil
}
