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
)

type IParticipantService interface {
	Join(ctx context.Context, name string) error
	List(ctx context.Context) ([]domain.Participant, error)
	Heartbeat(ctx context.Context, name string) error
	RemoveAll(ctx context.Context) error
}

// StatusPoster publishes join and leave notices.
type StatusPoster interface {
	PostStatus(ctx context.Context, name, text string) error
}

type ParticipantService struct {
	participants repositories.IParticipantRepository
	statuses     StatusPoster
	log          *slog.Logger
	now          func() time.Time
}

func NewParticipantService(
	participants repositories.IParticipantRepository,
	statuses StatusPoster,
	log *slog.Logger,
	now func() time.Time,
) *ParticipantService {
	return &ParticipantService{participants: participants, statuses: statuses, log: log, now: now}
}

// Join registers name and announces it to everyone.
// Duplicates are rejected by the repository in the same write that creates the participant.
func (s *ParticipantService) Join(ctx context.Context, name string) error {
	request := participantRequest{Name: moderation.Sanitize(name)}
	if err := validateStruct(request); err != nil {
		return err
	}

	if err := s.participants.Create(ctx, domain.NewParticipant(request.Name, s.now())); err != nil {
		return err
	}
	if err := s.statuses.PostStatus(ctx, request.Name, domain.JoinedText); err != nil {
		return fmt.Errorf("announce %s: %w", request.Name, err)
	}
	s.log.Info("Participant joined", "name", request.Name)
	return nil
}

func (s *ParticipantService) List(ctx context.Context) ([]domain.Participant, error) {
	return s.participants.List(ctx)
}

// Heartbeat refreshes the liveness timestamp, an empty name is never registered.
func (s *ParticipantService) Heartbeat(ctx context.Context, name string) error {
	name = moderation.Sanitize(name)
	if name == "" {
		return errors.ErrParticipantNotFound
	}
	return s.participants.Touch(ctx, name, s.now())
}

func (s *ParticipantService) RemoveAll(ctx context.Context) error {
	s.log.Warn("Removing every participant")
	return s.participants.DeleteAll(ctx)
}
