package services

import (
	"log/slog"
	"time"

	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/moderation"
	"chat-relay/repositories"
	"chat-relay/sanitize"
	"chat-relay/validation"

	"github.com/google/uuid"
)

// IChatService is the surface exposed to request handlers. Identity is always
// an explicit parameter; the service never infers it from ambient state.
// Free-text inputs arrive as any so that non-string payloads sanitize to ""
// and fail validation instead of being coerced.
type IChatService interface {
	Join(name any) (domain.Participant, error)
	Participants() ([]domain.Participant, error)
	Heartbeat(identity string) error
	PostMessage(identity string, to, text, kind any) (domain.Message, error)
	Messages(viewer string, limit int) ([]domain.Message, error)
	EditMessage(rawID, identity string, to, text, kind any) error
	RemoveMessage(rawID, identity string) error
	MessageCount() (int, error)
}

type ChatService struct {
	log          *slog.Logger
	participants repositories.IParticipantRepository
	messages     repositories.IMessageRepository
	moderator    *moderation.Moderator
}

func NewChatService(
	log *slog.Logger,
	participants repositories.IParticipantRepository,
	messages repositories.IMessageRepository,
	moderator *moderation.Moderator,
) *ChatService {
	return &ChatService{
		log:          log,
		participants: participants,
		messages:     messages,
		moderator:    moderator,
	}
}

// Join registers a participant and records the join notice. The two writes
// form one logical operation but are not atomic; if the notice write fails
// the registration stands and the error is surfaced.
func (s *ChatService) Join(name any) (domain.Participant, error) {
	clean := sanitize.Field(name)
	if err := validation.ValidateJoin(validation.JoinRequest{Name: clean}); err != nil {
		return domain.Participant{}, err
	}

	now := time.Now().UTC()
	participant, err := s.participants.Join(clean, now)
	if err != nil {
		return domain.Participant{}, err
	}

	if _, err = s.messages.Create(domain.NewStatus(clean, domain.JoinNotice, now)); err != nil {
		s.log.Error("Join notice write failed", "participant", clean, "err", err)
		return domain.Participant{}, err
	}
	s.log.Info("Participant joined", "name", clean)
	return participant, nil
}

func (s *ChatService) Participants() ([]domain.Participant, error) {
	return s.participants.List()
}

func (s *ChatService) Heartbeat(identity string) error {
	name := sanitize.Clean(identity)
	if name == "" {
		return errors.ErrParticipantNotFound
	}
	return s.participants.Heartbeat(name, time.Now().UTC())
}

// PostMessage validates the payload against the presented identity, checks
// the sender is registered, then stores the message. The sender may be
// evicted between the check and the write; the message still stands.
func (s *ChatService) PostMessage(identity string, to, text, kind any) (domain.Message, error) {
	message, err := s.buildMessage(identity, to, text, kind)
	if err != nil {
		return domain.Message{}, err
	}

	registered, err := s.participants.Exists(message.From)
	if err != nil {
		return domain.Message{}, err
	}
	if !registered {
		return domain.Message{}, errors.ErrParticipantNotFound
	}
	return s.messages.Create(message)
}

func (s *ChatService) Messages(viewer string, limit int) ([]domain.Message, error) {
	if limit < 0 {
		return nil, errors.NewValidationError("limit must not be negative")
	}
	return s.messages.Query(sanitize.Clean(viewer), limit)
}

// EditMessage replaces the mutable fields of an owned message, re-validated
// exactly as on create.
func (s *ChatService) EditMessage(rawID, identity string, to, text, kind any) error {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return errors.ErrMessageNotFound
	}
	message, err := s.buildMessage(identity, to, text, kind)
	if err != nil {
		return err
	}
	return s.messages.Update(id, message.From, domain.MessageEdit{
		To:   message.To,
		Text: message.Text,
		Type: message.Type,
	})
}

func (s *ChatService) RemoveMessage(rawID, identity string) error {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return errors.ErrMessageNotFound
	}
	return s.messages.Delete(id, sanitize.Clean(identity))
}

func (s *ChatService) MessageCount() (int, error) {
	return s.messages.Count()
}

func (s *ChatService) buildMessage(identity string, to, text, kind any) (domain.Message, error) {
	req := validation.MessageRequest{
		From: sanitize.Clean(identity),
		To:   sanitize.Field(to),
		Text: sanitize.Field(text),
		Type: sanitize.Field(kind),
	}
	if err := validation.ValidateMessage(req); err != nil {
		return domain.Message{}, err
	}
	return domain.Message{
		From: req.From,
		To:   req.To,
		Text: s.moderator.Censor(req.Text),
		Type: domain.MessageType(req.Type),
	}, nil
}
