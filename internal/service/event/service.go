package event

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ymgch/slack-pulse/backend/internal/model/event"
	"github.com/ymgch/slack-pulse/backend/internal/model/message"
	"github.com/ymgch/slack-pulse/backend/internal/service/classify"
	"github.com/ymgch/slack-pulse/backend/internal/store"
)

// ErrMissingEventFields marks a callback whose inner event lacks the
// required identifiers. The webhook responds 4xx for these; everything
// downstream degrades silently instead.
var ErrMissingEventFields = errors.New("event is missing required fields")

// MemberResolver resolves the full membership of a conversation.
type MemberResolver interface {
	ChannelMembers(ctx context.Context, channelID string) ([]string, error)
}

// Broadcaster pushes a qualifying payload to live viewers.
type Broadcaster interface {
	Broadcast(payload event.Payload)
}

// Classifier rates a message's urgency. Never fails outward.
type Classifier interface {
	Classify(ctx context.Context, text string) classify.Level
}

// Service dispatches verified webhook callbacks: per-member
// persistence, one classification per event, and broadcast of
// high-urgency messages.
type Service struct {
	store      store.Store
	members    MemberResolver
	classifier Classifier
	hub        Broadcaster
	now        func() time.Time
	log        *zap.Logger
}

// NewService wires the router's collaborators.
func NewService(st store.Store, members MemberResolver, classifier Classifier, hub Broadcaster, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:      st,
		members:    members,
		classifier: classifier,
		hub:        hub,
		now:        time.Now,
		log:        log,
	}
}

// HandleCallback processes an event_callback envelope. Persistence for
// every channel member is attempted before classification runs, and
// classification runs exactly once per event regardless of member
// count. Only ErrMissingEventFields reaches the caller; per-member and
// broadcast failures are isolated so the webhook sender never retries.
func (s *Service) HandleCallback(ctx context.Context, env *event.Envelope) error {
	msg := env.Event
	if msg.Type != "message" {
		s.log.Debug("ignoring non-message event", zap.String("event_type", msg.Type))
		return nil
	}
	if msg.Channel == "" || msg.User == "" || msg.TS == "" {
		return ErrMissingEventFields
	}

	members, err := s.members.ChannelMembers(ctx, msg.Channel)
	if err != nil {
		s.log.Error("failed to resolve channel members, skipping persistence",
			zap.String("channel", msg.Channel), zap.Error(err))
		members = nil
	}

	s.persistFanout(ctx, msg, members)

	level := s.classifier.Classify(ctx, msg.Text)
	s.log.Info("classified message",
		zap.String("channel", msg.Channel),
		zap.String("ts", msg.TS),
		zap.String("urgency", string(level)))

	if level == classify.LevelHigh {
		s.hub.Broadcast(event.NewMessagePayload(msg, string(level)))
	}
	return nil
}

// persistFanout writes one StoredMessage per channel member. Receivers
// without a user document are skipped with a warning; a failed write
// for one member never aborts the rest.
func (s *Service) persistFanout(ctx context.Context, msg event.Message, members []string) {
	for _, stored := range message.ExpandToMembers(msg, members, s.now()) {
		if _, err := s.store.Get(ctx, store.UsersCollection, stored.ReceiverID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				s.log.Warn("receiver not registered, skipping message persistence",
					zap.String("receiver", stored.ReceiverID),
					zap.String("ts", stored.SlackMessageID))
			} else {
				s.log.Error("failed to look up receiver, skipping message persistence",
					zap.String("receiver", stored.ReceiverID), zap.Error(err))
			}
			continue
		}

		if err := s.store.AppendChild(ctx, stored.ReceiverID, store.MessagesCollection, stored.SlackMessageID, stored.Fields()); err != nil {
			s.log.Error("failed to persist message copy",
				zap.String("receiver", stored.ReceiverID),
				zap.String("ts", stored.SlackMessageID),
				zap.Error(err))
		}
	}
}
