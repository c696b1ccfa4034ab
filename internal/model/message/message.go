package message

import (
	"time"

	"github.com/ymgch/slack-pulse/backend/internal/model/event"
)

// DefaultChannelType is assumed when Slack omits channel_type.
const DefaultChannelType = "im"

// StoredMessage is one receiver's copy of a conversation event. A
// single inbound message is expanded into one StoredMessage per channel
// member so each user's inbox is independent; SlackMessageID is the
// idempotent upsert key within a receiver's messages sub-collection.
type StoredMessage struct {
	SenderID       string    `bson:"sender_id" json:"sender_id"`
	ReceiverID     string    `bson:"receiver_id" json:"receiver_id"`
	SlackMessageID string    `bson:"slack_message_id" json:"slack_message_id"`
	ChannelID      string    `bson:"channel_id" json:"channel_id"`
	Text           string    `bson:"text" json:"text"`
	IsAI           bool      `bson:"is_ai" json:"is_ai"`
	IsBot          bool      `bson:"is_bot" json:"is_bot"`
	IsSee          bool      `bson:"is_see" json:"is_see"`
	ChannelType    string    `bson:"channel_type" json:"channel_type"`
	Timestamp      time.Time `bson:"timestamp" json:"timestamp"`
	CreatedAt      time.Time `bson:"created_at" json:"created_at"`
}

// ExpandToMembers fans an inbound event out into one StoredMessage per
// channel member. Self-authored copies are pre-marked read (IsSee);
// every other flag defaults false except IsBot, which mirrors the
// event's bot origin. Pure; persistence happens elsewhere.
func ExpandToMembers(msg event.Message, members []string, now time.Time) []StoredMessage {
	channelType := msg.ChannelType
	if channelType == "" {
		channelType = DefaultChannelType
	}

	out := make([]StoredMessage, 0, len(members))
	for _, member := range members {
		out = append(out, StoredMessage{
			SenderID:       msg.User,
			ReceiverID:     member,
			SlackMessageID: msg.TS,
			ChannelID:      msg.Channel,
			Text:           msg.Text,
			IsBot:          msg.BotID != "",
			IsSee:          member == msg.User,
			ChannelType:    channelType,
			Timestamp:      now,
			CreatedAt:      now,
		})
	}
	return out
}

// Fields flattens the message for the document store.
func (m StoredMessage) Fields() map[string]any {
	return map[string]any{
		"sender_id":        m.SenderID,
		"receiver_id":      m.ReceiverID,
		"slack_message_id": m.SlackMessageID,
		"channel_id":       m.ChannelID,
		"text":             m.Text,
		"is_ai":            m.IsAI,
		"is_bot":           m.IsBot,
		"is_see":           m.IsSee,
		"channel_type":     m.ChannelType,
		"timestamp":        m.Timestamp,
		"created_at":       m.CreatedAt,
	}
}
