package event

import "encoding/json"

// Envelope kinds delivered by the Slack Events API.
const (
	TypeURLVerification = "url_verification"
	TypeEventCallback   = "event_callback"
)

// Envelope is the outer payload of an Events API request. It is parsed
// once per request and never mutated afterwards.
type Envelope struct {
	Type      string  `json:"type"`
	Token     string  `json:"token,omitempty"`
	Challenge string  `json:"challenge,omitempty"`
	TeamID    string  `json:"team_id,omitempty"`
	Event     Message `json:"event,omitempty"`
}

// Message is the inner event object of an event_callback envelope.
type Message struct {
	Type        string `json:"type"`
	User        string `json:"user"`
	BotID       string `json:"bot_id,omitempty"`
	Text        string `json:"text"`
	Channel     string `json:"channel"`
	TS          string `json:"ts"`
	ChannelType string `json:"channel_type,omitempty"`
}

// ParseEnvelope decodes a raw webhook body.
func ParseEnvelope(body []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// IsHandshake reports whether the envelope is a url_verification probe.
func (e *Envelope) IsHandshake() bool {
	return e.Type == TypeURLVerification
}

// Payload is the frame pushed to every live viewer connection when a
// message qualifies for broadcast.
type Payload struct {
	Type string      `json:"type"`
	Data PayloadData `json:"data"`
}

// PayloadData carries the message fields viewers render.
type PayloadData struct {
	ID        string `json:"id"`
	Channel   string `json:"channel"`
	User      string `json:"user"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
	Urgency   string `json:"urgency"`
}

// NewMessagePayload builds the broadcast frame for a qualifying event.
func NewMessagePayload(msg Message, urgency string) Payload {
	return Payload{
		Type: "new_message",
		Data: PayloadData{
			ID:        msg.TS,
			Channel:   msg.Channel,
			User:      msg.User,
			Text:      msg.Text,
			Timestamp: msg.TS,
			Urgency:   urgency,
		},
	}
}
