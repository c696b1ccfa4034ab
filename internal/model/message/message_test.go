package message

import (
	"testing"
	"time"

	"github.com/ymgch/slack-pulse/backend/internal/model/event"
)

func sampleEvent() event.Message {
	return event.Message{
		Type:        "message",
		User:        "U1",
		Text:        "standup in 5",
		Channel:     "C1",
		TS:          "1700000000.000100",
		ChannelType: "channel",
	}
}

func TestExpandToMembersOnePerMember(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	out := ExpandToMembers(sampleEvent(), []string{"U1", "U2", "U3"}, now)

	if len(out) != 3 {
		t.Fatalf("expected 3 copies, got %d", len(out))
	}
	for _, m := range out {
		if m.SenderID != "U1" || m.ChannelID != "C1" || m.SlackMessageID != "1700000000.000100" {
			t.Fatalf("unexpected copy %+v", m)
		}
		if m.Timestamp != now || m.CreatedAt != now {
			t.Fatalf("expected timestamps pinned to now, got %+v", m)
		}
	}
}

func TestExpandToMembersSelfMarkedSeen(t *testing.T) {
	out := ExpandToMembers(sampleEvent(), []string{"U1", "U2"}, time.Now())

	for _, m := range out {
		want := m.ReceiverID == "U1"
		if m.IsSee != want {
			t.Fatalf("receiver %s: is_see=%v, want %v", m.ReceiverID, m.IsSee, want)
		}
		if m.IsAI || m.IsBot {
			t.Fatalf("origin flags must default false, got %+v", m)
		}
	}
}

func TestExpandToMembersBotOrigin(t *testing.T) {
	ev := sampleEvent()
	ev.BotID = "B99"
	out := ExpandToMembers(ev, []string{"U2"}, time.Now())

	if len(out) != 1 || !out[0].IsBot {
		t.Fatalf("expected bot flag set, got %+v", out)
	}
}

func TestExpandToMembersDefaultChannelType(t *testing.T) {
	ev := sampleEvent()
	ev.ChannelType = ""
	out := ExpandToMembers(ev, []string{"U2"}, time.Now())

	if out[0].ChannelType != DefaultChannelType {
		t.Fatalf("expected default channel type %q, got %q", DefaultChannelType, out[0].ChannelType)
	}
}

func TestExpandToMembersEmptyMembership(t *testing.T) {
	if out := ExpandToMembers(sampleEvent(), nil, time.Now()); len(out) != 0 {
		t.Fatalf("expected no copies for empty membership, got %d", len(out))
	}
}

func TestFieldsRoundTrip(t *testing.T) {
	now := time.Now()
	m := ExpandToMembers(sampleEvent(), []string{"U1"}, now)[0]
	fields := m.Fields()

	if fields["sender_id"] != "U1" || fields["is_see"] != true || fields["channel_type"] != "channel" {
		t.Fatalf("unexpected fields %v", fields)
	}
	if fields["slack_message_id"] != "1700000000.000100" {
		t.Fatalf("expected message id in fields, got %v", fields["slack_message_id"])
	}
}
