package classify

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
)

// Level is the three-band urgency rating attached to inbound messages.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// DefaultLevel is returned when every provider is unavailable or gives
// an unusable answer. Under-classifying to medium never drops a message
// silently and never over-alerts.
const DefaultLevel = LevelMedium

// ErrUnavailable marks a provider that is not configured or could not
// produce a usable answer for this call.
var ErrUnavailable = errors.New("classification provider unavailable")

// ParseLevel normalizes a raw provider answer. Only exact matches of
// the three labels are accepted; anything else counts as a failed
// provider call.
func ParseLevel(raw string) (Level, bool) {
	switch Level(strings.ToLower(strings.TrimSpace(raw))) {
	case LevelLow:
		return LevelLow, true
	case LevelMedium:
		return LevelMedium, true
	case LevelHigh:
		return LevelHigh, true
	default:
		return "", false
	}
}

// Provider is one classification backend in the fallback chain.
type Provider interface {
	Name() string
	TryClassify(ctx context.Context, text string) (Level, error)
}

// Classifier runs an ordered provider chain terminating in a constant
// default. It never fails outward: every call returns a level.
type Classifier struct {
	providers []Provider
	log       *zap.Logger
}

// New builds a classifier over the given providers, tried in order.
func New(log *zap.Logger, providers ...Provider) *Classifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Classifier{providers: providers, log: log}
}

// Classify rates the urgency of text. The first provider that returns
// a recognized label wins; provider errors, timeouts and unrecognized
// answers fall through to the next provider, and exhausting the chain
// yields DefaultLevel.
func (c *Classifier) Classify(ctx context.Context, text string) Level {
	for _, p := range c.providers {
		level, err := p.TryClassify(ctx, text)
		if err != nil {
			c.log.Warn("classification provider failed, falling back",
				zap.String("provider", p.Name()), zap.Error(err))
			continue
		}
		return level
	}
	return DefaultLevel
}
