package classify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
)

// The shared rubric: three named urgency bands, delivered to every
// provider in an equivalent form.
const rubric = "Rate the urgency of a chat message on exactly three bands. " +
	"high: incidents, errors, deadlines, complaints, security issues, or explicit urgency markers. " +
	"medium: ordinary requests, questions, or information sharing. " +
	"low: small talk, acknowledgements, or reactions."

// Primary provider prompt: the whole rubric inline, asking for a
// single-token answer restricted to the three labels.
const primaryPrompt = rubric + "\n\nMessage:\n{text}\n\n" +
	"Answer with exactly one word: high, medium, or low."

// Secondary provider prompts: the rubric as a structured
// instruction/user-message pair.
const (
	secondarySystemPrompt = rubric + " Respond with only one of: high, medium, low. No other text."
	secondaryUserPrompt   = "{text}"
)

// ChainProvider wraps an eino prompt+model chain as a classification
// provider.
type ChainProvider struct {
	name    string
	chain   compose.Runnable[map[string]any, *schema.Message]
	timeout time.Duration
}

// NewPrimaryProvider compiles the single-prompt chain over chatModel.
func NewPrimaryProvider(ctx context.Context, chatModel model.ChatModel, timeout time.Duration) (*ChainProvider, error) {
	template := prompt.FromMessages(
		schema.FString,
		schema.UserMessage(primaryPrompt),
	)
	return newChainProvider(ctx, "primary", chatModel, template, timeout)
}

// NewSecondaryProvider compiles the structured system/user chain over
// chatModel. Low temperature and the small output budget come from the
// model configuration.
func NewSecondaryProvider(ctx context.Context, chatModel model.ChatModel, timeout time.Duration) (*ChainProvider, error) {
	template := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(secondarySystemPrompt),
		schema.UserMessage(secondaryUserPrompt),
	)
	return newChainProvider(ctx, "secondary", chatModel, template, timeout)
}

func newChainProvider(ctx context.Context, name string, chatModel model.ChatModel, template prompt.ChatTemplate, timeout time.Duration) (*ChainProvider, error) {
	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(template)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile %s classifier chain: %w", name, err)
	}

	return &ChainProvider{name: name, chain: runnable, timeout: timeout}, nil
}

// Name identifies the provider in fallback logs.
func (p *ChainProvider) Name() string { return p.name }

// TryClassify submits text to the underlying model and normalizes the
// answer. Unrecognized answers are reported as ErrUnavailable so the
// chain moves on.
func (p *ChainProvider) TryClassify(ctx context.Context, text string) (Level, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	msg, err := p.chain.Invoke(ctx, map[string]any{"text": text})
	if err != nil {
		return "", fmt.Errorf("%s invoke: %w", p.name, err)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return "", fmt.Errorf("%s: empty answer: %w", p.name, ErrUnavailable)
	}

	level, ok := ParseLevel(msg.Content)
	if !ok {
		return "", fmt.Errorf("%s: unrecognized answer %q: %w", p.name, msg.Content, ErrUnavailable)
	}
	return level, nil
}
