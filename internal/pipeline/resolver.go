package pipeline

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/findorigin/internal/cache"
	"github.com/ppiankov/findorigin/internal/model"
)

var telegramLinkPattern = regexp.MustCompile(`https?://t\.me/([A-Za-z0-9_]+)/(\d+)`)

// ParseTelegramLink returns the first channel post link found in text
func ParseTelegramLink(text string) (*model.TelegramLink, bool) {
	m := telegramLinkPattern.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}
	return &model.TelegramLink{
		URL:       m[0],
		Channel:   m[1],
		MessageID: m[2],
	}, true
}

// PostSource fetches the text of a channel post
type PostSource interface {
	FetchPost(ctx context.Context, link model.TelegramLink) FetchOutcome
}

// Resolver turns raw user text into the text that gets analyzed
type Resolver struct {
	posts  PostSource
	cache  cache.Cache
	logger *zap.Logger
}

// NewResolver creates a Resolver. c and logger may be nil.
func NewResolver(posts PostSource, c cache.Cache, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{posts: posts, cache: c, logger: logger}
}

// Resolve never fails. Without a post link the trimmed input is used as is;
// with one, the post text replaces it when it could be fetched and differs
// from the input.
func (r *Resolver) Resolve(ctx context.Context, raw string) model.ResolvedInput {
	original := strings.TrimSpace(raw)
	resolved := model.ResolvedInput{Text: original, OriginalText: original}

	link, ok := ParseTelegramLink(original)
	if !ok {
		return resolved
	}
	resolved.TelegramLink = link

	outcome := r.fetch(ctx, *link)
	if !outcome.OK() {
		r.logger.Info("post fetch fell back to message text",
			zap.String("channel", link.Channel),
			zap.String("message_id", link.MessageID),
			zap.String("reason", outcome.Reason))
		return resolved
	}
	if outcome.Text == original {
		return resolved
	}

	resolved.Text = outcome.Text
	resolved.UsedTelegramFetch = true
	return resolved
}

func (r *Resolver) fetch(ctx context.Context, link model.TelegramLink) FetchOutcome {
	if r.posts == nil {
		return Fallback("post fetching is disabled")
	}

	var key string
	if r.cache != nil {
		key = cache.PostKey(link.Channel, link.MessageID)
		if b, ok := r.cache.Get(key); ok {
			r.logger.Debug("post text cache hit", zap.String("channel", link.Channel))
			return Fetched(string(b))
		}
	}

	outcome := r.posts.FetchPost(ctx, link)
	if outcome.OK() && r.cache != nil {
		if err := r.cache.Set(key, []byte(outcome.Text), 0); err != nil {
			r.logger.Warn("cache post text", zap.Error(err))
		}
	}
	return outcome
}
