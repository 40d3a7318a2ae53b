package slack

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/fathomdata/salesdesk/internal/resolver"
)

const respondedMessagesMaxAge = 1 * time.Hour

const greeting = "Hi! Ask me anything about the sales data. " +
	"I'll provide both text results and visualizations when appropriate."

// Message is an inbound question with its channel coordinates.
type Message struct {
	Channel         string
	User            string
	Text            string
	Timestamp       string
	ThreadTimestamp string
	IsChannel       bool
}

// Processor processes Slack messages and generates responses
type Processor struct {
	client    *Client
	resolver  *resolver.Resolver
	log       *slog.Logger
	responded *ttlcache.Cache[string, struct{}]
}

// NewProcessor creates a new message processor
func NewProcessor(client *Client, res *resolver.Resolver, log *slog.Logger) *Processor {
	return &Processor{
		client:   client,
		resolver: res,
		log:      log,
		responded: ttlcache.New[string, struct{}](
			ttlcache.WithTTL[string, struct{}](respondedMessagesMaxAge),
		),
	}
}

// Start runs the responded-message cache eviction until ctx is done.
func (p *Processor) Start(ctx context.Context) {
	go p.responded.Start()
	go func() {
		<-ctx.Done()
		p.responded.Stop()
	}()
}

// HasResponded checks if we've already responded to a message
func (p *Processor) HasResponded(messageKey string) bool {
	return p.responded.Has(messageKey)
}

// MarkResponded marks a message as responded to
func (p *Processor) MarkResponded(messageKey string) {
	p.responded.Set(messageKey, struct{}{}, ttlcache.DefaultTTL)
}

// isHelpRequest reports whether the message asks for usage help rather than
// posing a question.
func isHelpRequest(text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "", "help", "start", "hi", "hello":
		return true
	}
	return false
}

// ProcessMessage resolves a single question and posts the reply, threading
// the response under the triggering message.
func (p *Processor) ProcessMessage(ctx context.Context, msg Message, messageKey string) {
	startTime := time.Now()

	p.log.Info("replying to message",
		"channel", msg.Channel,
		"user", msg.User,
		"message_ts", msg.Timestamp,
		"thread_ts", msg.ThreadTimestamp,
		"message_key", messageKey,
		"is_channel", msg.IsChannel,
	)

	txt := strings.TrimSpace(msg.Text)
	if msg.IsChannel {
		txt = p.client.RemoveBotMention(txt)
	}

	threadTS := msg.ThreadTimestamp
	if threadTS == "" {
		threadTS = msg.Timestamp
	}

	if isHelpRequest(txt) {
		p.MarkResponded(messageKey)
		if _, err := p.client.PostMessage(ctx, msg.Channel, greeting, nil, threadTS); err != nil {
			SlackAPIErrorsTotal.WithLabelValues("post_message").Inc()
		}
		return
	}

	if err := p.client.AddProcessingReaction(ctx, msg.Channel, msg.Timestamp); err != nil {
		SlackAPIErrorsTotal.WithLabelValues("add_reaction").Inc()
	}

	resp := p.resolver.Resolve(ctx, txt)
	path := string(resp.Source)
	MessageProcessingDuration.WithLabelValues(path).Observe(time.Since(startTime).Seconds())

	p.MarkResponded(messageKey)

	text := resp.Text
	if resp.Source == resolver.SourceError {
		p.log.Warn("resolution failed on both paths", "message_ts", msg.Timestamp)
	}

	blocks := ConvertMarkdownToBlocks(text, p.log)
	if _, err := p.client.PostMessage(ctx, msg.Channel, text, blocks, threadTS); err != nil {
		SlackAPIErrorsTotal.WithLabelValues("post_message").Inc()
		MessagesPostedTotal.WithLabelValues("error", path).Inc()
		fallback := SanitizeErrorMessage(err.Error())
		_, _ = p.client.PostMessage(ctx, msg.Channel, fallback, nil, threadTS)
	} else {
		MessagesPostedTotal.WithLabelValues("success", path).Inc()
	}

	if len(resp.Chart) > 0 {
		title := "Results for: " + resp.Title
		if err := p.client.UploadImage(ctx, msg.Channel, threadTS, title, resp.Chart); err != nil {
			// Chart delivery is best-effort; the text reply already went out.
			SlackAPIErrorsTotal.WithLabelValues("upload_file").Inc()
			p.log.Warn("failed to upload chart", "error", err)
		} else {
			ChartsPostedTotal.Inc()
		}
	}

	if err := p.client.RemoveProcessingReaction(ctx, msg.Channel, msg.Timestamp); err != nil {
		SlackAPIErrorsTotal.WithLabelValues("remove_reaction").Inc()
	}

	p.log.Info("reply posted", "channel", msg.Channel, "path", path, "duration", time.Since(startTime))
}
