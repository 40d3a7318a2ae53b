package slack

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	slackapi "github.com/slack-go/slack"
)

// processingReaction is added while a question is being resolved.
const processingReaction = "hourglass_flowing_sand"

// Client wraps the Slack Web API with the small surface the bot needs.
type Client struct {
	api       *slackapi.Client
	botUserID string
	log       *slog.Logger
}

// NewClient creates a new Slack client. appToken may be empty in HTTP mode.
func NewClient(botToken, appToken string, log *slog.Logger) *Client {
	opts := []slackapi.Option{}
	if appToken != "" {
		opts = append(opts, slackapi.OptionAppLevelToken(appToken))
	}
	return &Client{
		api: slackapi.New(botToken, opts...),
		log: log,
	}
}

// Initialize verifies credentials and resolves the bot's own user ID, which
// mention stripping and self-message filtering depend on.
func (c *Client) Initialize(ctx context.Context) (string, error) {
	resp, err := c.api.AuthTestContext(ctx)
	if err != nil {
		return "", fmt.Errorf("slack auth test failed: %w", err)
	}
	c.botUserID = resp.UserID
	c.log.Info("slack client initialized", "bot_user_id", resp.UserID, "team", resp.Team)
	return resp.UserID, nil
}

// API exposes the underlying client for the socket-mode runner.
func (c *Client) API() *slackapi.Client {
	return c.api
}

// BotUserID returns the bot's user ID, empty if Initialize failed.
func (c *Client) BotUserID() string {
	return c.botUserID
}

// RemoveBotMention strips the bot's own mention from message text.
func (c *Client) RemoveBotMention(text string) string {
	if c.botUserID == "" {
		return text
	}
	mention := fmt.Sprintf("<@%s>", c.botUserID)
	return strings.TrimSpace(strings.ReplaceAll(text, mention, ""))
}

// AddProcessingReaction marks a message as being worked on.
func (c *Client) AddProcessingReaction(ctx context.Context, channel, timestamp string) error {
	err := c.api.AddReactionContext(ctx, processingReaction, slackapi.NewRefToMessage(channel, timestamp))
	if err != nil {
		c.log.Debug("failed to add processing reaction", "error", err)
	}
	return err
}

// RemoveProcessingReaction clears the processing marker.
func (c *Client) RemoveProcessingReaction(ctx context.Context, channel, timestamp string) error {
	err := c.api.RemoveReactionContext(ctx, processingReaction, slackapi.NewRefToMessage(channel, timestamp))
	if err != nil {
		c.log.Debug("failed to remove processing reaction", "error", err)
	}
	return err
}

// PostMessage posts text (and optional blocks) to a channel, threaded when
// threadTS is set. Returns the message timestamp.
func (c *Client) PostMessage(ctx context.Context, channel, text string, blocks []slackapi.Block, threadTS string) (string, error) {
	opts := []slackapi.MsgOption{
		slackapi.MsgOptionText(text, false),
	}
	if len(blocks) > 0 {
		opts = append(opts, slackapi.MsgOptionBlocks(blocks...))
	}
	if threadTS != "" {
		opts = append(opts, slackapi.MsgOptionTS(threadTS))
	}

	_, ts, err := c.api.PostMessageContext(ctx, channel, opts...)
	if err != nil {
		return "", fmt.Errorf("failed to post message: %w", err)
	}
	return ts, nil
}

// UploadImage attaches a PNG to the channel/thread.
func (c *Client) UploadImage(ctx context.Context, channel, threadTS, title string, img []byte) error {
	_, err := c.api.UploadFileV2Context(ctx, slackapi.UploadFileV2Parameters{
		Reader:          bytes.NewReader(img),
		FileSize:        len(img),
		Filename:        "chart.png",
		Title:           title,
		Channel:         channel,
		ThreadTimestamp: threadTS,
	})
	if err != nil {
		return fmt.Errorf("failed to upload chart: %w", err)
	}
	return nil
}
