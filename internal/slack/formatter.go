package slack

import (
	"log/slog"
	"strings"

	slackapi "github.com/slack-go/slack"
	slackutil "github.com/takara2314/slack-go-util"
)

// mrkdwnEscaper applies the entity escapes Slack requires for &, < and > in
// outgoing mrkdwn text. Unescaped angle brackets in interpolated values would
// otherwise be parsed as links or user mentions.
var mrkdwnEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
)

// EscapeMrkdwn escapes a dynamic value for safe interpolation into an
// outgoing mrkdwn message.
func EscapeMrkdwn(s string) string {
	return mrkdwnEscaper.Replace(s)
}

// ConvertMarkdownToBlocks converts reply text to Slack blocks with expand set
// so long results are not truncated behind "see more". Returns nil when
// conversion fails; callers fall back to plain text.
func ConvertMarkdownToBlocks(text string, log *slog.Logger) []slackapi.Block {
	converted, err := slackutil.ConvertMarkdownTextToBlocks(text)
	if err != nil {
		log.Debug("failed to convert markdown to blocks, using plain text", "error", err)
		return nil
	}

	result := make([]slackapi.Block, 0, len(converted))
	for _, block := range converted {
		if block.BlockType() == slackapi.MBTSection {
			section := block.(*slackapi.SectionBlock)
			section.Expand = true
			result = append(result, section)
			continue
		}
		result = append(result, block)
	}
	return result
}

// SanitizeErrorMessage converts raw error messages to user-friendly messages
func SanitizeErrorMessage(errMsg string) string {
	if strings.Contains(errMsg, "429") || strings.Contains(errMsg, "rate_limit_error") || strings.Contains(errMsg, "rate limit") {
		return "I'm currently experiencing high demand. Please try again in a moment."
	}

	if strings.Contains(errMsg, "connection closed") ||
		strings.Contains(errMsg, "EOF") ||
		strings.Contains(errMsg, "broken pipe") ||
		strings.Contains(errMsg, "connection refused") ||
		strings.Contains(errMsg, "connection reset") {
		return "I'm having trouble connecting to the data service. Please try again in a moment."
	}

	// Remove internal details like Request-IDs and URLs, keep the core message.
	lines := strings.Split(errMsg, "\n")
	var cleanLines []string
	for _, line := range lines {
		if strings.Contains(line, "Request-ID:") ||
			strings.Contains(line, "https://") ||
			strings.Contains(line, "POST \"") {
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		cleanLines = append(cleanLines, line)
	}

	if len(cleanLines) > 0 {
		return "Sorry, I encountered an error: " + strings.Join(cleanLines, " ")
	}

	return "Sorry, I encountered an error. Please try again."
}
