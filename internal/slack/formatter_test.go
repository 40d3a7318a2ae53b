package slack

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAI_Slack_EscapeMrkdwn(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "ampersand",
			input:    "AT&T revenue",
			expected: "AT&amp;T revenue",
		},
		{
			name:     "angle brackets",
			input:    "total < 100 and > 50",
			expected: "total &lt; 100 and &gt; 50",
		},
		{
			name:     "mention-like text",
			input:    "<@U123456>",
			expected: "&lt;@U123456&gt;",
		},
		{
			name:     "plain text untouched",
			input:    "daily sales trend",
			expected: "daily sales trend",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.expected, EscapeMrkdwn(tt.input))
		})
	}
}

func TestAI_Slack_SanitizeErrorMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		errMsg string
		want   string
	}{
		{
			name:   "rate limit error",
			errMsg: "rate_limit_error: too many requests",
			want:   "I'm currently experiencing high demand. Please try again in a moment.",
		},
		{
			name:   "rate limit 429",
			errMsg: "HTTP 429: rate limit exceeded",
			want:   "I'm currently experiencing high demand. Please try again in a moment.",
		},
		{
			name:   "connection refused",
			errMsg: "dial tcp: connection refused",
			want:   "I'm having trouble connecting to the data service. Please try again in a moment.",
		},
		{
			name:   "EOF error",
			errMsg: "unexpected EOF while reading",
			want:   "I'm having trouble connecting to the data service. Please try again in a moment.",
		},
		{
			name:   "error with internal details",
			errMsg: "Error occurred\nRequest-ID: abc123\nhttps://api.example.com/error\nActual error message",
			want:   "Sorry, I encountered an error: Error occurred Actual error message",
		},
		{
			name:   "error with only internal details",
			errMsg: "Request-ID: abc123\nhttps://api.example.com/error",
			want:   "Sorry, I encountered an error. Please try again.",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, SanitizeErrorMessage(tt.errMsg))
		})
	}
}

func TestAI_Slack_IsHelpRequest(t *testing.T) {
	t.Parallel()

	require.True(t, isHelpRequest("help"))
	require.True(t, isHelpRequest("  Start "))
	require.True(t, isHelpRequest(""))
	require.True(t, isHelpRequest("Hello"))
	require.False(t, isHelpRequest("show me daily sales"))
	require.False(t, isHelpRequest("help me find the top customers"))
}
