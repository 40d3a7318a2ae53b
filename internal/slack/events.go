package slack

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jellydator/ttlcache/v3"
	slackapi "github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
)

const seenEventsMaxAge = 10 * time.Minute

// EventHandler receives Slack events from either transport, deduplicates
// redeliveries, and dispatches messages to the processor. Each message is
// handled in its own goroutine; the handler tracks in-flight work so shutdown
// can drain it.
type EventHandler struct {
	client    *Client
	processor *Processor
	log       *slog.Logger

	seen      *ttlcache.Cache[string, struct{}]
	inFlight  sync.WaitGroup
	accepting atomic.Bool

	// baseCtx outlives individual HTTP requests so in-flight resolutions are
	// not cancelled when the triggering webhook connection closes.
	baseCtx context.Context
}

// NewEventHandler creates an EventHandler.
func NewEventHandler(ctx context.Context, client *Client, processor *Processor, log *slog.Logger) *EventHandler {
	h := &EventHandler{
		client:    client,
		processor: processor,
		log:       log,
		seen: ttlcache.New[string, struct{}](
			ttlcache.WithTTL[string, struct{}](seenEventsMaxAge),
		),
		baseCtx: ctx,
	}
	h.accepting.Store(true)
	return h
}

// Start runs the dedupe cache eviction until ctx is done.
func (h *EventHandler) Start(ctx context.Context) {
	go h.seen.Start()
	go func() {
		<-ctx.Done()
		h.seen.Stop()
	}()
}

// StopAcceptingNew stops dispatch of new events and returns a function that
// blocks until in-flight messages finish.
func (h *EventHandler) StopAcceptingNew() func() {
	h.accepting.Store(false)
	return h.inFlight.Wait
}

// HandleSocketMode consumes the socket-mode event stream until ctx is done.
func (h *EventHandler) HandleSocketMode(ctx context.Context, client *socketmode.Client) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-client.Events:
			if !ok {
				return nil
			}
			switch evt.Type {
			case socketmode.EventTypeConnecting:
				h.log.Info("connecting to slack with socket mode")
			case socketmode.EventTypeConnectionError:
				h.log.Warn("socket mode connection failed, retrying")
			case socketmode.EventTypeConnected:
				h.log.Info("connected to slack with socket mode")
			case socketmode.EventTypeEventsAPI:
				apiEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
				if !ok {
					continue
				}
				if evt.Request != nil {
					client.Ack(*evt.Request)
				}
				h.dispatchCallback(apiEvent)
			}
		}
	}
}

// HandleHTTP serves the Events API webhook: signature verification, URL
// verification challenges, and callback dispatch. The event is acknowledged
// immediately; resolution continues in the background.
func (h *EventHandler) HandleHTTP(w http.ResponseWriter, r *http.Request, signingSecret string) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	verifier, err := slackapi.NewSecretsVerifier(r.Header, signingSecret)
	if err != nil {
		http.Error(w, "failed to create verifier", http.StatusBadRequest)
		return
	}
	if _, err := verifier.Write(body); err != nil {
		http.Error(w, "verification failed", http.StatusInternalServerError)
		return
	}
	if err := verifier.Ensure(); err != nil {
		h.log.Warn("slack signature verification failed", "error", err)
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	event, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		http.Error(w, "failed to parse event", http.StatusBadRequest)
		return
	}

	switch event.Type {
	case slackevents.URLVerification:
		var challenge slackevents.ChallengeResponse
		if err := json.Unmarshal(body, &challenge); err != nil {
			http.Error(w, "failed to parse challenge", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		if _, err := w.Write([]byte(challenge.Challenge)); err != nil {
			h.log.Error("failed to write challenge response", "error", err)
		}
	case slackevents.CallbackEvent:
		w.WriteHeader(http.StatusOK)
		h.dispatchCallback(event)
	default:
		w.WriteHeader(http.StatusOK)
	}
}

// dispatchCallback routes an Events API callback to the processor. DMs are
// answered directly; channel messages only when the bot is mentioned.
func (h *EventHandler) dispatchCallback(event slackevents.EventsAPIEvent) {
	if !h.accepting.Load() {
		h.log.Info("shutting down, ignoring new event")
		return
	}

	switch ev := event.InnerEvent.Data.(type) {
	case *slackevents.AppMentionEvent:
		MessagesReceivedTotal.WithLabelValues("channel_mention").Inc()
		h.dispatchMessage(Message{
			Channel:         ev.Channel,
			User:            ev.User,
			Text:            ev.Text,
			Timestamp:       ev.TimeStamp,
			ThreadTimestamp: ev.ThreadTimeStamp,
			IsChannel:       true,
		})
	case *slackevents.MessageEvent:
		// Only direct messages; channel traffic arrives as AppMentionEvent.
		if ev.ChannelType != "im" {
			return
		}
		if ev.SubType != "" || ev.BotID != "" || ev.User == h.client.BotUserID() {
			MessagesIgnoredTotal.WithLabelValues("self_or_subtype").Inc()
			return
		}
		MessagesReceivedTotal.WithLabelValues("dm").Inc()
		h.dispatchMessage(Message{
			Channel:         ev.Channel,
			User:            ev.User,
			Text:            ev.Text,
			Timestamp:       ev.TimeStamp,
			ThreadTimestamp: ev.ThreadTimeStamp,
			IsChannel:       false,
		})
	}
}

func (h *EventHandler) dispatchMessage(msg Message) {
	messageKey := fmt.Sprintf("%s:%s", msg.Channel, msg.Timestamp)
	if h.seen.Has(messageKey) || h.processor.HasResponded(messageKey) {
		MessagesIgnoredTotal.WithLabelValues("duplicate").Inc()
		h.log.Debug("ignoring duplicate event", "message_key", messageKey)
		return
	}
	h.seen.Set(messageKey, struct{}{}, ttlcache.DefaultTTL)

	h.inFlight.Add(1)
	go func() {
		defer h.inFlight.Done()
		h.processor.ProcessMessage(h.baseCtx, msg, messageKey)
	}()
}
