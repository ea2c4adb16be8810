package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const defaultTelegramBaseURL = "https://api.telegram.org"

// Telegram delivers events through the Bot API. Publishes go through a buffered
// channel drained by one worker goroutine; when the buffer is full the event is
// dropped and counted, never waited on.
type Telegram struct {
	token   string
	chatID  string
	baseURL string
	client  *http.Client
	log     zerolog.Logger

	events chan Event
	done   chan struct{}
}

// TelegramOption adjusts construction.
type TelegramOption func(*Telegram)

// WithBaseURL points the sink at a different API host (tests).
func WithBaseURL(url string) TelegramOption {
	return func(t *Telegram) { t.baseURL = url }
}

// NewTelegram starts the delivery worker. Token and chat id come from the caller
// (cmd wires them from the environment).
func NewTelegram(token, chatID string, log zerolog.Logger, opts ...TelegramOption) *Telegram {
	t := &Telegram{
		token:   token,
		chatID:  chatID,
		baseURL: defaultTelegramBaseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     log,
		events:  make(chan Event, 64),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	go t.run()
	return t
}

// Publish queues the event and returns immediately.
func (t *Telegram) Publish(e Event) {
	select {
	case t.events <- e:
	default:
		t.log.Warn().Str("kind", string(e.Kind)).Msg("notify buffer full, dropping event")
	}
}

// Close stops accepting events and waits for the worker to drain the queue.
func (t *Telegram) Close() {
	close(t.events)
	<-t.done
}

func (t *Telegram) run() {
	defer close(t.done)
	for e := range t.events {
		t.send(e)
	}
}

func (t *Telegram) send(e Event) {
	payload, err := json.Marshal(map[string]string{
		"chat_id":    t.chatID,
		"text":       e.String(),
		"parse_mode": "Markdown",
	})
	if err != nil {
		t.log.Error().Err(err).Msg("notify marshal")
		return
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	resp, err := t.client.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.log.Warn().Err(err).Msg("notify send failed")
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.log.Warn().Str("status", resp.Status).Msg("notify rejected by telegram")
	}
}
