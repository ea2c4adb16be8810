package notify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestTelegramDeliversEvent(t *testing.T) {
	var mu sync.Mutex
	var bodies []map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		mu.Lock()
		bodies = append(bodies, body)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tg := NewTelegram("token", "chat42", zerolog.Nop(), WithBaseURL(srv.URL))
	tg.Publish(Event{Kind: EventOrderFilled, Symbol: "AAPL", Text: "BUY 100 @ 200.00", At: time.Now()})
	tg.Close()

	mu.Lock()
	defer mu.Unlock()
	if len(bodies) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(bodies))
	}
	if bodies[0]["chat_id"] != "chat42" {
		t.Fatalf("wrong chat id: %q", bodies[0]["chat_id"])
	}
	if !strings.Contains(bodies[0]["text"], "AAPL") {
		t.Fatalf("text missing symbol: %q", bodies[0]["text"])
	}
}

func TestTelegramNeverBlocksWhenSinkIsDown(t *testing.T) {
	blocked := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-blocked // hold every request open
	}))
	defer func() {
		close(blocked)
		srv.Close()
	}()

	tg := NewTelegram("token", "chat", zerolog.Nop(), WithBaseURL(srv.URL))
	done := make(chan struct{})
	go func() {
		// Far more events than the buffer holds; Publish must drop, not wait.
		for i := 0; i < 500; i++ {
			tg.Publish(Event{Kind: EventSignal, Symbol: "X", Text: "t"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Publish blocked trading path")
	}
}
