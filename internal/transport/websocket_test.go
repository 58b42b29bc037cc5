package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/skypro1111/interview-service/internal/audio"
	"github.com/skypro1111/interview-service/internal/protocol"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeLiveServer acknowledges setup, echoes one audio chunk back as model
// audio in a binary frame, then sends a turn completion.
func fakeLiveServer(t *testing.T, gotKey chan<- string) *httptest.Server {
	upgrader := websocket.Upgrader{}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey <- r.URL.Query().Get("key")

		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer ws.Close()

		var setup protocol.SetupMessage
		if err := ws.ReadJSON(&setup); err != nil {
			t.Errorf("read setup: %v", err)
			return
		}
		if setup.Setup.Model == "" {
			t.Error("Expected model in setup")
		}
		ws.WriteMessage(websocket.TextMessage, []byte(`{"setupComplete": {}}`))

		var input protocol.RealtimeInputMessage
		if err := ws.ReadJSON(&input); err != nil {
			// Client closed without streaming.
			return
		}

		chunk := input.RealtimeInput.MediaChunks[0]
		reply, _ := json.Marshal(map[string]any{
			"serverContent": map[string]any{
				"modelTurn": map[string]any{
					"parts": []any{map[string]any{"inlineData": map[string]any{"mimeType": "audio/pcm;rate=24000", "data": chunk.Data}}},
				},
				"outputTranscription": map[string]any{"text": "Hi"},
			},
		})
		ws.WriteMessage(websocket.BinaryMessage, reply)
		ws.WriteMessage(websocket.TextMessage, []byte(`{"serverContent": {"turnComplete": true}}`))

		// Wait for the client to close.
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func TestDialSendReceive(t *testing.T) {
	gotKey := make(chan string, 1)
	srv := fakeLiveServer(t, gotKey)
	defer srv.Close()

	dialer := NewDialer(Config{
		Endpoint: "ws" + strings.TrimPrefix(srv.URL, "http"),
		APIKey:   "secret",
	}, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := dialer.Dial(ctx, protocol.NewSetup(protocol.SetupParams{Model: "test-model", VoiceName: "Puck"}))
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	if key := <-gotKey; key != "secret" {
		t.Errorf("Expected api key in query, got %q", key)
	}

	msg, err := conn.Receive()
	if err != nil {
		t.Fatalf("Receive setupComplete failed: %v", err)
	}
	if msg.SetupComplete == nil {
		t.Fatal("Expected setupComplete")
	}

	packet := audio.NewWirePacket([]float32{0.1, 0.2, 0.3})
	if err := conn.Send(packet); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	msg, err = conn.Receive()
	if err != nil {
		t.Fatalf("Receive content failed: %v", err)
	}
	events := msg.Events()
	if len(events) != 2 || events[0].Kind != protocol.EventAudio || events[0].Data != packet.Payload {
		t.Errorf("Unexpected events: %+v", events)
	}

	msg, err = conn.Receive()
	if err != nil {
		t.Fatalf("Receive turnComplete failed: %v", err)
	}
	if !msg.ServerContent.TurnComplete {
		t.Error("Expected turnComplete")
	}
}

func TestReceiveAfterClose(t *testing.T) {
	gotKey := make(chan string, 1)
	srv := fakeLiveServer(t, gotKey)
	defer srv.Close()

	dialer := NewDialer(Config{Endpoint: "ws" + strings.TrimPrefix(srv.URL, "http")}, testLogger())
	conn, err := dialer.Dial(context.Background(), protocol.NewSetup(protocol.SetupParams{Model: "m"}))
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}

	if _, err := conn.Receive(); err != nil {
		t.Fatalf("Receive failed: %v", err)
	}

	if err := conn.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if err := conn.Close(); err != nil {
		t.Errorf("Second close failed: %v", err)
	}

	if _, err := conn.Receive(); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
}

func TestDialFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	dialer := NewDialer(Config{Endpoint: "ws" + strings.TrimPrefix(srv.URL, "http")}, testLogger())
	_, err := dialer.Dial(context.Background(), protocol.NewSetup(protocol.SetupParams{Model: "m"}))
	if err == nil {
		t.Fatal("Expected dial error")
	}
	if !strings.Contains(err.Error(), "403") {
		t.Errorf("Expected status in error, got %v", err)
	}
}
