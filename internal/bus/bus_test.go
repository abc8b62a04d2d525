package bus

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"roobot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func TestPublishSubscribe(t *testing.T) {
	b := New(10, testLogger())
	defer b.Close()

	b.Publish(domain.InboundEvent{Channel: "slack", SenderID: "U1", Content: "hello"})

	select {
	case ev := <-b.Subscribe():
		if ev.SenderID != "U1" || ev.Content != "hello" {
			t.Errorf("unexpected event: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestOutboundRouting(t *testing.T) {
	b := New(10, testLogger())
	defer b.Close()

	got := make(chan domain.OutboundMessage, 1)
	b.OnOutbound("slack", func(msg domain.OutboundMessage) { got <- msg })

	b.SendOutbound(domain.OutboundMessage{Channel: "slack", ChatID: "C1", Content: "hi"})

	select {
	case msg := <-got:
		if msg.ChatID != "C1" {
			t.Errorf("unexpected chat id: %s", msg.ChatID)
		}
	case <-time.After(time.Second):
		t.Fatal("outbound not routed")
	}
}

func TestOutboundUnknownChannelNoPanic(t *testing.T) {
	b := New(10, testLogger())
	defer b.Close()
	b.SendOutbound(domain.OutboundMessage{Channel: "nope", Content: "x"})
}

func TestPublishAfterClose(t *testing.T) {
	b := New(10, testLogger())
	b.Close()
	b.Publish(domain.InboundEvent{Channel: "slack"}) // must not panic
}
