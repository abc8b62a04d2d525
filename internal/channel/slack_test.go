package channel

import (
	"strings"
	"testing"
	"time"
)

func TestSplitSlackMessageShort(t *testing.T) {
	chunks := splitSlackMessage("hello", slackMaxMsgLen)
	if len(chunks) != 1 || chunks[0] != "hello" {
		t.Fatalf("chunks = %v", chunks)
	}
}

func TestSplitSlackMessagePrefersNewlines(t *testing.T) {
	msg := strings.Repeat("line one\n", 600) // ~5400 bytes
	chunks := splitSlackMessage(msg, slackMaxMsgLen)
	if len(chunks) < 2 {
		t.Fatalf("want multiple chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if len(chunk) > slackMaxMsgLen {
			t.Errorf("chunk %d is %d bytes", i, len(chunk))
		}
	}
	if !strings.HasSuffix(chunks[0], "\n") {
		t.Error("first chunk should break at a newline")
	}
	if got := strings.Join(chunks, ""); got != msg {
		t.Error("chunks do not reassemble to the original message")
	}
}

func TestThreadFor(t *testing.T) {
	if got := threadFor("111.222", "333.444"); got != "111.222" {
		t.Errorf("reply thread = %q", got)
	}
	if got := threadFor("", "333.444"); got != "333.444" {
		t.Errorf("top-level thread = %q", got)
	}
}

func TestSlackTime(t *testing.T) {
	got := slackTime("1700000000.123456")
	if got.Unix() != 1700000000 {
		t.Errorf("seconds = %d", got.Unix())
	}
	// Garbage falls back to now rather than the zero time.
	if slackTime("not-a-ts").Before(time.Now().Add(-time.Minute)) {
		t.Error("invalid timestamp should fall back to the current time")
	}
}
