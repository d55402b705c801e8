package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestChunk(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		maxLen int
		want   []string
	}{
		{"short", "hello", 10, []string{"hello"}},
		{"exact", "0123456789", 10, []string{"0123456789"}},
		{"newline break", "line one\nline two", 12, []string{"line one", "line two"}},
		{"hard split", "abcdefghij", 4, []string{"abcd", "efgh", "ij"}},
		{"no mid-rune split", "ééé", 3, []string{"é", "é", "é"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Chunk(tt.text, tt.maxLen)
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("Chunk = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestChunk_DefaultLimit(t *testing.T) {
	text := strings.Repeat("x", DefaultMaxLen+1)
	got := Chunk(text, 0)
	if len(got) != 2 || len(got[0]) != DefaultMaxLen {
		t.Errorf("Chunk lengths = %d chunks", len(got))
	}
}

func TestSend_ReturnsLastChunkID(t *testing.T) {
	m := NewMockAdapter()
	m.SetMaxLen(5)
	id, err := Send(context.Background(), m, "u1", "hello\nworld")
	if err != nil {
		t.Fatal(err)
	}
	if m.SentCount() != 2 {
		t.Fatalf("SentCount = %d, want 2", m.SentCount())
	}
	if last, _ := m.LastSent(); last.MessageID != id || last.Text != "world" {
		t.Errorf("last = %+v, id = %q", last, id)
	}
}

func TestSend_Error(t *testing.T) {
	m := NewMockAdapter()
	m.SetSendError(errors.New("boom"))
	if _, err := Send(context.Background(), m, "u1", "hi"); err == nil {
		t.Error("expected error")
	}
}

func TestMockAdapter_Lifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewMockAdapter()
	ch, err := m.Listen(ctx)
	if err != nil {
		t.Fatal(err)
	}
	m.SimulateInbound(InboundMessage{From: "u1", Text: "hi", MessageID: "in-1"})
	select {
	case msg := <-ch:
		if msg.Text != "hi" || msg.Timestamp.IsZero() {
			t.Errorf("msg = %+v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("no inbound message")
	}

	if err := m.ReactToMessage(ctx, "u1", "in-1", "✅"); err != nil {
		t.Fatal(err)
	}
	if r := m.Reactions(); len(r) != 1 || r[0].Emoji != "✅" {
		t.Errorf("Reactions = %+v", r)
	}

	if err := m.Close(); err != nil {
		t.Fatal(err)
	}
	if err := m.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
	if _, err := m.SendMessage(ctx, "u1", "x"); err == nil {
		t.Error("send after close should fail")
	}
	if err := m.Connect(ctx); err == nil {
		t.Error("connect after close should fail")
	}
}
