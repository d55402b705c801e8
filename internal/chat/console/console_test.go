package console

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/zulandar/agenda/internal/chat"
)

func collect(t *testing.T, ch <-chan chat.InboundMessage) []chat.InboundMessage {
	t.Helper()
	var out []chat.InboundMessage
	timeout := time.After(time.Second)
	for {
		select {
		case m, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, m)
		case <-timeout:
			t.Fatal("timed out waiting for channel close")
		}
	}
}

func TestListen_ReadsLines(t *testing.T) {
	a := New(Opts{In: strings.NewReader("hello\n\n  menu  \n"), Out: &bytes.Buffer{}, From: "5511"})
	if err := a.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	ch, err := a.Listen(context.Background())
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	got := collect(t, ch)
	if len(got) != 2 {
		t.Fatalf("got %d messages, want 2", len(got))
	}
	if got[0].Text != "hello" || got[0].From != "5511" || got[0].Platform != "console" {
		t.Errorf("first = %+v", got[0])
	}
	if got[1].Text != "menu" {
		t.Errorf("second text = %q", got[1].Text)
	}
	if got[0].MessageID == got[1].MessageID {
		t.Error("message ids should be unique")
	}
}

func TestListen_TwiceFails(t *testing.T) {
	a := New(Opts{In: strings.NewReader(""), Out: &bytes.Buffer{}})
	a.Connect(context.Background())
	if _, err := a.Listen(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := a.Listen(context.Background()); err == nil {
		t.Error("expected error on second Listen")
	}
}

func TestSendMessage_NumbersReplies(t *testing.T) {
	var out bytes.Buffer
	a := New(Opts{In: strings.NewReader(""), Out: &out})

	id1, err := a.SendMessage(context.Background(), "x", "first")
	if err != nil {
		t.Fatal(err)
	}
	id2, _ := a.SendMessage(context.Background(), "x", "second")
	if id1 == id2 {
		t.Error("ids should differ")
	}
	if err := a.ReactToMessage(context.Background(), "x", "m", "✅"); err != nil {
		t.Fatal(err)
	}
	want := "[1] first\n[2] second\n  ✅\n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}

func TestQuoteSyntax(t *testing.T) {
	a := New(Opts{In: strings.NewReader(""), Out: &bytes.Buffer{}})
	id, _ := a.SendMessage(context.Background(), "x", "Your reminders")

	msg := a.message("^1 delete 2")
	if msg.Quoted == nil || msg.Quoted.MessageID != id {
		t.Fatalf("Quoted = %+v, want %q", msg.Quoted, id)
	}
	if msg.Text != "delete 2" {
		t.Errorf("Text = %q", msg.Text)
	}

	plain := a.message("^9 nothing")
	if plain.Quoted != nil || plain.Text != "^9 nothing" {
		t.Errorf("unknown quote should pass through, got %+v", plain)
	}
}

func TestClose_Idempotent(t *testing.T) {
	a := New(Opts{In: strings.NewReader(""), Out: &bytes.Buffer{}})
	if err := a.Close(); err != nil {
		t.Fatal(err)
	}
	if err := a.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if _, err := a.SendMessage(context.Background(), "x", "hi"); err == nil {
		t.Error("expected error after Close")
	}
	if err := a.Connect(context.Background()); err == nil {
		t.Error("expected Connect error after Close")
	}
}
