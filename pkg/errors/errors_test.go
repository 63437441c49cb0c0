package errors

import (
	"context"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	err := NewConnectionError("news.example.com", 119, nil)
	want := "[connection] dial news.example.com:119: failed to connect to news.example.com:119"
	if err.Error() != want {
		t.Fatalf("got %q, want %q", err.Error(), want)
	}
}

func TestErrorIsMatchesByType(t *testing.T) {
	a := NewProtocolError("bad status line", nil)
	b := NewProtocolError("different message", nil)
	if !a.Is(b) {
		t.Fatalf("expected two protocol errors to match via Is")
	}

	c := NewIOError("read", nil)
	if a.Is(c) {
		t.Fatalf("protocol error should not match an io error")
	}
}

func TestCommandTooLongError(t *testing.T) {
	line := "GROUP " + string(make([]byte, 600))
	err := NewCommandTooLongError(line)
	if err.Type != ErrorTypeValidation {
		t.Fatalf("expected validation error, got %s", err.Type)
	}
	if err.Op != "command-too-long" {
		t.Fatalf("expected op command-too-long, got %s", err.Op)
	}
}

func TestIsContextTimeout(t *testing.T) {
	if !IsContextTimeout(context.DeadlineExceeded) {
		t.Fatalf("expected context.DeadlineExceeded to be a context timeout")
	}
	if IsContextTimeout(context.Canceled) {
		t.Fatalf("context.Canceled should not be a context timeout")
	}
}
