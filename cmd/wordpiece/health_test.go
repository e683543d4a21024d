package main

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/example/go-wordpiece/internal/server"
	"github.com/example/go-wordpiece/internal/tokenizer"
)

func TestHealth_ProbesServer(t *testing.T) {
	ts := httptest.NewServer(server.NewHandler(tokenizer.New(1)))
	defer ts.Close()

	out, err := runCLI(t, "", "health", "--addr", strings.TrimPrefix(ts.URL, "http://"))
	if err != nil {
		t.Fatalf("health: %v", err)
	}

	if out != "ok\n" {
		t.Errorf("health output = %q; want %q", out, "ok\n")
	}
}

func TestHealth_FailsWhenUnreachable(t *testing.T) {
	ts := httptest.NewServer(server.NewHandler(tokenizer.New(1)))
	addr := strings.TrimPrefix(ts.URL, "http://")
	ts.Close()

	if _, err := runCLI(t, "", "health", "--addr", addr); err == nil {
		t.Fatal("expected error for closed server")
	}
}
