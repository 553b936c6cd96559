package net

import (
	"context"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"
)

func TestRequestID(t *testing.T) {
	if RequestID(context.Background()) != "" {
		t.Fatalf("empty ctx should have no id")
	}
	ctx := context.WithValue(context.Background(), chimw.RequestIDKey, "req-42")
	if got := RequestID(ctx); got != "req-42" {
		t.Fatalf("RequestID = %q", got)
	}
}
