package services_test

import (
	"context"
	"testing"

	"lexideck/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-1")
	ctx = services.WithRecordID(ctx, "abc_de")
	ctx = services.WithResourceKind(ctx, "image")

	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-1" {
		t.Fatalf("unexpected run id: %v %v", id, ok)
	}
	if id, ok := services.RecordIDFromContext(ctx); !ok || id != "abc_de" {
		t.Fatalf("unexpected record id: %v %v", id, ok)
	}
	if kind, ok := services.ResourceKindFromContext(ctx); !ok || kind != "image" {
		t.Fatalf("unexpected kind: %v %v", kind, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := services.WithRecordID(context.Background(), "")
	if _, ok := services.RecordIDFromContext(ctx); ok {
		t.Fatal("expected no record id value")
	}
}
