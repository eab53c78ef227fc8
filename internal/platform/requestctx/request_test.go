package requestctx

import (
	"context"
	"testing"
)

func TestRoleFromContextRoundTrip(t *testing.T) {
	ctx := WithRole(context.Background(), "ADMIN")
	if got := RoleFromContext(ctx); got != "ADMIN" {
		t.Fatalf("RoleFromContext = %q, want %q", got, "ADMIN")
	}
}

func TestRoleFromContextEmpty(t *testing.T) {
	if got := RoleFromContext(context.Background()); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}

func TestLocaleFromContextRoundTrip(t *testing.T) {
	ctx := WithLocale(WithRole(context.Background(), "ADMIN"), "pl-PL")
	if got := LocaleFromContext(ctx); got != "pl-PL" {
		t.Fatalf("LocaleFromContext = %q, want %q", got, "pl-PL")
	}
	if got := RoleFromContext(ctx); got != "ADMIN" {
		t.Fatalf("RoleFromContext = %q, want %q", got, "ADMIN")
	}
}

func TestNilContexts(t *testing.T) {
	if got := LocaleFromContext(nil); got != "" {
		t.Fatalf("expected empty locale for nil context, got %q", got)
	}
	ctx := WithRole(nil, "ADMIN")
	if got := RoleFromContext(ctx); got != "ADMIN" {
		t.Fatalf("RoleFromContext = %q, want %q", got, "ADMIN")
	}
}
