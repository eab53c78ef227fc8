// Package requestctx carries per-request caller attributes through context.
package requestctx

import "context"

type roleContextKey struct{}

type localeContextKey struct{}

// WithRole stores the caller role resolved from the request.
func WithRole(ctx context.Context, role string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, roleContextKey{}, role)
}

// RoleFromContext returns the caller role stored in context.
func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(roleContextKey{}).(string)
	return value
}

// WithLocale stores the negotiated response locale.
func WithLocale(ctx context.Context, locale string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, localeContextKey{}, locale)
}

// LocaleFromContext returns the negotiated locale, or "" when unset.
func LocaleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(localeContextKey{}).(string)
	return value
}
