// Package http exposes the notes catalog, the notes update pipeline and the
// admin session over JSON HTTP.
//
// Every response uses the envelope {"statusCode", "message", "data"}. Error
// messages are localized from the Accept-Language header. Mutating routes
// require the role cookie set by the admin login route.
package http
