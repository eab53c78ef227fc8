// Package server composes the notes runtime and owns the HTTP and gRPC health
// listener lifecycle.
package server
