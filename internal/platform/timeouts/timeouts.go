// Package timeouts defines shared timeout constants used across services.
package timeouts

import "time"

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long servers wait for in-flight requests during
// graceful shutdown.
const Shutdown = 5 * time.Second

// HealthProbe caps one gRPC health check round trip.
const HealthProbe = time.Second

// Synthesis is the default upper bound for one speech synthesis call.
const Synthesis = 60 * time.Second

// ObjectStorage is the default upper bound for one bucket request.
const ObjectStorage = 30 * time.Second
