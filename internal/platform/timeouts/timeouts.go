// Package timeouts defines shared timeout constants used across the server.
// Centralizing these values prevents drift between components and makes the
// durations discoverable.
package timeouts

import "time"

// ReadHeader limits how long the HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long the HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second

// CleanupDelay is how long a finished session's rows linger before the
// deferred purge runs. Clients use the window to fetch final scores.
const CleanupDelay = 35 * time.Second

// SessionIdle is how long a session may go without updates before the
// expiry sweep marks it expired.
const SessionIdle = 2 * time.Hour

// ExpirySweep is the interval between idle-session sweeps.
const ExpirySweep = 10 * time.Minute
