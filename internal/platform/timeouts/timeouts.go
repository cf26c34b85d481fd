// Package timeouts defines timeout defaults shared by the registry server
// and its clients.
package timeouts

import "time"

// GRPCRequest caps a single client call, dial and health wait included.
const GRPCRequest = 5 * time.Second

// Shutdown bounds graceful stop before in-flight calls are cut off.
const Shutdown = 5 * time.Second
