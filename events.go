// events.go: discovery event notifications
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package pluginhost

import (
	"runtime"
	"time"
)

// DiscoveryEventType classifies discovery notifications.
type DiscoveryEventType string

const (
	// EventPluginRegistered fires when discovery or Register inserts a
	// plugin into the table.
	EventPluginRegistered DiscoveryEventType = "plugin_registered"

	// EventPluginFound fires when discovery encounters a manifest whose
	// plugin name is already registered and reuses the known instance.
	EventPluginFound DiscoveryEventType = "plugin_found"

	// EventCandidateSkipped fires when a candidate directory is dropped:
	// unreadable or malformed manifest, or an incompatible sys spec.
	EventCandidateSkipped DiscoveryEventType = "candidate_skipped"
)

// DiscoveryEvent describes one discovery outcome.
type DiscoveryEvent struct {
	Type DiscoveryEventType `json:"type"`
	Name string             `json:"name,omitempty"`
	Path string             `json:"path,omitempty"`
	Err  error              `json:"error,omitempty"`
	At   time.Time          `json:"at"`
}

// DiscoveryHandler receives discovery events. Handlers run synchronously
// on the discovering goroutine, in registration order, so they observe
// events in walk order.
type DiscoveryHandler func(DiscoveryEvent)

// OnDiscovery registers a handler for subsequent discovery runs and
// registrations.
func (s *System[F]) OnDiscovery(handler DiscoveryHandler) {
	s.handlers = append(s.handlers, handler)
}

// emitDiscovery delivers an event to every handler. A panicking handler
// is logged with its stack and does not disturb the walk or the other
// handlers.
func (s *System[F]) emitDiscovery(event DiscoveryEvent) {
	for _, handler := range s.handlers {
		func() {
			defer recoverHandlerPanic(s.logger)()
			handler(event)
		}()
	}
}

// recoverHandlerPanic returns a recovery function that logs panic
// details including the stack trace; meant to be deferred around host
// callbacks.
func recoverHandlerPanic(logger Logger) func() {
	return func() {
		if r := recover(); r != nil {
			buf := make([]byte, 64*1024)
			n := runtime.Stack(buf, false)
			logger.Error("panic recovered in discovery handler",
				"panic", r,
				"stack", string(buf[:n]))
		}
	}
}
