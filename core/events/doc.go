// Package events defines the request events emitted on the event bus.
//
// Available event types:
//   - StateChanged: a request moved between lifecycle states
//   - QuoteReceived: a technician priced the request (initial or revised)
//   - TechnicianBlacklisted: a technician was excluded after two declines
//   - ETAUpdated: the dispatch countdown ticked
//   - LocationUpdated: the technician position was interpolated
//   - Notification: a user-visible message emitted by the engine
package events
