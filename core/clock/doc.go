// Package clock abstracts time for the engine.
//
// Clock is the minimal surface the engine needs (Now and AfterFunc). Real
// delegates to the time package while Manual only moves when Advance is
// called, firing due callbacks synchronously and in deadline order.
//
// Scheduler groups timers under a string key (the request id) so all of a
// request's deferred work can be cancelled as a set.
package clock
