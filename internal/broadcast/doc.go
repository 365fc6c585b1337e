// Package broadcast implements the latest-value multicast cell that feeds
// state subscriptions.
//
// A Cell holds exactly one current value plus a version counter. Publishing
// never blocks on subscribers: each subscriber owns a one-slot signal
// channel, so any number of publishes between two wake-ups coalesce into a
// single delivery of the newest value (conflation). A subscriber therefore
// never sees a queue of historical values, only the latest one.
//
// Subscribing replays the current value synchronously, on the subscriber's
// goroutine, before Watch returns. Every later delivery happens on a
// goroutine owned by the subscription, one callback at a time.
//
// Thread-safety model:
//   - Publish, Seed, Load: safe from any goroutine (the engine is the only
//     writer in practice)
//   - Watch: safe from any goroutine, including from inside a callback
//   - Subscription.Cancel: idempotent, safe from any goroutine including
//     the subscription's own callback
package broadcast
