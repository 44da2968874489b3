package nfc

import "context"

// Backend is the uniform operation contract implemented by the radio backend
// and both bridge backends. The Client binds exactly one backend at
// construction and forwards every operation to it.
//
// Contract notes, uniform across implementations:
//
//   - IsEnabled never fails; it degrades to {enabled:false} whenever
//     availability cannot be determined.
//   - StopScanSession is idempotent and never fails, even when the underlying
//     stop call is unsupported.
//   - Operations that are meaningless for a backend fail loudly with a
//     classified error; they never silently succeed.
type Backend interface {
	// Name identifies the backend ("radio", "android", "ios").
	Name() string

	// IsEnabled reports whether the radio is currently available.
	IsEnabled(ctx context.Context) Status

	// OpenSettings opens the platform NFC settings surface, or presents
	// textual guidance when the platform has none.
	OpenSettings(ctx context.Context) error

	// StartScanSession arms tag detection. It returns once the listen has
	// been armed, not once a tag is found. A previous live session is torn
	// down first.
	StartScanSession(ctx context.Context, opts ScanOptions) error

	// StopScanSession ends the current scan session, if any.
	StopScanSession(ctx context.Context)

	// Write replaces the tag content with the given message.
	Write(ctx context.Context, opts WriteOptions) error

	// MakeReadOnly permanently locks the tag against writes.
	MakeReadOnly(ctx context.Context) error

	// Format prepares the tag with an empty message.
	Format(ctx context.Context) error

	// Erase clears the tag content.
	Erase(ctx context.Context) error

	// Share offers a message over peer-to-peer sharing.
	Share(ctx context.Context, opts ShareOptions) error

	// StopSharing withdraws a shared message.
	StopSharing(ctx context.Context) error

	// AddListener registers fn for an event name in this backend's registry
	// and returns a handle removing exactly this registration.
	AddListener(event EventName, fn ListenerFunc) *Handle

	// RemoveAllListeners clears the backend's registry for every event name.
	RemoveAllListeners()
}
