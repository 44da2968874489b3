package nfc

// IOSBackend proxies NFC operations through the iOS host bridge.
//
// The iOS family exposes a reduced capability surface: there is no
// peer-to-peer sharing, no format/erase path, and no programmatic settings
// activity. Calling an operation whose bridge function is absent fails with
// a NotImplementedError, distinct from the generic unsupported error, since
// the platform itself does support NFC. OpenSettings falls back to textual
// guidance through the notification channel.
type IOSBackend struct {
	*bridgeBackend
}

// IOSCapabilities is the function-slot surface a complete iOS host bridge
// exposes.
var IOSCapabilities = []string{
	capIsEnabled,
	capStartScan,
	capStopScan,
	capWrite,
	capMakeReadOnly,
}

// NewIOSBackend builds the iOS bridge backend from the injected environment.
// Availability is frozen at construction.
func NewIOSBackend(env Env) *IOSBackend {
	return &IOSBackend{
		bridgeBackend: newBridgeBackend("ios", env.IOSBridge, env.Notify),
	}
}
