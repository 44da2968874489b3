package nfc

// AndroidBackend proxies NFC operations through the Android host bridge.
//
// The Android family exposes the full capability surface: enabled check,
// scan start/stop, write, read-only locking, format, erase, peer-to-peer
// sharing, and a real settings activity.
type AndroidBackend struct {
	*bridgeBackend
}

// AndroidCapabilities is the function-slot surface a complete Android host
// bridge exposes. Individual hosts may still omit slots; those operations
// then fail with a NotImplementedError.
var AndroidCapabilities = []string{
	capIsEnabled,
	capOpenSettings,
	capStartScan,
	capStopScan,
	capWrite,
	capMakeReadOnly,
	capFormat,
	capErase,
	capShare,
	capStopSharing,
}

// NewAndroidBackend builds the Android bridge backend from the injected
// environment. Availability is frozen at construction: the host bridge
// object must be present and expose at least the enabled check and the scan
// start.
func NewAndroidBackend(env Env) *AndroidBackend {
	return &AndroidBackend{
		bridgeBackend: newBridgeBackend("android", env.AndroidBridge, env.Notify),
	}
}
