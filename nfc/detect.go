package nfc

import (
	"regexp"
	"strconv"
	"strings"
)

// Env describes the ambient runtime the client runs in. All environment
// signals are injected explicitly so capability detection stays deterministic
// and testable; nothing in this package reads global state.
type Env struct {
	// UserAgent is the host user-agent string, the platform/version oracle.
	UserAgent string

	// Radio is the direct reader constructor. Its presence is the sole
	// support signal for the radio backend; nil means unsupported.
	Radio Radio

	// AndroidBridge is the host-injected bridge object for the Android
	// family, nil when not running inside a native wrapper.
	AndroidBridge Bridge

	// IOSBridge is the host-injected bridge object for the iOS family.
	IOSBridge Bridge

	// Notify presents a short textual message to the user through whatever
	// synchronous notification surface the host offers. May be nil.
	Notify func(message string)
}

// PlatformFacts are the derived capability facts for one platform family.
// They are recomputed on each query, never stored.
//
// Version is nil exactly when IsPlatform is false or the version string could
// not be parsed; an unparseable version also forces SupportsNativeRadio to
// false.
type PlatformFacts struct {
	IsPlatform           bool     `json:"isPlatform"`
	Version              *float64 `json:"version"`
	SupportsNativeRadio  bool     `json:"supportsNativeRadio"`
	SupportsBrowserRadio bool     `json:"supportsBrowserRadio"`
	RequiresNative       bool     `json:"requiresNative,omitempty"` // iOS family only, always true there
}

// Minimum version thresholds, fixed per platform family.
const (
	minAndroidNativeRadio = 4  // native radio available from this major version
	minIOSTagReading      = 11 // native tag reading available from this major version
	minEngineBuildRadio   = 89 // embedded engine build carrying the browser radio
)

var (
	androidTokenRe   = regexp.MustCompile(`(?i)\bandroid\b`)
	androidVersionRe = regexp.MustCompile(`(?i)\bandroid[ /](\d+)(?:\.(\d+))?`)
	iosTokenRe       = regexp.MustCompile(`(?i)\b(iphone|ipad|ipod)\b`)
	iosVersionRe     = regexp.MustCompile(`(?i)\bos (\d+)(?:_(\d+))?(?:_\d+)?`)
	engineBuildRe    = regexp.MustCompile(`(?i)\bchrome/(\d+)`)
	wrappedShellRe   = regexp.MustCompile(`(?i); ?wv\)|\bwebview\b`)
)

// DetectAndroid computes capability facts for the Android family from a
// user-agent string.
//
// The version token uses dot-delimited pairs; major and minor combine into a
// single decimal (major + minor/10).
func DetectAndroid(userAgent string) PlatformFacts {
	facts := PlatformFacts{}
	if !androidTokenRe.MatchString(userAgent) {
		return facts
	}
	facts.IsPlatform = true

	if m := androidVersionRe.FindStringSubmatch(userAgent); m != nil {
		v := combineVersion(m[1], m[2])
		facts.Version = &v
		facts.SupportsNativeRadio = v >= minAndroidNativeRadio
	}
	facts.SupportsBrowserRadio = engineBuild(userAgent) >= minEngineBuildRadio
	return facts
}

// DetectIOS computes capability facts for the iOS family from a user-agent
// string. The family always requires the native bridge path; there is no
// browser radio there.
//
// The version token uses an underscore-delimited triplet; major and minor
// combine into a single decimal (major + minor/10).
func DetectIOS(userAgent string) PlatformFacts {
	facts := PlatformFacts{RequiresNative: true}
	if !iosTokenRe.MatchString(userAgent) {
		return facts
	}
	facts.IsPlatform = true

	if m := iosVersionRe.FindStringSubmatch(userAgent); m != nil {
		v := combineVersion(m[1], m[2])
		facts.Version = &v
		facts.SupportsNativeRadio = v >= minIOSTagReading
	}
	return facts
}

// IsWrappedShell reports whether the runtime looks hosted inside a wrapped
// native shell rather than a plain browser. The markers are distinct from
// ordinary browser signals: the Android embedded-view token, an explicit
// "WebView" product, or an AppleWebKit engine with no browser product token.
func IsWrappedShell(userAgent string) bool {
	if wrappedShellRe.MatchString(userAgent) {
		return true
	}
	if strings.Contains(userAgent, "AppleWebKit") && !strings.Contains(userAgent, "Safari") {
		return true
	}
	return false
}

// combineVersion folds major and minor components into one decimal value.
func combineVersion(major, minor string) float64 {
	maj, err := strconv.Atoi(major)
	if err != nil {
		return 0
	}
	if minor == "" {
		return float64(maj)
	}
	min, err := strconv.Atoi(minor)
	if err != nil {
		return float64(maj)
	}
	return float64(maj) + float64(min)/10
}

// engineBuild extracts the embedded browser engine build number, 0 when
// absent.
func engineBuild(userAgent string) int {
	m := engineBuildRe.FindStringSubmatch(userAgent)
	if m == nil {
		return 0
	}
	build, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return build
}
