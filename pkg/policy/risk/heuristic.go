package risk

import (
	"net"
	"strings"
)

// DeviceTrust scores device risk from context attributes set by the caller's
// device-fingerprinting layer.
//
// Context keys read: "device.trusted" (bool), "device.known" (bool).
type DeviceTrust struct{}

// Name returns "device".
func (DeviceTrust) Name() string { return "device" }

// Score returns low risk for trusted devices, moderate risk for known but
// untrusted devices, and high risk for unknown devices.
func (DeviceTrust) Score(ctx map[string]any) float64 {
	if trusted, ok := boolKey(ctx, "device.trusted"); ok && trusted {
		return 0.1
	}
	if known, ok := boolKey(ctx, "device.known"); ok && known {
		return 0.4
	}
	return 0.7
}

// LocationTrust scores location risk from the request source address and an
// optional allow-list of countries.
//
// Context keys read: "request.ip" (string), "geo.country" (string).
type LocationTrust struct {
	// AllowedCountries lists ISO country codes considered low risk. Empty
	// means country is not used.
	AllowedCountries []string
}

// Name returns "location".
func (LocationTrust) Name() string { return "location" }

// Score treats loopback and private addresses as low risk, allow-listed
// countries as low risk, and everything else as elevated.
func (l LocationTrust) Score(ctx map[string]any) float64 {
	if ipStr, ok := stringKey(ctx, "request.ip"); ok {
		if ip := net.ParseIP(ipStr); ip != nil {
			if ip.IsLoopback() || ip.IsPrivate() {
				return 0.05
			}
		}
	}

	if len(l.AllowedCountries) > 0 {
		country, ok := stringKey(ctx, "geo.country")
		if !ok {
			return 0.6
		}
		for _, c := range l.AllowedCountries {
			if strings.EqualFold(c, country) {
				return 0.2
			}
		}
		return 0.8
	}

	return 0.4
}

// StaticSignal returns a fixed sub-score. Useful as a configuration-driven
// baseline and in tests.
type StaticSignal struct {
	SignalName string
	Value      float64
}

// Name returns the configured signal name.
func (s StaticSignal) Name() string { return s.SignalName }

// Score returns the fixed value regardless of context.
func (s StaticSignal) Score(map[string]any) float64 { return s.Value }

func boolKey(ctx map[string]any, key string) (bool, bool) {
	v, ok := ctx[key]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

func stringKey(ctx map[string]any, key string) (string, bool) {
	v, ok := ctx[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
