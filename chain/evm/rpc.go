package evm

import (
	"errors"
	"fmt"
	"strings"
)

// URLSchemePreference defines URL scheme preferences for RPC connections.
type URLSchemePreference int

const (
	URLSchemePreferenceNone URLSchemePreference = iota
	URLSchemePreferenceWS
	URLSchemePreferenceHTTP
)

// String returns the manifest spelling of the preference.
func (u URLSchemePreference) String() string {
	switch u {
	case URLSchemePreferenceWS:
		return "ws"
	case URLSchemePreferenceHTTP:
		return "http"
	default:
		return "none"
	}
}

// URLSchemePreferenceFromString converts a string to URLSchemePreference.
func URLSchemePreferenceFromString(s string) (URLSchemePreference, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ws":
		return URLSchemePreferenceWS, nil
	case "http":
		return URLSchemePreferenceHTTP, nil
	case "", "none":
		return URLSchemePreferenceNone, nil
	default:
		return URLSchemePreferenceNone, fmt.Errorf("invalid URL scheme preference: %s", s)
	}
}

// RPC represents a single RPC endpoint configuration.
type RPC struct {
	Name               string
	WSURL              string
	HTTPURL            string
	PreferredURLScheme URLSchemePreference
}

// ToEndpoint returns the URL to dial. The preferred scheme wins when it is set; otherwise the
// websocket URL is used when present and the HTTP URL as a fallback.
func (r RPC) ToEndpoint() (string, error) {
	switch r.PreferredURLScheme {
	case URLSchemePreferenceHTTP:
		if r.HTTPURL == "" {
			return "", fmt.Errorf("rpc %q prefers http but has no http url", r.Name)
		}

		return r.HTTPURL, nil
	case URLSchemePreferenceWS:
		if r.WSURL == "" {
			return "", fmt.Errorf("rpc %q prefers ws but has no ws url", r.Name)
		}

		return r.WSURL, nil
	case URLSchemePreferenceNone:
	}

	if r.WSURL != "" {
		return r.WSURL, nil
	}
	if r.HTTPURL != "" {
		return r.HTTPURL, nil
	}

	return "", errors.New("rpc " + r.Name + " has no url")
}

// RPCConfig is a configuration for a chain.
// It contains a chain selector and a list of RPCs
type RPCConfig struct {
	ChainSelector uint64
	RPCs          []RPC
}
