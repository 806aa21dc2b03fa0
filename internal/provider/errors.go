package provider

import "errors"

// Sentinel errors for the provider package.
var (
	// ErrUnknownProvider is returned when a requested provider name does not
	// match any registered provider, even fuzzily.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrAllProvidersFailed is returned when every candidate in a race was
	// exhausted without producing a link.
	ErrAllProvidersFailed = errors.New("all providers failed")
)
