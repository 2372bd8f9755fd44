package aisbridge

import "errors"

// Sentinel error kinds returned (wrapped with fmt.Errorf("...: %w", ...)) by the
// various stages of the pipeline. Callers classify failures with errors.Is instead
// of string matching.
var (
	// ErrConfigInvalid is returned when a loaded configuration fails validation.
	ErrConfigInvalid = errors.New("aisbridge: invalid configuration")

	// ErrUpstreamTransport is returned when the upstream stream connection fails
	// or closes unexpectedly.
	ErrUpstreamTransport = errors.New("aisbridge: upstream transport error")

	// ErrUpstreamDecode is returned when an upstream frame cannot be decoded into
	// a VesselRecord. It is recoverable; the caller should count and continue.
	ErrUpstreamDecode = errors.New("aisbridge: upstream decode error")

	// ErrEncoderUnsupported is returned when a VesselRecord cannot be encoded,
	// either because its Kind is not recognised or it lacks a usable MMSI.
	ErrEncoderUnsupported = errors.New("aisbridge: record not encodable")

	// ErrPeerWrite is returned internally when a write to a broadcast peer fails.
	// It never escapes the broadcast server; it only drives eviction.
	ErrPeerWrite = errors.New("aisbridge: peer write failed")

	// ErrBindFailure wraps the logged error when a sink fails to bind or open
	// its socket; the sink's Start reports the failure by returning false.
	ErrBindFailure = errors.New("aisbridge: bind failure")
)
