// Package iot holds the values shared by every topic codec in the device link:
// the recoverable error sentinels and the service status codes carried in
// response topics.
//
// The codec packages underneath it are:
//   - diag: classified logging and precondition-violation hooks
//   - topic: the template table, bounded renderer and parsing primitives
//   - hub: device twin, telemetry, cloud-to-device and direct method topics
//   - provisioning: zero-touch registration topics and operation state
//
// # Memory Model
//
// The codec never allocates. Output is written into caller buffers and every
// value produced by a parser is a sub-slice of the caller's input. Callers
// must keep the received topic and payload alive for as long as they use a
// parsed response.
//
// # Error Channels
//
// Recoverable conditions are returned as errors and compared with errors.Is:
//
//	n, err := client.TwinGetPublishTopic(rid, buf[:])
//	if errors.Is(err, iot.ErrInsufficientBufferSize) {
//	    // grow the buffer
//	}
//
// Contract breaches (empty device id, nil request id) are reported through
// diag.Diagnostics instead and end the call with ErrInvalidArgument.
package iot
