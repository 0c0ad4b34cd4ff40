// Package twin is the device side of a device twin session.
//
// A Session requests the twin document, patches reported properties and
// delivers desired property pushes. Requests are correlated with their
// responses by a random request id, so several may be in flight at once.
package twin
