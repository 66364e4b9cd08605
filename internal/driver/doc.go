// Package driver defines the capability surface the service needs from a
// Logix controller driver.
//
// A Driver is one open session to one controller. It is not safe for
// concurrent use: the service serialises every call onto a single worker
// goroutine. Drivers report per-tag outcomes in Result.Status using the
// controller's status text ("Success" on success) and return a Go error only
// when the call itself failed (socket errors, protocol faults).
//
// Real drivers are registered by name with Register and looked up with
// Lookup, the same way database/sql drivers are. The simulated driver in
// package simulated needs no registration.
package driver
