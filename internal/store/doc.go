// Package store persists WiFi scan and speed test results in SQLite.
//
// All results live in one network_results table keyed by BSSID, the
// hardware identifier of an access point. Writes are upserts: scanning
// or testing the same device twice refreshes its single row rather
// than appending. Scan writes and speed test writes each own their
// column set, so a speed test does not clobber scan data and vice
// versa.
//
// created_at is recorded in UTC by the store at write time to keep
// timestamps consistent across callers.
package store
