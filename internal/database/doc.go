// Package database provides the local SQLite store of the scoperival client.
//
// The store keeps two things:
//   - the durable credential entry (a single "token" key), which is the only
//     client state that survives a restart
//   - the scan journal, a local record of every scan this client triggered
//
// SQLite is used through modernc.org/sqlite, a CGO-free driver, so the
// client stays a single static binary.
package database
