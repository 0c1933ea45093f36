// Package registry holds the client-side list of tracked competitors.
//
// The collection is only ever replaced wholesale by a fresh GET /competitors;
// mutations (delete, scan) are followed by a full refresh rather than local
// patching. Scans are guarded per competitor: a second scan of a competitor
// whose scan is still in flight is refused without contacting the backend.
package registry
