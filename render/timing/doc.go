// Package timing implements a single-writer seqlock over a shared
// memory region, used to publish playback progress from the render side
// to observers without blocking either party.
//
// The region layout is six little-endian 64-bit words: a magic tag, a
// sequence counter and four payload fields. The writer increments the
// sequence to an odd value, stores the payload, then increments it
// again; a reader that observes an odd or changed sequence discards its
// snapshot and retries a bounded number of times.
package timing
