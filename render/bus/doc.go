// Package bus provides the multi-channel audio block exchanged between
// render nodes.
//
// A Bus owns a fixed number of frames and a fixed channel capacity, both
// decided at construction. The number of active channels can change from
// block to block without reallocating; inactive channels keep their
// backing storage. All samples are float64.
package bus
