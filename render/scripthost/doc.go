// Package scripthost runs user script callbacks on behalf of render
// nodes. The render side hands over an input block and receives an
// output block; how the callback actually runs depends on the host.
//
// OfflineHost invokes callbacks inline, for offline rendering where
// the caller already is the control thread. RealtimeHost bridges to a
// dedicated control goroutine and bounds how long the render side will
// wait: a slow, missing or panicking callback yields silence for that
// block, never a stalled render thread.
package scripthost
