// Package oversample provides streaming integer-factor up- and
// downsampling for render nodes that process at a multiple of the graph
// rate, such as waveshapers running their curve at 2x or 4x.
//
// Both directions use linear-phase Kaiser-windowed sinc FIR filters
// with history carried across blocks, so feeding consecutive blocks is
// equivalent to feeding one long signal. Filter state is rebuilt only
// when the channel count or factor changes.
package oversample
