// Package analysis converts blocks of time-domain samples into smoothed
// frequency-domain magnitude data in decibels, the transform behind
// spectrum visualization.
//
// The pipeline is: Blackman window, forward FFT, magnitude with 1/N
// normalization, exponential smoothing against the previous block, then
// conversion to dB. An Analyzer caches its window, FFT plan and scratch
// buffers, so repeated calls at the same size do not allocate.
package analysis
