// Package sinks implements progress consumers: a structured log sink and a
// terminal progress bar.
package sinks
