// Package sinks implements progress consumers.
package sinks
