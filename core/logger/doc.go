// Package logger is a standardized event logging framework for the
// interpreter. Events are newline delimited JSON objects, one entry
// type set per line.
package logger
