// Package logging implements dbobj.Logger.
//
// ConsoleLogger writes diagnostics to stderr so that reports on stdout stay
// machine-readable; NullLogger discards everything and is used in tests.
package logging
