// Package scanner discovers and parses the object definition files of one
// application.
//
// Scanning is two-phase. Phase one reads and parses every .sql file below
// tables/ and functions/, recording parse and tag errors per file without
// stopping. Phase two populates a fresh registry from everything that parsed,
// so duplicates are reported the same way whatever order the files were
// visited in.
package scanner
