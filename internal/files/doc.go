// Package files groups the file access layers of dbobj.
//
//   - filesystem: OS and in-memory providers with atomic writes
//   - scanner: discovers and parses the object definition files of an application
package files
