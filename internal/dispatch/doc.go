// Package dispatch resolves the first command-line token to a registered
// action, runs it once, and converts its result into a process exit status.
//
// The registry is built once at startup and never mutated afterwards. Every
// failure path, including a panicking handler, ends at the dispatch boundary
// with a single diagnostic on stderr and a documented exit status.
package dispatch
