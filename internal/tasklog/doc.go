// Package tasklog implements the append-only attempt log sink. Concurrent
// append requests from workers are serialized through a single writer
// goroutine so entries form one total order and never interleave mid-line.
// Writing is best-effort: failures are logged and never affect task
// processing.
package tasklog
