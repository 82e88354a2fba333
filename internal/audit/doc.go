// Package audit buffers security events and hands them to a sink off the
// request path.
//
// The engine decides which events to emit; this package only owns buffering
// and delivery. Sinks provided here write to a channel, to an io.Writer as
// JSON lines, or to a zerolog logger.
package audit
