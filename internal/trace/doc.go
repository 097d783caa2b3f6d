// Package trace is the structured log of a checking run.
//
// A Tracer receives begin/end events for spans (driver, pass, module and
// declaration scopes) and point events carrying a short message. The level
// decides which scopes are recorded:
//
//	off     nothing
//	error   point events reported as failures only
//	phase   driver and pass spans
//	detail  plus one span per checked module
//	debug   plus declaration-level events
//
// Tracers travel through context.Context (WithTracer, FromContext) and are
// safe for concurrent use.
package trace
