// Package observe provides the logging, metrics and tracing primitives used by
// the transport, the caches and the client.
//
// Nothing in here performs API work. The client builds an Observer from
// Config and hands its Logger, Metrics and Tracer to the layers below.
package observe
