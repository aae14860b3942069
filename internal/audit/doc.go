// Package audit delivers flow audit events asynchronously.
//
// # Components
//
//   - [Event] is one audit record: type, flow id, user id, outcome, metadata.
//   - [Sink] consumers: channel, JSON lines writer, structured logger, fan-out, no-op.
//   - [Dispatcher] is a buffered relay with drop-if-full or block-if-full behavior.
//
// # Architecture boundaries
//
// The package does not decide which events exist. Event names and the points at
// which they are emitted belong to the engine.
package audit
