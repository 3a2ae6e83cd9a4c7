// Package flatten turns nested message values into flat rows of scalar
// columns. The column set is derived once per topic from the message
// definition and reused for every message, so no per-message type
// inspection happens on the hot path.
package flatten
