package ws

// Conn is a connection as seen by the room registry. Rooms hold Conns by
// reference only; the transport owns their lifecycle.
type Conn interface {
	// ID is an opaque identity assigned by the transport, stable for the
	// connection's lifetime.
	ID() string

	// Send queues one text frame. A non-nil error means the connection
	// should be treated as gone.
	Send(data []byte) error
}
