package locator

// Conn is the external transmit-connection contract consumed by the
// discovery core (spec §1 Non-goals: "the core consumes interfaces exposing
// send, supports(kind), is_multicast, is_ssm, is_loopback, is_nearby").
// Concrete implementations live in internal/transport; this package only
// needs to compare and hold references to them.
type Conn interface {
	// Supports reports whether this connection can transmit to locators of
	// the given kind.
	Supports(kind Kind) bool
	// IsMulticast reports whether this connection is bound to a multicast
	// group (as opposed to being merely capable of sending to one).
	IsMulticast() bool
	// IsLoopback reports whether this connection is the loopback transport.
	IsLoopback() bool
}

// XLocator pairs a locator with the transmit connection chosen to reach it
// (spec §3 "XLocator").
type XLocator struct {
	Locator Locator
	Conn    Conn
}

func (x XLocator) String() string {
	return x.Locator.String()
}

// Equal reports whether x and other address the same (kind, address, port)
// over the same connection — the AddressSet de-duplication key (spec §3:
// "no duplicate (kind, address, port, conn)").
func (x XLocator) Equal(other XLocator) bool {
	return x.Locator.Equal(other.Locator) && x.Conn == other.Conn
}
