// Package link turns a transport.Port into a request/response channel to
// one addressed instrument.
//
// # Frame Synchronization
//
// The instrument talks whenever it likes, and a port opened mid-stream
// starts inside a frame. Reader hunts for the header byte and confirms the
// address pair that follows. The rest of the frame is sized from the
// param-length table, not the length byte, so noise on that byte cannot
// swallow the frames behind it:
//
//	... garbage ... P 00 64 B7 28 <40 bytes> SUM XOR \r\n
//	                ^ header  ^ id ^ len
//
// A candidate header whose lookahead does not match is skipped one byte at
// a time; the lookahead bytes are rescanned, so a real frame starting
// inside them is still found. Frames for other addresses are skipped the
// same way.
//
// # Dispatch
//
// Every decoded frame passes through a Dispatcher. Devices bind return
// identifiers to state slots:
//
//	var amp link.Slot[status.Amplifier]
//	link.Bind(l.Dispatcher(), protocol.RetAmpStatus, &amp, func(p []byte) (status.Amplifier, error) {
//	    return status.DecodeAmplifier(p, order)
//	})
//
// # Exchanges
//
//	msg, err := l.Request(protocol.CmdAmpSetCurrent, payload, protocol.RetAmpSetCurrent)
//
// Request drains buffered input (dispatching it), writes the command, then
// reads until the wanted return arrives. Unrelated frames read on the way
// are dispatched and skipped. There is no command-level retry; the read
// timeout of the port bounds the wait.
//
// # Thread Safety
//
// Link serializes exchanges with a mutex. Reader and Dispatcher on their
// own are not meant to be shared, except that Slot values may be loaded
// from any goroutine.
package link
