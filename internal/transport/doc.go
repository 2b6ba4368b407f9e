// Package transport provides the byte streams the laser link runs over.
//
// A Port is a blocking byte stream with a read timeout plus a way to ask how
// much inbound data is waiting. Two implementations exist:
//
//   - Serial wraps go.bug.st/serial and opens a real device at 8N1
//   - Mock is an in-memory port with scripted replies for tests
//
// # Errors
//
// Reads report two conditions the link layer treats differently:
//
//   - ErrOverrun: the receiver dropped bytes; the read may be retried
//   - ErrTimeout: nothing (or not enough) arrived in time; fatal to a frame read
//
// Use IsOverrun and IsTimeout, or errors.Is, to tell them apart.
//
// # Usage
//
//	port, err := transport.OpenSerial(transport.SerialConfig{Name: "/dev/ttyUSB0"})
//	if err != nil {
//	    return err
//	}
//	defer port.Close()
//
// # Thread Safety
//
// Serial and Mock serialize their own calls, but a frame read is a sequence
// of calls, so one goroutine should own a port at a time.
package transport
