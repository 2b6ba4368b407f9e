// Package protocol implements the binary framing used by Precilaser fiber
// amplifiers and seed lasers on their asynchronous serial link.
//
// This package builds command frames, validates and decodes return frames,
// and owns the param-length tables that fix the payload size of every
// command identifier.
//
// # Frame Format
//
// Every frame, in both directions, has the same layout:
//
//	[HEADER...][0x00][ADDR][ID][LEN][PAYLOAD...][SUM][XOR][TERMINATOR...]
//
// Where:
//   - HEADER = instrument-specific prefix, "P" (0x50) for all known devices
//   - 0x00 ADDR = host byte followed by the 8-bit device address
//   - ID = command identifier (Command on the way out, Return on the way in)
//   - LEN = payload length, fixed per identifier by the param-length table
//   - SUM = sum of 0x00..last payload byte, modulo 256
//   - XOR = XOR of the same range (SUM itself is not included)
//   - TERMINATOR = "\r\n"
//
// # Identifiers
//
// Command and Return are distinct byte types that both satisfy Identifier.
// The two sets are closed; unknown codes are rejected on decode with
// ErrUnknownCommand.
//
// # Usage Example - Construction
//
//	param, err := protocol.PutParam(150, 2, binary.BigEndian) // 1.50 A
//	if err != nil {
//	    return err
//	}
//	msg, err := protocol.Encode(protocol.CmdAmpSetCurrent, 100, param, protocol.DefaultFraming())
//	if err != nil {
//	    return err
//	}
//	_, err = port.Write(msg.Bytes())
//
// # Usage Example - Parsing
//
//	msg, err := protocol.Decode(frame, 100, protocol.DefaultFraming())
//	if errors.Is(err, protocol.ErrChecksumMismatch) {
//	    // corrupted on the wire
//	}
//
// # Error Handling
//
// Decode failures are *FrameError values carrying a FrameErrorKind. Each
// kind unwraps to a package sentinel (ErrBadHeader, ErrXorMismatch, ...)
// so callers can use errors.Is.
//
// # Thread Safety
//
// All functions are stateless and Message values are immutable, so
// everything here is safe for concurrent use.
package protocol
