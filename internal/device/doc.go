// Package device drives the two Precilaser instrument families over a
// link.Link.
//
// # Families
//
// Amplifier covers the fiber amplifier: status, driver current, emission
// enable/disable and power stabilization. Seed covers the seed laser:
// status, temperature setpoint and piezo voltage. Both share one address
// and framing per instance and cache the last status frame they saw,
// whether it was requested or pushed by the instrument.
//
//	amp, err := device.NewAmplifier(port, device.Options{Address: 0})
//	if err != nil {
//	    return err
//	}
//	defer amp.Close()
//
//	if err := amp.SetCurrent(2.5); err != nil {
//	    return err
//	}
//
// # Range Checks
//
// Setpoints are scaled to integer units with math.Round and checked against
// their limits before anything is written. A value out of range returns a
// *RangeError (matching ErrOutOfRange) and the port is never touched.
//
// # Echo Confirmation
//
// Set operations wait for the instrument to echo the value back. An echo
// that differs from the request returns a *ConfirmationError (matching
// ErrConfirmationMismatch). Enable and Disable are write-only; read status
// afterwards to see the result.
//
// # EEPROM
//
// Seed setpoints carry a save flag. SeedOptions.SaveToEEPROM decides
// whether the instrument keeps the value across a power cycle.
package device
