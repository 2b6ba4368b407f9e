// Package status decodes the fixed-layout status payloads that amplifiers
// and seeds return.
//
// Offsets, widths and scales are fixed by the instrument firmware:
//
//	Amplifier (64 bytes)            Seed (40 bytes)
//	 0     stable flag               0  setpoint temperature  /1000 °C
//	 3-4   system status register    4  setpoint current      mA
//	 4     driver unlock register   15  diode temperature     /1000 °C
//	 7-12  driver currents  /100 A  18  actual temperature    /1000 °C
//	28-37  photodiode values        23  actual current        mA
//	36-39  photodiode status bytes  27  run hours, 29 run minutes
//	42-49  temperatures     /100 °C 30  wavelength (4 bytes) /10000 nm
//	                                34  piezo voltage         /100 V
//	                                36  power, 38 emission flag
//
// Some fields overlap (system status and driver unlock share byte 4; the
// last photodiode value shares bytes with the photodiode status). Both
// views are decoded.
//
// A payload of the wrong size returns a *DecodeError matching
// ErrWrongLength.
package status
