// Package sim provides simulated amplifiers and seeds that answer on a
// transport.Mock.
//
// The CLI uses them behind --simulate, and the device tests use them as
// the far end of the link:
//
//	amp := sim.NewAmplifier(100, protocol.DefaultFraming())
//	dev, err := device.NewAmplifier(amp.Port(), device.Options{Address: 100})
//
// Responders can be replaced per command to script misbehaving hardware:
//
//	amp.Handle(protocol.CmdAmpSetCurrent, func(p []byte) (protocol.Return, []byte, bool) {
//	    return protocol.RetAmpSetCurrent, []byte{0, 0}, true
//	})
package sim
