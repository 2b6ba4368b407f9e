package protocol

// Checksum returns the additive checksum of data: the byte sum modulo 256.
// An empty slice yields 0.
func Checksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return sum
}

// XORCheck returns the running XOR of data. An empty slice yields 0.
func XORCheck(data []byte) byte {
	var x byte
	for _, b := range data {
		x ^= b
	}
	return x
}
