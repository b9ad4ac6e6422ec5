// Package checksum implements the Internet checksum (RFC 1071) used by the
// IPv4 and TCP headers.
package checksum

// Sum returns the one's complement of the one's complement sum of data taken
// as big-endian 16-bit words. An odd trailing byte is padded with a zero byte.
// The result is meant to be stored big-endian in the checksum field.
//
// One's complement addition commutes with byte swapping, so summing
// big-endian words and storing big-endian puts the same two bytes on the
// wire as summing native-order words and storing natively.
func Sum(data []byte) uint16 {
	var sum uint64
	for i := 0; i < len(data)-1; i += 2 {
		sum += uint64(data[i])<<8 | uint64(data[i+1])
	}
	if len(data)%2 == 1 {
		sum += uint64(data[len(data)-1]) << 8
	}
	for (sum >> 16) > 0 {
		sum = (sum & 0xffff) + (sum >> 16)
	}
	return ^uint16(sum)
}

// Valid reports whether data, with its checksum field populated, folds to
// 0xffff.
func Valid(data []byte) bool {
	return Sum(data) == 0
}
