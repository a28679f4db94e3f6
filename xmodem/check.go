package xmodem

import "github.com/sigurn/crc16"

// crc16Table is the XMODEM/CCITT table: polynomial 0x1021, initial value 0,
// no input/output reflection, no final XOR.
var crc16Table = crc16.MakeTable(crc16.CRC16_XMODEM)

// Checksum computes the classic XMODEM 8-bit checksum: the sum of payload
// bytes taken mod 256.
func Checksum(payload []byte) uint8 {
	var sum byte
	for _, b := range payload {
		sum += b
	}
	return sum
}

// CRC16 computes the CRC-16/XMODEM of payload (poly 0x1021, init 0, no
// reflection, no final XOR).
func CRC16(payload []byte) uint16 {
	return crc16.Checksum(payload, crc16Table)
}

// compute returns the trailer check value for payload under the check type
// implied by v. Only the low byte is significant for checksum variants.
func compute(v Variant, payload []byte) uint16 {
	if v.IsCRC() {
		return CRC16(payload)
	}
	return uint16(Checksum(payload))
}

// appendCheck appends the big-endian trailer bytes for check onto buf,
// writing 1 byte for checksum variants and 2 for CRC variants.
func appendCheck(v Variant, buf []byte, check uint16) []byte {
	if v.IsCRC() {
		return append(buf, byte(check>>8), byte(check))
	}
	return append(buf, byte(check))
}
