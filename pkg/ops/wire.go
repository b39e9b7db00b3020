package ops

import "encoding/binary"

// Wire fields used by the echo and link-test exchanges. Values are packed
// big-endian at fixed offsets in the frame payload.
const (
	roundIndexLen  = 4
	rssiTrailerLen = 2
)

// putRoundIndex writes the 4-byte round index at the start of buf.
func putRoundIndex(buf []byte, index uint32) {
	binary.BigEndian.PutUint32(buf[:roundIndexLen], index)
}

// roundIndex reads the round index echoed back by the peer. ok is false
// when the frame is too short to carry one.
func roundIndex(frame []byte) (index uint32, ok bool) {
	if len(frame) < roundIndexLen {
		return 0, false
	}
	return binary.BigEndian.Uint32(frame[:roundIndexLen]), true
}

// appendRSSITrailer packs rssi after the first n payload bytes and returns
// the extended length. Callers must check capacity first.
func appendRSSITrailer(buf []byte, n int, rssi int16) int {
	binary.BigEndian.PutUint16(buf[n:n+rssiTrailerLen], uint16(rssi))
	return n + rssiTrailerLen
}

// rssiTrailer reads the peer's reported RSSI from the two bytes following
// the round index. ok is false when the frame is too short to carry it.
func rssiTrailer(frame []byte) (rssi int16, ok bool) {
	if len(frame) < roundIndexLen+rssiTrailerLen {
		return 0, false
	}
	return int16(binary.BigEndian.Uint16(frame[roundIndexLen : roundIndexLen+rssiTrailerLen])), true
}
