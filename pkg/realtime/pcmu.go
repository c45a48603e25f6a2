package realtime

import "encoding/binary"

const (
	mulawBias = 0x84
	mulawClip = 32635
)

// encodeMulaw converts 16-bit little-endian PCM to G.711 mu-law, one output
// byte per input sample.
func encodeMulaw(pcm []byte) []byte {
	out := make([]byte, len(pcm)/2)
	for i := range out {
		sample := int16(binary.LittleEndian.Uint16(pcm[i*2:]))
		out[i] = mulawByte(sample)
	}
	return out
}

// decodeMulaw converts G.711 mu-law to 16-bit little-endian PCM, two output
// bytes per input byte.
func decodeMulaw(data []byte) []byte {
	out := make([]byte, len(data)*2)
	for i, b := range data {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(mulawSample(b)))
	}
	return out
}

func mulawByte(sample int16) byte {
	s := int32(sample)
	sign := byte(0)
	if s < 0 {
		sign = 0x80
		s = -s
	}
	if s > mulawClip {
		s = mulawClip
	}
	s += mulawBias

	exponent := byte(7)
	for mask := int32(0x4000); exponent > 0 && s&mask == 0; mask >>= 1 {
		exponent--
	}
	mantissa := byte((s >> (exponent + 3)) & 0x0F)
	return ^(sign | exponent<<4 | mantissa)
}

func mulawSample(b byte) int16 {
	b = ^b
	s := int32(b&0x0F)<<3 + mulawBias
	s <<= (b & 0x70) >> 4
	if b&0x80 != 0 {
		return int16(mulawBias - s)
	}
	return int16(s - mulawBias)
}
