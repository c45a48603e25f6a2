package capture

import (
	"fmt"

	resampling "github.com/tphakala/go-audio-resampling"
)

// Resample converts 16-bit little-endian PCM from srcRate to dstRate.
// Channel count is preserved.
func Resample(pcm []byte, srcRate, dstRate, channels int) ([]byte, error) {
	if srcRate == dstRate {
		out := make([]byte, len(pcm))
		copy(out, pcm)
		return out, nil
	}

	rs, err := resampling.New(&resampling.Config{
		InputRate:  float64(srcRate),
		OutputRate: float64(dstRate),
		Channels:   channels,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("capture: create resampler: %w", err)
	}

	// int16 LE bytes -> normalized float64 samples
	n := len(pcm) / 2
	input := make([]float64, n)
	for i := 0; i < n; i++ {
		sample := int16(pcm[i*2]) | int16(pcm[i*2+1])<<8
		input[i] = float64(sample) / 32768.0
	}

	output, err := rs.Process(input)
	if err != nil {
		return nil, fmt.Errorf("capture: resample: %w", err)
	}

	out := make([]byte, len(output)*2)
	for i, s := range output {
		v := int16(s * 32767.0)
		if s > 1.0 {
			v = 32767
		} else if s < -1.0 {
			v = -32768
		}
		out[i*2] = byte(v)
		out[i*2+1] = byte(v >> 8)
	}
	return out, nil
}
