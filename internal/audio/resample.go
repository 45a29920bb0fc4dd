package audio

import "math"

// ToCanonical downmixes interleaved PCM to mono and resamples it to 16 kHz.
func ToCanonical(pcm []int16, sampleRate, channels int) []int16 {
	return resampleLinear(downmix(pcm, channels), sampleRate, CanonicalSampleRate)
}

func downmix(pcm []int16, channels int) []int16 {
	if channels <= 1 {
		out := make([]int16, len(pcm))
		copy(out, pcm)
		return out
	}
	frames := len(pcm) / channels
	out := make([]int16, frames)
	for i := 0; i < frames; i++ {
		var sum int32
		for c := 0; c < channels; c++ {
			sum += int32(pcm[i*channels+c])
		}
		out[i] = int16(sum / int32(channels))
	}
	return out
}

func resampleLinear(in []int16, from, to int) []int16 {
	if from == to || len(in) == 0 {
		return in
	}
	outLen := int(int64(len(in)) * int64(to) / int64(from))
	if outLen == 0 {
		outLen = 1
	}
	out := make([]int16, outLen)
	step := float64(from) / float64(to)
	for i := range out {
		pos := float64(i) * step
		j := int(pos)
		if j >= len(in) {
			j = len(in) - 1
		}
		a := float64(in[j])
		b := a
		if j+1 < len(in) {
			b = float64(in[j+1])
		}
		out[i] = clampPCM(math.Round(a + (b-a)*(pos-float64(j))))
	}
	return out
}

func clampPCM(v float64) int16 {
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}
