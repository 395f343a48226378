// SPDX-License-Identifier: EPL-2.0

package audiotest

import (
	"bytes"
	"encoding/binary"
	"math"
)

// WAV16 builds a canonical 44 byte header PCM 16-bit WAV container from
// interleaved int16 samples.
func WAV16(sampleRate, channels int, samples []int16) []byte {
	buf := new(bytes.Buffer)
	dataSize := uint32(len(samples) * 2)

	buf.WriteString("RIFF")
	_ = binary.Write(buf, binary.LittleEndian, 36+dataSize)
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	_ = binary.Write(buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(buf, binary.LittleEndian, uint16(1))
	_ = binary.Write(buf, binary.LittleEndian, uint16(channels))
	_ = binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	_ = binary.Write(buf, binary.LittleEndian, uint32(sampleRate*channels*2))
	_ = binary.Write(buf, binary.LittleEndian, uint16(channels*2))
	_ = binary.Write(buf, binary.LittleEndian, uint16(16))

	buf.WriteString("data")
	_ = binary.Write(buf, binary.LittleEndian, dataSize)
	for _, s := range samples {
		_ = binary.Write(buf, binary.LittleEndian, s)
	}

	return buf.Bytes()
}

// SineWAV16 renders frames of a sine wave on every channel as a WAV container.
func SineWAV16(sampleRate, channels, frames int, frequency float64) []byte {
	samples := make([]int16, 0, frames*channels)
	for i := range frames {
		v := int16(math.Sin(2*math.Pi*frequency*float64(i)/float64(sampleRate)) * 16000)
		for range channels {
			samples = append(samples, v)
		}
	}

	return WAV16(sampleRate, channels, samples)
}
