// SPDX-License-Identifier: EPL-2.0

package mp3

import (
	"encoding/binary"
	"fmt"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/ik5/audinfer/audio"
)

// go-mp3 always renders 16-bit little-endian stereo PCM.
const (
	outputChannels = 2
	bytesPerSample = 2
	maxEmptyReads  = 8
)

// mp3Reader is the part of gomp3.Decoder the source needs, to allow testing.
type mp3Reader interface {
	Read([]byte) (int, error)
	SampleRate() int
}

type source struct {
	dec        mp3Reader
	sampleRate int
	channels   int
	buf        []byte
	carry      []byte // odd trailing byte from a short read
}

func (s *source) SampleRate() int { return s.sampleRate }
func (s *source) Channels() int   { return s.channels }
func (s *source) Close() error    { return nil }
func (s *source) BufSize() int    { return cap(s.buf) / bytesPerSample }

func (s *source) ReadSamples(dst []float32) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}

	need := len(dst)*bytesPerSample - len(s.carry)
	if cap(s.buf) < len(dst)*bytesPerSample {
		s.buf = make([]byte, len(dst)*bytesPerSample)
	}
	s.buf = s.buf[:len(dst)*bytesPerSample]
	pending := copy(s.buf, s.carry)
	s.carry = s.carry[:0]

	var (
		n   int
		err error
	)
	for range maxEmptyReads {
		n, err = s.dec.Read(s.buf[pending : pending+need])
		if n > 0 || err != nil {
			break
		}
	}

	total := pending + n
	samples := total / bytesPerSample
	if rem := total % bytesPerSample; rem != 0 {
		s.carry = append(s.carry, s.buf[total-rem:total]...)
	}

	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(s.buf[i*bytesPerSample:]))
		dst[i] = float32(v) / 32768.0
	}

	if err != nil && err != io.EOF {
		return samples, fmt.Errorf("mp3 frame: %w", err)
	}
	if samples == 0 && err == nil {
		// the decoder kept returning nothing without signaling the end
		return 0, io.ErrNoProgress
	}

	return samples, err
}

// Decoder reads MPEG-1/2 Layer III streams through
// github.com/hajimehoshi/go-mp3. Output is always stereo.
type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotMP3File, err)
	}

	return &source{
		dec:        dec,
		sampleRate: dec.SampleRate(),
		channels:   outputChannels,
		buf:        make([]byte, 8192),
	}, nil
}
