// SPDX-License-Identifier: EPL-2.0

package audinfer

import (
	"github.com/ik5/audinfer/audio"
	"github.com/ik5/audinfer/formats/aiff"
	"github.com/ik5/audinfer/formats/mp3"
	"github.com/ik5/audinfer/formats/vorbis"
	"github.com/ik5/audinfer/formats/wav"
)

// DefaultRegistry returns a registry with every bundled decoder, keyed by
// the usual file extensions.
func DefaultRegistry() *audio.Registry {
	reg := audio.NewRegistry()

	reg.Register("wav", wav.Decoder{})
	reg.Register("wave", wav.Decoder{})
	reg.Register("mp3", mp3.Decoder{})
	reg.Register("ogg", vorbis.Decoder{})
	reg.Register("oga", vorbis.Decoder{})
	reg.Register("aiff", aiff.Decoder{})
	reg.Register("aif", aiff.Decoder{})

	return reg
}
