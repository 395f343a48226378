// SPDX-License-Identifier: EPL-2.0

package vorbis_test

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ik5/audinfer/formats/vorbis"
)

// Example_errorHandling shows how invalid input is reported.
func Example_errorHandling() {
	_, err := vorbis.Decoder{}.Decode(bytes.NewReader([]byte("OggS but not really")))
	fmt.Println(errors.Is(err, vorbis.ErrNotVorbisFile))
	// Output: true
}
