// SPDX-License-Identifier: EPL-2.0

package mp3_test

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ik5/audinfer/audio"
	"github.com/ik5/audinfer/formats/mp3"
)

// Example_registry shows how the MP3 decoder is looked up by upload format.
func Example_registry() {
	reg := audio.NewRegistry()
	reg.Register("mp3", mp3.Decoder{})

	_, ok := reg.Get(".MP3")
	fmt.Println(ok)
	// Output: true
}

// Example_errorHandling shows how invalid input is reported.
func Example_errorHandling() {
	_, err := mp3.Decoder{}.Decode(bytes.NewReader([]byte("not an mp3 file")))
	fmt.Println(errors.Is(err, mp3.ErrNotMP3File))
	// Output: true
}
