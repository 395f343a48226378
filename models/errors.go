// SPDX-License-Identifier: EPL-2.0

package models

import (
	"errors"
	"fmt"
)

var (
	// ErrResourceLoad matches every failure to produce a bundle.
	ErrResourceLoad = errors.New("model resource load failed")

	// ErrUnknownKind is returned for a kind outside the known set.
	ErrUnknownKind = errors.New("unknown model kind")

	// ErrCacheClosed is returned by GetOrLoad after Close.
	ErrCacheClosed = errors.New("model cache closed")
)

// LoadError reports which bundle failed to load.
type LoadError struct {
	Kind Kind
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading %s bundle: %v", e.Kind, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Is makes every LoadError match ErrResourceLoad.
func (e *LoadError) Is(target error) bool {
	return target == ErrResourceLoad
}
