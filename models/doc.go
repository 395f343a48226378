// SPDX-License-Identifier: EPL-2.0

// Package models describes the model bundles the inference layer runs on
// and owns their lifetime.
//
// A [Bundle] is an opaque, immutable set of capabilities produced by a
// [Loader]. The capabilities a task needs are reached through type
// assertions on the views [Synthesizer], [Seq2Seq] and [CTC].
//
// [Cache] loads every [Kind] at most once per process and shares the
// result between all callers:
//
//	cache := models.NewCache(loader, models.WithLogger(log))
//	b, err := cache.GetOrLoad(ctx, models.KindWhisper)
//	if errors.Is(err, models.ErrResourceLoad) {
//	    // the next call retries
//	}
//
// Bundles are never evicted. [Cache.Close] releases bundles that hold
// external resources at shutdown.
package models
