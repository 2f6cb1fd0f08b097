package model

import (
	"github.com/m-mizutani/goerr/v2"
)

// Error tags classify failures across the pipeline. Callers discriminate
// with the Is* helpers instead of matching error strings.
var (
	// TagConfiguration marks bad or missing backend setup. Detected lazily
	// at first use, never retried.
	TagConfiguration = goerr.NewTag("configuration")

	// TagUnavailable marks a network or API failure while embedding. The
	// pipeline does not retry; the caller may re-invoke.
	TagUnavailable = goerr.NewTag("embedding_unavailable")

	// TagInvalidArgument marks caller mistakes (bad topk, empty text).
	// These never reach storage.
	TagInvalidArgument = goerr.NewTag("invalid_argument")

	// TagDimensionMismatch marks a vector whose length disagrees with the
	// collection's established dimension.
	TagDimensionMismatch = goerr.NewTag("dimension_mismatch")
)

var (
	ErrEmptyInput = goerr.New("text is empty", goerr.T(TagInvalidArgument))
)

func IsConfiguration(err error) bool {
	return goerr.HasTag(err, TagConfiguration)
}

func IsUnavailable(err error) bool {
	return goerr.HasTag(err, TagUnavailable)
}

func IsInvalidArgument(err error) bool {
	return goerr.HasTag(err, TagInvalidArgument)
}

func IsDimensionMismatch(err error) bool {
	return goerr.HasTag(err, TagDimensionMismatch)
}
