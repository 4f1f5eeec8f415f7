package exam

import "errors"

var (
	// ErrInvalidQuotaSpec is returned when a quota has negative counts,
	// unknown kinds, or requests nothing at all.
	ErrInvalidQuotaSpec = errors.New("invalid quota spec")

	// ErrBackendUnavailable marks a failed or timed-out inference call.
	// Generation and evaluation recover from it locally.
	ErrBackendUnavailable = errors.New("inference backend unavailable")

	// ErrUnparsableResponse marks a backend reply from which no tier
	// could recover a single item.
	ErrUnparsableResponse = errors.New("unparsable backend response")

	// ErrQuotaUnsatisfiable is reported alongside a partial result when the
	// source text cannot support the requested number of items.
	ErrQuotaUnsatisfiable = errors.New("quota unsatisfiable from source text")

	// ErrInvalidRecord is returned by QuestionRecord.Validate.
	ErrInvalidRecord = errors.New("invalid question record")
)
