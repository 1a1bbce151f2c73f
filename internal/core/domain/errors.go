package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	// Access to a conversation owned by someone else also reports ErrNotFound.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmptyCorpus indicates a question was asked before any document was indexed.
	ErrEmptyCorpus = errors.New("no documents indexed")

	// ErrExternalService indicates an embedding or generation call failed after retries.
	// The caller may retry later; no state was mutated.
	ErrExternalService = errors.New("external service error")

	// ErrGenerationFailed indicates retrieval succeeded but answer synthesis did not.
	ErrGenerationFailed = errors.New("answer generation failed")

	// ErrDimensionMismatch indicates a vector whose length differs from the index dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrModelMismatch indicates the embedding model differs from the one the index was built with.
	// The index must be cleared and rebuilt.
	ErrModelMismatch = errors.New("embedding model mismatch")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrRateLimited indicates the provider rejected a request due to rate limits.
	ErrRateLimited = errors.New("rate limited")
)

// ErrorClass groups errors by what the user should do about them.
type ErrorClass int

// Error classes.
const (
	// ClassUnknown is an unexpected failure.
	ClassUnknown ErrorClass = iota

	// ClassInput means the request itself must change.
	ClassInput

	// ClassNotFound means the referenced entity does not exist for this user.
	ClassNotFound

	// ClassRetry means the operation may succeed if repeated later.
	ClassRetry

	// ClassOperator means configuration must be fixed before anything will work.
	ClassOperator
)

// Classify maps an error to its ErrorClass.
// Configuration errors win over transient ones when both are wrapped.
func Classify(err error) ErrorClass {
	switch {
	case err == nil:
		return ClassUnknown
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrEmptyCorpus):
		return ClassInput
	case errors.Is(err, ErrNotFound):
		return ClassNotFound
	case errors.Is(err, ErrDimensionMismatch), errors.Is(err, ErrModelMismatch),
		errors.Is(err, ErrLLMUnavailable), errors.Is(err, ErrEmbeddingUnavailable):
		return ClassOperator
	case errors.Is(err, ErrExternalService), errors.Is(err, ErrGenerationFailed), errors.Is(err, ErrRateLimited):
		return ClassRetry
	default:
		return ClassUnknown
	}
}

// Hint returns a short user-facing instruction for the class.
func (c ErrorClass) Hint() string {
	switch c {
	case ClassInput:
		return "check your input and try again"
	case ClassNotFound:
		return "the requested item does not exist"
	case ClassRetry:
		return "a provider is unavailable, try again later"
	case ClassOperator:
		return "configuration problem: run 'folio settings' or rebuild the index with 'folio index clear'"
	default:
		return ""
	}
}
