package domain

import "errors"

// Pipeline errors. Packages wrap these with fmt.Errorf("%w: ...") so callers
// can classify failures with errors.Is.
var (
	// ErrConfiguration covers bad chunking parameters, mismatched store
	// lengths and missing artifacts. Fatal before serving queries.
	ErrConfiguration = errors.New("configuration error")

	// ErrEmbedding indicates the embedding model call failed.
	ErrEmbedding = errors.New("embedding failure")

	// ErrIndexUnavailable indicates a missing or corrupt index file.
	ErrIndexUnavailable = errors.New("index unavailable")

	// ErrRetrieval indicates a query could not be served by the retriever.
	ErrRetrieval = errors.New("retrieval failure")

	// ErrGeneration indicates the generation collaborator failed.
	ErrGeneration = errors.New("generation failure")

	// ErrGenerationTimeout indicates the generation call hit its deadline.
	// It always accompanies ErrGeneration and may be retried.
	ErrGenerationTimeout = errors.New("generation timed out")
)

// IsRetryable reports whether err is a transient failure worth retrying.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrGenerationTimeout)
}
