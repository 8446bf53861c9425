package chunker

import (
	"fmt"
	"iter"

	"reviewrag/internal/domain"
)

// Window is a half-open word range [Start, End) over a word list.
type Window struct {
	Start int
	End   int
	Words []string
}

// Windows returns a lazy sequence of overlapping windows of at most size
// words. Each window starts size-overlap words after the previous one and
// the window that reaches the end of the list is always the last.
func Windows(words []string, size, overlap int) (iter.Seq[Window], error) {
	if err := checkWindow(size, overlap); err != nil {
		return nil, err
	}
	step := size - overlap
	return func(yield func(Window) bool) {
		n := len(words)
		for start := 0; start < n; start += step {
			end := min(start+size, n)
			if !yield(Window{Start: start, End: end, Words: words[start:end]}) {
				return
			}
			if end == n {
				return
			}
		}
	}, nil
}

func checkWindow(size, overlap int) error {
	if overlap <= 0 || size <= overlap {
		return fmt.Errorf("%w: window must exceed overlap (window=%d, overlap=%d)", domain.ErrConfiguration, size, overlap)
	}
	return nil
}
