package service

import (
	"fmt"
	"io"
	"strings"

	"reviewrag/internal/domain"
)

// FormatAnswer renders an answer for the terminal.
func FormatAnswer(a *domain.Answer) string {
	var b strings.Builder
	b.WriteString("ANSWER:\n")
	b.WriteString(strings.TrimSpace(a.Answer))
	b.WriteString("\n\nSOURCES:\n")
	if len(a.Sources) == 0 {
		b.WriteString("(none)\n")
	}
	for _, s := range a.Sources {
		fmt.Fprintf(&b, "ASIN:%s  chunk:%s  product:%s  distance:%.4f\n", s.ASIN, s.ChunkID, s.ProductName, s.Distance)
	}
	return b.String()
}

// WriteAnswer writes FormatAnswer(a) to w.
func WriteAnswer(w io.Writer, a *domain.Answer) error {
	_, err := io.WriteString(w, FormatAnswer(a))
	return err
}
