package ingest

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"reviewrag/internal/domain"
)

// ProductNames maps a parent ASIN to its product title.
type ProductNames map[string]string

// Lookup tries the parent ASIN, then the ASIN, then falls back to
// domain.UnknownProduct.
func (p ProductNames) Lookup(parentASIN, asin string) string {
	if parentASIN != "" {
		if name, ok := p[parentASIN]; ok {
			return name
		}
	}
	if asin != "" {
		if name, ok := p[asin]; ok {
			return name
		}
	}
	return domain.UnknownProduct
}

type productMeta struct {
	ParentASIN string `json:"parent_asin"`
	Title      string `json:"title"`
}

// ReadProductNames decodes a product metadata dump, one product per line.
// Records without a parent ASIN or title are ignored.
func ReadProductNames(r io.Reader) (ProductNames, error) {
	names := ProductNames{}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	line := 0
	for sc.Scan() {
		line++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		var m productMeta
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			return nil, fmt.Errorf("product metadata line %d: %w", line, err)
		}
		if m.ParentASIN != "" && m.Title != "" {
			names[m.ParentASIN] = m.Title
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read product metadata: %w", err)
	}
	return names, nil
}

// LoadProductNames reads the metadata file at path.
func LoadProductNames(path string) (ProductNames, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: product metadata %s not found", domain.ErrConfiguration, path)
		}
		return nil, err
	}
	defer f.Close()
	return ReadProductNames(f)
}
