// Package pdf adapts pdfcpu as the document-combine capability. The vault
// treats PDF internals as opaque; this is the only package that touches them.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// Merger combines PDF byte streams in order using pdfcpu.
type Merger struct{}

func NewMerger() *Merger {
	return &Merger{}
}

// Combine appends the sources in the given order into one document. It
// fails when any source is not a valid PDF. pdfcpu has no context support,
// so cancellation is only honored at the boundaries.
func (m *Merger) Combine(ctx context.Context, sources [][]byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	readers := make([]io.ReadSeeker, len(sources))
	for i, src := range sources {
		readers[i] = bytes.NewReader(src)
	}

	var out bytes.Buffer
	if err := api.MergeRaw(readers, &out, false, nil); err != nil {
		return nil, fmt.Errorf("merge documents: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
