// Package batch converts many independent HTML inputs in fixed-size chunks.
package batch

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/gaurav-prasanna/mailmd/core"
)

// DefaultChunkSize is used when Options.ChunkSize is not positive.
const DefaultChunkSize = 10

// Options configures Convert.
type Options struct {
	ChunkSize int
	// OnChunk is called after every chunk with the number of inputs done.
	OnChunk func(done, total int)
}

// Convert runs c over inputs sequentially, chunk by chunk, and checks ctx
// between chunks. results[i] belongs to inputs[i] and is nil when that input
// failed. Every failure is collected into the returned error; a cancelled
// context stops the run and is reported with the failures so far.
func Convert(ctx context.Context, c core.Converter, inputs []string, opts Options) ([]*core.Result, error) {
	size := opts.ChunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}

	results := make([]*core.Result, len(inputs))
	var merr *multierror.Error
	for start := 0; start < len(inputs); start += size {
		if err := ctx.Err(); err != nil {
			merr = multierror.Append(merr, fmt.Errorf("batch stopped after %d of %d inputs: %w", start, len(inputs), err))
			break
		}
		end := min(start+size, len(inputs))
		for i := start; i < end; i++ {
			res, err := c.Convert(inputs[i])
			if err != nil {
				merr = multierror.Append(merr, fmt.Errorf("input %d: %w", i, err))
				continue
			}
			results[i] = res
		}
		if opts.OnChunk != nil {
			opts.OnChunk(end, len(inputs))
		}
	}
	return results, merr.ErrorOrNil()
}
