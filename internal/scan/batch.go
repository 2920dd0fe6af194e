package scan

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"fintrack/internal/logger"
	"fintrack/pkg/models"
)

// Result is the outcome for one file of a batch. Exactly one of Transaction and Err is meaningful.
type Result struct {
	File        string
	Scan        models.ScanResult
	Transaction models.Transaction
	Err         error
}

// OK reports whether the file produced a transaction.
func (r Result) OK() bool {
	return r.Err == nil
}

// Batch scans files one at a time.
type Batch struct {
	scanner Scanner
	mode    Mode
	now     func() time.Time
	log     zerolog.Logger
}

// NewBatch creates a batch runner for mode.
func NewBatch(scanner Scanner, mode Mode) *Batch {
	return &Batch{
		scanner: scanner,
		mode:    mode,
		now:     time.Now,
		log:     logger.WithComponent("scan"),
	}
}

// Run validates and scans each file in order, with at most one scan in flight. A failing
// file is logged and recorded in its Result; the rest of the batch continues. If no file
// produced a transaction, Run also returns ErrNothingExtracted.
func (b *Batch) Run(ctx context.Context, files []File) ([]Result, error) {
	c := ContextFor(b.mode)
	c.Now = b.now

	results := make([]Result, 0, len(files))
	for _, f := range files {
		res := Result{File: f.Name}
		if err := ctx.Err(); err != nil {
			res.Err = wrapFileError("Scan", f.Name, err)
			results = append(results, res)
			continue
		}

		res.Scan, res.Err = b.scanOne(ctx, f)
		if res.Err != nil {
			b.log.Warn().Err(res.Err).Str("file", f.Name).Msg("Failed to process file")
		} else {
			res.Transaction = Normalize(res.Scan, c)
			b.log.Debug().Str("file", f.Name).Float64("amount", res.Transaction.Amount).Msg("File scanned")
		}
		results = append(results, res)
	}

	if len(Transactions(results)) == 0 {
		return results, ErrNothingExtracted
	}
	return results, nil
}

func (b *Batch) scanOne(ctx context.Context, f File) (models.ScanResult, error) {
	if err := Validate(f, b.mode); err != nil {
		return nil, err
	}
	r, err := b.scanner.Scan(ctx, f)
	if err != nil {
		return nil, wrapFileError("Scan", f.Name, err)
	}
	if b.mode == ModePDF && !Usable(r) {
		return r, &FileError{Op: "Scan", File: f.Name, Err: ErrNotRecognized}
	}
	return r, nil
}

// Transactions returns the transactions of the successful results, in file order.
func Transactions(results []Result) []models.Transaction {
	var out []models.Transaction
	for _, r := range results {
		if r.OK() {
			out = append(out, r.Transaction)
		}
	}
	return out
}
