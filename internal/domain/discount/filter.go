package discount

import (
	"io"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
)

const (
	// Sized for the full promo-code corpus; at this capacity a negative
	// answer is certain and a positive one is wrong at most 0.1% of the time.
	filterCapacity = 1_000_000
	filterFPR      = 0.001
)

// CodeFilter is a bloom pre-screen over the known discount codes. Codes are
// normalized to upper case on both insert and lookup.
type CodeFilter struct {
	bf *bloom.BloomFilter
}

// NewCodeFilter builds a filter holding the given codes.
func NewCodeFilter(codes []string) *CodeFilter {
	f := &CodeFilter{bf: bloom.NewWithEstimates(filterCapacity, filterFPR)}
	for _, c := range codes {
		f.Add(c)
	}
	return f
}

// ReadCodeFilter loads a filter previously written with WriteTo.
func ReadCodeFilter(r io.Reader) (*CodeFilter, error) {
	bf := &bloom.BloomFilter{}
	if _, err := bf.ReadFrom(r); err != nil {
		return nil, errors.Wrap(err, "read bloom filter")
	}
	return &CodeFilter{bf: bf}, nil
}

// Add inserts a code.
func (f *CodeFilter) Add(code string) {
	f.bf.Add([]byte(strings.ToUpper(code)))
}

// MayContain reports whether the code may exist. False is definitive.
func (f *CodeFilter) MayContain(code string) bool {
	return f.bf.Test([]byte(strings.ToUpper(code)))
}

// WriteTo serializes the filter.
func (f *CodeFilter) WriteTo(w io.Writer) (int64, error) {
	return f.bf.WriteTo(w)
}
