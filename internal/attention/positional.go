package attention

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/eltociear/Ef-RAFT/internal/tensor"
)

// PositionalEncoding holds a precomputed sinusoid table.
//
// Row p-1 of the table encodes position p, for p in [1, maxLen]:
//
//	P[p-1][2i]   = sin(p / 10000^(2i/hidden))
//	P[p-1][2i+1] = cos(p / 10000^(2i/hidden))
//
// The tables are built once and never written again, so a single instance
// may be shared by any number of concurrent readers.
type PositionalEncoding struct {
	table    []float32 // [maxLen * hidden], interleaved sin/cos
	sinTable []float32 // [maxLen * hidden/2]
	cosTable []float32 // [maxLen * hidden/2]

	hidden  int
	halfDim int
	maxLen  int
	dropout float64
}

// NewPositionalEncoding builds the sinusoid tables for hidden channels and maxLen positions
func NewPositionalEncoding(hidden, maxLen int, dropout float64) (*PositionalEncoding, error) {
	if hidden <= 0 || hidden%2 != 0 {
		return nil, fmt.Errorf("%w: positional hidden size must be positive and even, got %d", ErrInvalidConfig, hidden)
	}
	if maxLen <= 0 {
		return nil, fmt.Errorf("%w: positional max_len must be positive, got %d", ErrInvalidConfig, maxLen)
	}

	halfDim := hidden / 2
	table := make([]float32, maxLen*hidden)
	sinTable := make([]float32, maxLen*halfDim)
	cosTable := make([]float32, maxLen*halfDim)

	invFreq := make([]float64, halfDim)
	for i := range invFreq {
		invFreq[i] = 1.0 / math.Pow(10000, float64(2*i)/float64(hidden))
	}

	for row := 0; row < maxLen; row++ {
		pos := float64(row + 1)
		for i := 0; i < halfDim; i++ {
			angle := pos * invFreq[i]
			s := float32(math.Sin(angle))
			c := float32(math.Cos(angle))

			sinTable[row*halfDim+i] = s
			cosTable[row*halfDim+i] = c
			table[row*hidden+2*i] = s
			table[row*hidden+2*i+1] = c
		}
	}

	return &PositionalEncoding{
		table:    table,
		sinTable: sinTable,
		cosTable: cosTable,
		hidden:   hidden,
		halfDim:  halfDim,
		maxLen:   maxLen,
		dropout:  dropout,
	}, nil
}

// HiddenSize returns the channel count of the table
func (pe *PositionalEncoding) HiddenSize() int {
	return pe.hidden
}

// MaxLen returns the number of positions in the table
func (pe *PositionalEncoding) MaxLen() int {
	return pe.maxLen
}

// Row returns a copy of the encoding of position p (1-based)
func (pe *PositionalEncoding) Row(p int) ([]float32, error) {
	if p < 1 || p > pe.maxLen {
		return nil, fmt.Errorf("position %d outside [1, %d]", p, pe.maxLen)
	}
	row := make([]float32, pe.hidden)
	copy(row, pe.table[(p-1)*pe.hidden:p*pe.hidden])
	return row, nil
}

// checkSequence validates x as [..., seqLen, hidden] and returns seqLen
func (pe *PositionalEncoding) checkSequence(x *tensor.Tensor) (int, error) {
	if x.NumDims() < 2 {
		return 0, fmt.Errorf("positional input must be at least 2D [seq, hidden], got shape %v", x.Shape())
	}
	if x.Dim(-1) != pe.hidden {
		return 0, fmt.Errorf("positional input last dim %d != hidden size %d", x.Dim(-1), pe.hidden)
	}
	seqLen := x.Dim(-2)
	if seqLen > pe.maxLen {
		return 0, fmt.Errorf("%w: length %d > max_len %d", ErrSequenceTooLong, seqLen, pe.maxLen)
	}
	return seqLen, nil
}

// Encode adds the positional signal to x: x + P[:seqLen], broadcast over
// every leading dimension.
// Input shape: [..., seq_len, hidden]
// When rng is non-nil, dropout is applied to the sum (training mode).
func (pe *PositionalEncoding) Encode(x *tensor.Tensor, rng *rand.Rand) (*tensor.Tensor, error) {
	seqLen, err := pe.checkSequence(x)
	if err != nil {
		return nil, err
	}

	output := x.Clone()
	outData := output.Float32Data()
	block := seqLen * pe.hidden
	pos := pe.table[:block]
	for off := 0; off+block <= len(outData) && block > 0; off += block {
		dst := outData[off : off+block]
		for i := range dst {
			dst[i] += pos[i]
		}
	}

	return tensor.Dropout(output, pe.dropout, rng), nil
}

// ToRelative rotates every (even, odd) channel pair of x by the phase of its
// sequence position, turning an absolute positional mixture into a code of
// relative offsets:
//
//	even' = even*cos - odd*sin
//	odd'  = odd*cos + even*sin
//
// Input shape: [..., seq_len, hidden]. The input is left untouched.
func (pe *PositionalEncoding) ToRelative(x *tensor.Tensor) (*tensor.Tensor, error) {
	seqLen, err := pe.checkSequence(x)
	if err != nil {
		return nil, err
	}

	output := tensor.NewTensor(x.Shape())
	xData := x.Float32Data()
	outData := output.Float32Data()

	hidden := pe.hidden
	halfDim := pe.halfDim
	block := seqLen * hidden

	for off := 0; off+block <= len(xData) && block > 0; off += block {
		for s := 0; s < seqLen; s++ {
			sOff := off + s*hidden
			tOff := s * halfDim
			for i := 0; i < halfDim; i++ {
				sn := pe.sinTable[tOff+i]
				c := pe.cosTable[tOff+i]

				even := xData[sOff+2*i]
				odd := xData[sOff+2*i+1]

				outData[sOff+2*i] = even*c - odd*sn
				outData[sOff+2*i+1] = odd*c + even*sn
			}
		}
	}

	return output, nil
}
