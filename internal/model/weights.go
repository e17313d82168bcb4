// Package model wraps the pretrained sequence controller: artifact loading,
// the forward pass, and output denormalization helpers.
package model

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"gonum.org/v1/gonum/mat"
)

// Artifact header. All multi-byte fields are little-endian; parameters are
// float32 in row-major order.
const (
	weightsMagic  = "RLNW"
	formatVersion = 1
)

// Weights holds the trained parameters of the recurrent controller:
// a single GRU layer over the flattened (ranges, deltas) input followed by
// a dense head producing (steer, speed).
type Weights struct {
	SeqLen    int
	NumRanges int
	Hidden    int

	// Gate kernels: input (hidden × inputDim), recurrent (hidden × hidden),
	// bias (hidden) for update (z), reset (r) and candidate (h) gates.
	Wz, Uz     *mat.Dense
	Wr, Ur     *mat.Dense
	Wh, Uh     *mat.Dense
	Bz, Br, Bh *mat.VecDense

	// Output head: (2 × hidden) and bias (2).
	Wout *mat.Dense
	Bout *mat.VecDense
}

// InputDim is the flattened per-timestep feature width: the range block
// followed by the broadcast delta block.
func (w *Weights) InputDim() int {
	return 2 * w.NumRanges
}

// LoadWeights reads a controller artifact from disk. Any malformed or
// truncated file is an error; callers treat a load failure as fatal at
// startup.
func LoadWeights(path string) (*Weights, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open model artifact: %w", err)
	}
	defer f.Close()

	var magic [4]byte
	if _, err := io.ReadFull(f, magic[:]); err != nil {
		return nil, fmt.Errorf("read model magic: %w", err)
	}
	if string(magic[:]) != weightsMagic {
		return nil, fmt.Errorf("not a controller artifact: magic %q", magic)
	}

	var header struct {
		Version   uint32
		SeqLen    uint32
		NumRanges uint32
		Hidden    uint32
	}
	if err := binary.Read(f, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("read model header: %w", err)
	}
	if header.Version != formatVersion {
		return nil, fmt.Errorf("unsupported artifact version %d", header.Version)
	}
	if header.SeqLen == 0 || header.NumRanges == 0 || header.Hidden == 0 {
		return nil, fmt.Errorf("degenerate model shape (%d, %d, %d)",
			header.SeqLen, header.NumRanges, header.Hidden)
	}

	w := &Weights{
		SeqLen:    int(header.SeqLen),
		NumRanges: int(header.NumRanges),
		Hidden:    int(header.Hidden),
	}
	d := w.InputDim()
	h := w.Hidden

	read := func(dst **mat.Dense, rows, cols int) error {
		if err != nil {
			return err
		}
		buf := make([]float32, rows*cols)
		if err = binary.Read(f, binary.LittleEndian, buf); err != nil {
			return fmt.Errorf("read %dx%d parameter block: %w", rows, cols, err)
		}
		data := make([]float64, len(buf))
		for i, v := range buf {
			data[i] = float64(v)
		}
		*dst = mat.NewDense(rows, cols, data)
		return nil
	}
	readVec := func(dst **mat.VecDense, n int) error {
		if err != nil {
			return err
		}
		buf := make([]float32, n)
		if err = binary.Read(f, binary.LittleEndian, buf); err != nil {
			return fmt.Errorf("read %d-vector parameter block: %w", n, err)
		}
		data := make([]float64, len(buf))
		for i, v := range buf {
			data[i] = float64(v)
		}
		*dst = mat.NewVecDense(n, data)
		return nil
	}

	if err := read(&w.Wz, h, d); err != nil {
		return nil, err
	}
	if err := read(&w.Uz, h, h); err != nil {
		return nil, err
	}
	if err := readVec(&w.Bz, h); err != nil {
		return nil, err
	}
	if err := read(&w.Wr, h, d); err != nil {
		return nil, err
	}
	if err := read(&w.Ur, h, h); err != nil {
		return nil, err
	}
	if err := readVec(&w.Br, h); err != nil {
		return nil, err
	}
	if err := read(&w.Wh, h, d); err != nil {
		return nil, err
	}
	if err := read(&w.Uh, h, h); err != nil {
		return nil, err
	}
	if err := readVec(&w.Bh, h); err != nil {
		return nil, err
	}
	if err := read(&w.Wout, 2, h); err != nil {
		return nil, err
	}
	if err := readVec(&w.Bout, 2); err != nil {
		return nil, err
	}

	// Trailing bytes mean the header lied about the shape.
	if n, _ := f.Read(make([]byte, 1)); n != 0 {
		return nil, fmt.Errorf("artifact has trailing bytes after parameters")
	}

	return w, nil
}
