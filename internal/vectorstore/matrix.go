package vectorstore

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"

	"reviewrag/internal/domain"
)

// Matrix is a dense row-major float32 matrix.
type Matrix struct {
	Rows int
	Cols int
	Data []float32
}

// Row returns row i without copying.
func (m Matrix) Row(i int) []float32 {
	return m.Data[i*m.Cols : (i+1)*m.Cols]
}

// Validate checks the shape against the backing slice.
func (m Matrix) Validate() error {
	if m.Rows < 0 || m.Cols <= 0 || len(m.Data) != m.Rows*m.Cols {
		return fmt.Errorf("%w: matrix shape %dx%d does not match %d values", domain.ErrConfiguration, m.Rows, m.Cols, len(m.Data))
	}
	return nil
}

// On-disk layout, little endian:
//
//	magic "RVMX" | version u16 | dtype u16 | rows u64 | cols u64 | data
const (
	matrixMagic   = "RVMX"
	matrixVersion = 1

	dtypeFloat32 uint16 = 1
	dtypeFloat64 uint16 = 2
)

type matrixHeader struct {
	Magic   [4]byte
	Version uint16
	DType   uint16
	Rows    uint64
	Cols    uint64
}

// WriteMatrix encodes m as float32.
func WriteMatrix(w io.Writer, m Matrix) error {
	if err := m.Validate(); err != nil {
		return err
	}
	h := matrixHeader{Version: matrixVersion, DType: dtypeFloat32, Rows: uint64(m.Rows), Cols: uint64(m.Cols)}
	copy(h.Magic[:], matrixMagic)
	if err := binary.Write(w, binary.LittleEndian, &h); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, m.Data)
}

// ReadMatrix decodes a matrix. Float64 payloads are converted to float32 so
// every consumer sees a single precision.
func ReadMatrix(r io.Reader) (Matrix, error) {
	var h matrixHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return Matrix{}, fmt.Errorf("%w: read matrix header: %v", domain.ErrConfiguration, err)
	}
	if string(h.Magic[:]) != matrixMagic || h.Version != matrixVersion {
		return Matrix{}, fmt.Errorf("%w: not an embedding matrix file", domain.ErrConfiguration)
	}
	if !shapeOK(h) {
		return Matrix{}, fmt.Errorf("%w: bad matrix shape %dx%d", domain.ErrConfiguration, h.Rows, h.Cols)
	}
	n := int(h.Rows * h.Cols)
	m := Matrix{Rows: int(h.Rows), Cols: int(h.Cols)}
	var err error
	switch h.DType {
	case dtypeFloat32:
		m.Data, err = readBlocks[float32](r, n, func(v float32) float32 { return v })
	case dtypeFloat64:
		m.Data, err = readBlocks[float64](r, n, func(v float64) float32 { return float32(v) })
	default:
		return Matrix{}, fmt.Errorf("%w: unsupported matrix dtype %d", domain.ErrConfiguration, h.DType)
	}
	if err != nil {
		return Matrix{}, truncated(err)
	}
	return m, nil
}

func shapeOK(h matrixHeader) bool {
	return h.Cols > 0 && h.Cols <= math.MaxInt32 && h.Rows <= math.MaxInt32/h.Cols
}

func elemSize(dtype uint16) int64 {
	switch dtype {
	case dtypeFloat32:
		return 4
	case dtypeFloat64:
		return 8
	}
	return 0
}

// readBlock bounds each allocation step of readBlocks.
const readBlock = 1 << 16

// readBlocks decodes n values, growing the result only as input arrives so
// a lying header cannot force a huge allocation.
func readBlocks[T float32 | float64](r io.Reader, n int, conv func(T) float32) ([]float32, error) {
	out := make([]float32, 0, min(n, readBlock))
	buf := make([]T, min(n, readBlock))
	for len(out) < n {
		block := buf[:min(n-len(out), readBlock)]
		if err := binary.Read(r, binary.LittleEndian, block); err != nil {
			return nil, err
		}
		for _, v := range block {
			out = append(out, conv(v))
		}
	}
	return out, nil
}

func truncated(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: matrix file truncated", domain.ErrConfiguration)
	}
	return err
}

// SaveMatrix writes m to path atomically.
func SaveMatrix(path string, m Matrix) error {
	return writeAtomic(path, func(w io.Writer) error { return WriteMatrix(w, m) })
}

// LoadMatrix reads a matrix file.
func LoadMatrix(path string) (Matrix, error) {
	f, err := openArtifact(path)
	if err != nil {
		return Matrix{}, err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return Matrix{}, err
	}
	var h matrixHeader
	if err := binary.Read(f, binary.LittleEndian, &h); err != nil {
		return Matrix{}, fmt.Errorf("%w: read matrix header: %v", domain.ErrConfiguration, err)
	}
	if shapeOK(h) && elemSize(h.DType) > 0 {
		want := int64(binary.Size(h)) + elemSize(h.DType)*int64(h.Rows)*int64(h.Cols)
		if want != st.Size() {
			return Matrix{}, fmt.Errorf("%w: matrix file %s is %d bytes, header describes %dx%d", domain.ErrConfiguration, path, st.Size(), h.Rows, h.Cols)
		}
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return Matrix{}, err
	}
	return ReadMatrix(bufio.NewReader(f))
}

func openArtifact(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: artifact %s not found", domain.ErrConfiguration, path)
		}
		return nil, err
	}
	return f, nil
}

func writeAtomic(path string, fill func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	pf, err := renameio.NewPendingFile(path)
	if err != nil {
		return err
	}
	defer pf.Cleanup()
	bw := bufio.NewWriter(pf)
	if err := fill(bw); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return pf.CloseAtomicallyReplace()
}
