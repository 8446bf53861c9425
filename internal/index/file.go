package index

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"

	"reviewrag/internal/domain"
)

// File layout, little endian:
//
//	magic "RVFX" | version u16 | metric u16 | dim u32 | count u64 | data f32... | crc32 u32
//
// The checksum covers every byte before it.
const (
	fileMagic   = "RVFX"
	fileVersion = 1
	metricL2    = 1
)

type fileHeader struct {
	Magic   [4]byte
	Version uint16
	Metric  uint16
	Dim     uint32
	Count   uint64
}

// Write serialises the index.
func (f *Flat) Write(w io.Writer) error {
	crc := crc32.NewIEEE()
	mw := io.MultiWriter(w, crc)
	h := fileHeader{Version: fileVersion, Metric: metricL2, Dim: uint32(f.dim), Count: uint64(f.n)}
	copy(h.Magic[:], fileMagic)
	if err := binary.Write(mw, binary.LittleEndian, &h); err != nil {
		return err
	}
	if err := binary.Write(mw, binary.LittleEndian, f.data); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, crc.Sum32())
}

// Read decodes an index written by Write. Any structural problem is reported
// as domain.ErrIndexUnavailable.
func Read(r io.Reader) (*Flat, error) {
	crc := crc32.NewIEEE()
	tr := io.TeeReader(r, crc)
	var h fileHeader
	if err := binary.Read(tr, binary.LittleEndian, &h); err != nil {
		return nil, corrupt("header: %v", err)
	}
	if string(h.Magic[:]) != fileMagic {
		return nil, corrupt("bad magic")
	}
	if h.Version != fileVersion || h.Metric != metricL2 {
		return nil, corrupt("unsupported version %d metric %d", h.Version, h.Metric)
	}
	if h.Dim == 0 || h.Count > uint64(math.MaxInt32)/uint64(h.Dim) {
		return nil, corrupt("bad shape %dx%d", h.Count, h.Dim)
	}
	data, err := readFloats(tr, int(h.Count*uint64(h.Dim)))
	if err != nil {
		return nil, corrupt("data: %v", err)
	}
	want := crc.Sum32()
	var got uint32
	if err := binary.Read(r, binary.LittleEndian, &got); err != nil {
		return nil, corrupt("checksum: %v", err)
	}
	if got != want {
		return nil, corrupt("checksum mismatch")
	}
	return &Flat{dim: int(h.Dim), n: int(h.Count), data: data}, nil
}

// readBlock bounds each allocation step of readFloats.
const readBlock = 1 << 16

// readFloats decodes n float32 values, growing the result only as input
// arrives so a lying header cannot force a huge allocation.
func readFloats(r io.Reader, n int) ([]float32, error) {
	out := make([]float32, 0, min(n, readBlock))
	buf := make([]float32, min(n, readBlock))
	for len(out) < n {
		block := buf[:min(n-len(out), readBlock)]
		if err := binary.Read(r, binary.LittleEndian, block); err != nil {
			return nil, err
		}
		out = append(out, block...)
	}
	return out, nil
}

func corrupt(format string, args ...any) error {
	return fmt.Errorf("%w: corrupt index file: %s", domain.ErrIndexUnavailable, fmt.Sprintf(format, args...))
}

// Save writes the index to path. Readers of path see either the previous
// file or the complete new one.
func (f *Flat) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	pf, err := renameio.NewPendingFile(path)
	if err != nil {
		return err
	}
	defer pf.Cleanup()
	bw := bufio.NewWriter(pf)
	if err := f.Write(bw); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return pf.CloseAtomicallyReplace()
}

// Load reads an index file.
func Load(path string) (*Flat, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: index file %s not found", domain.ErrIndexUnavailable, path)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
	}
	defer file.Close()
	st, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
	}
	var h fileHeader
	if err := binary.Read(file, binary.LittleEndian, &h); err != nil {
		return nil, corrupt("header: %v", err)
	}
	if want, ok := fileSize(h); !ok || want != st.Size() {
		return nil, corrupt("file is %d bytes, header describes %dx%d", st.Size(), h.Count, h.Dim)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
	}
	return Read(bufio.NewReader(file))
}

// fileSize returns the byte length of a file with header h. ok is false
// when the shape cannot describe any real file.
func fileSize(h fileHeader) (int64, bool) {
	if h.Dim == 0 || h.Count > uint64(math.MaxInt32)/uint64(h.Dim) {
		return 0, false
	}
	return int64(binary.Size(h)) + 4*int64(h.Count)*int64(h.Dim) + 4, true
}
