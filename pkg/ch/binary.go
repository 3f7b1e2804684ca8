package ch

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"unsafe"

	"distance_router/pkg/graph"
)

const (
	magicBytes = "DRCHIDX1"
	version    = uint32(1)
	maxNodes   = 1 << 30
	maxArcs    = 1 << 31
)

// fileHeader is the binary header.
type fileHeader struct {
	Magic       [8]byte
	Version     uint32
	NumNodes    uint32
	NumFwdEdges uint32
	NumBwdEdges uint32
}

// Save writes idx followed by a CRC32 trailer.
func (idx *Index) Save(out io.Writer) error {
	crcWriter := crc32Writer{w: out, hash: crc32.NewIEEE()}
	w := &crcWriter

	hdr := fileHeader{
		Version:     version,
		NumNodes:    idx.NumNodes,
		NumFwdEdges: uint32(idx.Fwd.numArcs()),
		NumBwdEdges: uint32(idx.Bwd.numArcs()),
	}
	copy(hdr.Magic[:], magicBytes)
	if err := binary.Write(w, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := writeUint32Slice(w, idx.Rank); err != nil {
		return fmt.Errorf("write Rank: %w", err)
	}
	for _, o := range []struct {
		name string
		ov   *Overlay
	}{{"forward", &idx.Fwd}, {"backward", &idx.Bwd}} {
		if err := writeOverlay(w, o.ov); err != nil {
			return fmt.Errorf("write %s overlay: %w", o.name, err)
		}
	}

	if err := binary.Write(out, binary.LittleEndian, crcWriter.hash.Sum32()); err != nil {
		return fmt.Errorf("write CRC32: %w", err)
	}
	return nil
}

func writeOverlay(w io.Writer, o *Overlay) error {
	if err := writeUint32Slice(w, o.FirstOut); err != nil {
		return err
	}
	if err := writeUint32Slice(w, o.Head); err != nil {
		return err
	}
	if err := writeUint32Slice(w, o.Weight); err != nil {
		return err
	}
	return writeInt32Slice(w, o.Middle)
}

// SaveFile writes idx to path atomically via a temp file and rename.
func (idx *Index) SaveFile(path string) error {
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		f.Close()
		os.Remove(tmpPath) // no-op after a successful rename
	}()

	if err := idx.Save(f); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// Load reads an index written by Save and validates it.
func Load(in io.Reader) (*Index, error) {
	crcReader := crc32Reader{r: in, hash: crc32.NewIEEE()}
	r := &crcReader

	var hdr fileHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("%w: read header: %v", ErrInvalidIndex, err)
	}
	if string(hdr.Magic[:]) != magicBytes {
		return nil, fmt.Errorf("%w: magic bytes %q", ErrInvalidIndex, hdr.Magic)
	}
	if hdr.Version != version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidIndex, hdr.Version)
	}
	if hdr.NumNodes > maxNodes {
		return nil, fmt.Errorf("%w: NumNodes %d exceeds limit %d", ErrInvalidIndex, hdr.NumNodes, maxNodes)
	}
	if uint64(hdr.NumFwdEdges) > maxArcs || uint64(hdr.NumBwdEdges) > maxArcs {
		return nil, fmt.Errorf("%w: arc count exceeds limit %d", ErrInvalidIndex, maxArcs)
	}

	idx := &Index{NumNodes: hdr.NumNodes}
	var err error
	if idx.Rank, err = readUint32Slice(r, int(hdr.NumNodes)); err != nil {
		return nil, fmt.Errorf("%w: read Rank: %v", ErrInvalidIndex, err)
	}
	if idx.Fwd, err = readOverlay(r, hdr.NumNodes, hdr.NumFwdEdges); err != nil {
		return nil, fmt.Errorf("%w: read forward overlay: %v", ErrInvalidIndex, err)
	}
	if idx.Bwd, err = readOverlay(r, hdr.NumNodes, hdr.NumBwdEdges); err != nil {
		return nil, fmt.Errorf("%w: read backward overlay: %v", ErrInvalidIndex, err)
	}

	expectedCRC := crcReader.hash.Sum32()
	var storedCRC uint32
	if err := binary.Read(in, binary.LittleEndian, &storedCRC); err != nil {
		return nil, fmt.Errorf("%w: read CRC32: %v", ErrInvalidIndex, err)
	}
	if storedCRC != expectedCRC {
		return nil, fmt.Errorf("%w: CRC32 mismatch: stored=%08x computed=%08x", ErrInvalidIndex, storedCRC, expectedCRC)
	}

	if err := idx.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIndex, err)
	}
	return idx, nil
}

// LoadFile opens path and calls Load.
func LoadFile(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()
	return Load(f)
}

func readOverlay(r io.Reader, numNodes, numArcs uint32) (Overlay, error) {
	var o Overlay
	var err error
	if o.FirstOut, err = readUint32Slice(r, int(numNodes)+1); err != nil {
		return o, err
	}
	if o.Head, err = readUint32Slice(r, int(numArcs)); err != nil {
		return o, err
	}
	if o.Weight, err = readUint32Slice(r, int(numArcs)); err != nil {
		return o, err
	}
	o.Middle, err = readInt32Slice(r, int(numArcs))
	return o, err
}

func (idx *Index) validate() error {
	if uint32(len(idx.Rank)) != idx.NumNodes {
		return fmt.Errorf("Rank length %d != NumNodes %d", len(idx.Rank), idx.NumNodes)
	}
	for name, o := range map[string]*Overlay{"forward": &idx.Fwd, "backward": &idx.Bwd} {
		if err := graph.ValidateCSR(o.FirstOut, o.Head, idx.NumNodes); err != nil {
			return fmt.Errorf("%s CSR invalid: %w", name, err)
		}
		for i, m := range o.Middle {
			if m >= 0 && uint32(m) >= idx.NumNodes {
				return fmt.Errorf("%s Middle[%d]=%d out of range", name, i, m)
			}
		}
	}
	return nil
}

// Zero-copy I/O helpers using unsafe.Slice.

func writeUint32Slice(w io.Writer, s []uint32) error {
	if len(s) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*4)
	_, err := w.Write(b)
	return err
}

func writeInt32Slice(w io.Writer, s []int32) error {
	if len(s) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*4)
	_, err := w.Write(b)
	return err
}

func readUint32Slice(r io.Reader, n int) ([]uint32, error) {
	s := make([]uint32, n)
	if n == 0 {
		return s, nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), n*4)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return s, nil
}

func readInt32Slice(r io.Reader, n int) ([]int32, error) {
	s := make([]int32, n)
	if n == 0 {
		return s, nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), n*4)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return s, nil
}

// CRC32 wrapping writers/readers.

type crc32Hash interface {
	Write([]byte) (int, error)
	Sum32() uint32
}

type crc32Writer struct {
	w    io.Writer
	hash crc32Hash
}

func (cw *crc32Writer) Write(p []byte) (int, error) {
	cw.hash.Write(p)
	return cw.w.Write(p)
}

type crc32Reader struct {
	r    io.Reader
	hash crc32Hash
}

func (cr *crc32Reader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		cr.hash.Write(p[:n])
	}
	return n, err
}
