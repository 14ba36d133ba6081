// Package ivf writes the minimal IVF container libvpx tools read: a
// 32 byte file header followed by frames each carrying a 12 byte header.
package ivf

import (
	"encoding/binary"
	"io"

	"github.com/spf13/afero"
	"github.com/tauraamui/xerror"
)

const (
	HeaderSize      = 32
	FrameHeaderSize = 12

	frameCountOffset = 24
)

var (
	signature = [4]byte{'D', 'K', 'I', 'F'}
	FourCCVP8 = [4]byte{'V', 'P', '8', '0'}
)

var ErrBadSignature = xerror.New("not an IVF file")

var fs afero.Fs = afero.NewOsFs()

type Header struct {
	FourCC        [4]byte
	Width, Height uint16
	// TimebaseRate / TimebaseScale is the frame rate, pts count frames.
	TimebaseRate  uint32
	TimebaseScale uint32
	Frames        uint32
}

func (h Header) marshal() []byte {
	b := make([]byte, HeaderSize)
	copy(b[0:4], signature[:])
	binary.LittleEndian.PutUint16(b[4:], 0)
	binary.LittleEndian.PutUint16(b[6:], HeaderSize)
	copy(b[8:12], h.FourCC[:])
	binary.LittleEndian.PutUint16(b[12:], h.Width)
	binary.LittleEndian.PutUint16(b[14:], h.Height)
	binary.LittleEndian.PutUint32(b[16:], h.TimebaseRate)
	binary.LittleEndian.PutUint32(b[20:], h.TimebaseScale)
	binary.LittleEndian.PutUint32(b[frameCountOffset:], h.Frames)
	return b
}

func ReadHeader(r io.Reader) (Header, error) {
	b := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, b); err != nil {
		return Header{}, xerror.Errorf("unable to read IVF header: %w", err)
	}
	if [4]byte{b[0], b[1], b[2], b[3]} != signature {
		return Header{}, ErrBadSignature
	}

	var h Header
	copy(h.FourCC[:], b[8:12])
	h.Width = binary.LittleEndian.Uint16(b[12:])
	h.Height = binary.LittleEndian.Uint16(b[14:])
	h.TimebaseRate = binary.LittleEndian.Uint32(b[16:])
	h.TimebaseScale = binary.LittleEndian.Uint32(b[20:])
	h.Frames = binary.LittleEndian.Uint32(b[frameCountOffset:])
	return h, nil
}

// Writer appends frames after a header whose frame count is written
// as zero and only patched on Close.
type Writer struct {
	f      afero.File
	path   string
	frames uint32
	bytes  int64
}

func Create(path string, h Header) (*Writer, error) {
	f, err := fs.Create(path)
	if err != nil {
		return nil, xerror.Errorf("unable to create IVF file %s: %w", path, err)
	}

	h.Frames = 0
	if _, err := f.Write(h.marshal()); err != nil {
		f.Close()
		return nil, xerror.Errorf("unable to write IVF header to %s: %w", path, err)
	}

	return &Writer{f: f, path: path, bytes: HeaderSize}, nil
}

func (w *Writer) WriteFrame(data []byte, pts uint64) error {
	if w.f == nil {
		return xerror.Errorf("IVF writer for %s is closed", w.path)
	}

	hdr := make([]byte, FrameHeaderSize)
	binary.LittleEndian.PutUint32(hdr[0:], uint32(len(data)))
	binary.LittleEndian.PutUint64(hdr[4:], pts)
	if _, err := w.f.Write(hdr); err != nil {
		return xerror.Errorf("unable to write frame header: %w", err)
	}
	if _, err := w.f.Write(data); err != nil {
		return xerror.Errorf("unable to write frame: %w", err)
	}

	w.frames++
	w.bytes += int64(FrameHeaderSize + len(data))
	return nil
}

func (w *Writer) Frames() uint32 {
	return w.frames
}

func (w *Writer) Bytes() int64 {
	return w.bytes
}

func (w *Writer) Close() error {
	if w.f == nil {
		return nil
	}
	f := w.f
	w.f = nil

	count := make([]byte, 4)
	binary.LittleEndian.PutUint32(count, w.frames)
	if _, err := f.WriteAt(count, frameCountOffset); err != nil {
		f.Close()
		return xerror.Errorf("unable to finalise IVF frame count: %w", err)
	}
	return f.Close()
}
