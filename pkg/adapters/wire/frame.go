package wire

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"google.golang.org/protobuf/encoding/protowire"
)

// MaxFrameSize bounds a single frame. Larger frames close the connection.
const MaxFrameSize = 16 << 20

// maxBodySize leaves room for the envelope fields around a frame body.
const maxBodySize = MaxFrameSize - 1024

// preambleMagic opens every connection, followed by SchemaVersion.
var preambleMagic = []byte("MCPW")

// ErrFrameTooLarge is returned when a length prefix exceeds MaxFrameSize.
var ErrFrameTooLarge = errors.New("frame too large")

// ErrHandshake is returned when the peer's preamble is not a supported schema.
var ErrHandshake = errors.New("handshake failed")

// Kind distinguishes requests, responses and error responses on a stream.
type Kind uint64

const (
	KindRequest  Kind = 1
	KindResponse Kind = 2
	KindError    Kind = 3
)

// Frame field numbers.
const (
	frameStreamID protowire.Number = 1
	frameMethod   protowire.Number = 2
	frameKind     protowire.Number = 3
	frameBody     protowire.Number = 4
	frameError    protowire.Number = 5
)

// Frame is the multiplexing envelope. StreamID correlates a response with its
// request on a shared connection.
type Frame struct {
	StreamID uint64
	Method   Method
	Kind     Kind
	Body     []byte // Encoded message for Method; aliases the read buffer when decoded
	Error    string // Set on KindError
}

// AppendFrame encodes f onto b.
func AppendFrame(b []byte, f Frame) []byte {
	b = appendVarint(b, frameStreamID, f.StreamID)
	b = appendVarint(b, frameMethod, uint64(f.Method))
	b = appendVarint(b, frameKind, uint64(f.Kind))
	b = appendBytes(b, frameBody, f.Body)
	return appendString(b, frameError, f.Error)
}

// DecodeFrame decodes a frame. Body aliases b.
func DecodeFrame(b []byte) (Frame, error) {
	var f Frame
	err := walk(b, func(fl field) error {
		switch fl.num {
		case frameStreamID:
			f.StreamID = fl.u64
		case frameMethod:
			f.Method = Method(fl.u64)
		case frameKind:
			f.Kind = Kind(fl.u64)
		case frameBody:
			f.Body = fl.bytes
		case frameError:
			f.Error = string(fl.bytes)
		}
		return nil
	})
	if err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	if f.Kind == 0 {
		return Frame{}, fmt.Errorf("decode frame: missing kind")
	}
	return f, nil
}

var bufPool = sync.Pool{
	New: func() any {
		b := make([]byte, 0, 4096)
		return &b
	},
}

func getBuf() *[]byte {
	return bufPool.Get().(*[]byte)
}

func putBuf(b *[]byte) {
	if cap(*b) > 1<<20 {
		return
	}
	*b = (*b)[:0]
	bufPool.Put(b)
}

// readFrame reads one length-prefixed frame into buf, growing it as needed.
// The returned frame aliases *buf.
func readFrame(r *bufio.Reader, buf *[]byte) (Frame, error) {
	size, err := binary.ReadUvarint(r)
	if err != nil {
		return Frame{}, err
	}
	if size > MaxFrameSize {
		return Frame{}, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, size)
	}
	if uint64(cap(*buf)) < size {
		*buf = make([]byte, size)
	}
	*buf = (*buf)[:size]
	if _, err := io.ReadFull(r, *buf); err != nil {
		return Frame{}, err
	}
	return DecodeFrame(*buf)
}

// writeFrame encodes f with its length prefix and flushes w.
// Callers serialize access to w.
func writeFrame(w *bufio.Writer, f Frame) error {
	buf := getBuf()
	defer putBuf(buf)

	*buf = AppendFrame(*buf, f)
	if len(*buf) > MaxFrameSize {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(*buf))
	}

	var prefix [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(prefix[:], uint64(len(*buf)))
	if _, err := w.Write(prefix[:n]); err != nil {
		return err
	}
	if _, err := w.Write(*buf); err != nil {
		return err
	}
	return w.Flush()
}

func preamble() []byte {
	return append(append([]byte(nil), preambleMagic...), SchemaVersion)
}

// readPreamble consumes and checks the peer's preamble.
func readPreamble(r io.Reader) error {
	got := make([]byte, len(preambleMagic)+1)
	if _, err := io.ReadFull(r, got); err != nil {
		return fmt.Errorf("%w: %v", ErrHandshake, err)
	}
	if !bytes.Equal(got[:len(preambleMagic)], preambleMagic) {
		return fmt.Errorf("%w: bad magic %q", ErrHandshake, got[:len(preambleMagic)])
	}
	if v := got[len(preambleMagic)]; v != SchemaVersion {
		return fmt.Errorf("%w: schema version %d, want %d", ErrHandshake, v, SchemaVersion)
	}
	return nil
}
