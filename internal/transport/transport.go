// Package transport implements the sequenced record framing spoken on the
// USB command channel.
//
// Every exchange on the channel is a record: a 4-byte little-endian length
// followed by that many payload bytes. Fixed-size protocol frames (requests,
// responses, the device-info block) travel as single records whose length
// must match the expected frame size exactly. Data phases travel as runs of
// records terminated by a zero-length record, except for firmware blocks,
// which are one record each with no terminator (the host already knows the
// block count).
package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

const (
	headerSize = 4

	// DefaultMaxRecord caps inbound records. The largest frame the host
	// may legally send is one full request (65532 bytes); anything bigger
	// means the channel has lost frame sync.
	DefaultMaxRecord = 65532

	streamChunk = 32768
)

// ErrSource marks a data-phase failure on the local side (a file or process
// pipe) rather than on the channel itself. The stream is still terminated
// cleanly on the wire, so callers may log and keep serving.
var ErrSource = errors.New("stream source failed")

// Sequenced frames a raw byte channel into length-prefixed records.
type Sequenced struct {
	r       io.Reader
	w       io.Writer
	closers []io.Closer

	// MaxRecord overrides the inbound record size limit. Zero means
	// DefaultMaxRecord; host-side use raises it to receive firmware
	// blocks larger than one request frame.
	MaxRecord uint32
}

// NewSequenced wraps an already-open read/write endpoint pair.
func NewSequenced(r io.Reader, w io.Writer) *Sequenced {
	t := &Sequenced{r: r, w: w}
	if c, ok := r.(io.Closer); ok {
		t.closers = append(t.closers, c)
	}
	if c, ok := w.(io.Closer); ok && any(w) != any(r) {
		t.closers = append(t.closers, c)
	}
	return t
}

// Open opens the gadget endpoint device files backing the command channel.
// When both paths are identical a single descriptor is opened read-write.
func Open(readPath, writePath string) (*Sequenced, error) {
	if readPath == writePath {
		f, err := os.OpenFile(readPath, os.O_RDWR, 0)
		if err != nil {
			return nil, fmt.Errorf("open channel %q: %w", readPath, err)
		}
		return &Sequenced{r: f, w: f, closers: []io.Closer{f}}, nil
	}

	in, err := os.Open(readPath)
	if err != nil {
		return nil, fmt.Errorf("open read endpoint %q: %w", readPath, err)
	}
	out, err := os.OpenFile(writePath, os.O_WRONLY, 0)
	if err != nil {
		_ = in.Close()
		return nil, fmt.Errorf("open write endpoint %q: %w", writePath, err)
	}
	return &Sequenced{r: in, w: out, closers: []io.Closer{in, out}}, nil
}

// Close releases the underlying endpoint descriptors.
func (t *Sequenced) Close() error {
	var firstErr error
	for _, c := range t.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Read fills p from exactly one inbound record. The record length must
// match len(p); a zero-length p consumes one empty record, which is how the
// host acknowledges a pending data phase.
func (t *Sequenced) Read(p []byte) error {
	rec, err := t.readRecord()
	if err != nil {
		return err
	}
	if len(rec) != len(p) {
		return fmt.Errorf("record length %d, expected %d", len(rec), len(p))
	}
	copy(p, rec)
	return nil
}

// Write sends p as a single record.
func (t *Sequenced) Write(p []byte) error {
	return t.writeRecord(p)
}

// StreamFrom copies r to the channel as a run of records and terminates the
// run with a zero-length record. A read failure on r ends the run cleanly
// and is reported wrapped in ErrSource; a channel failure is returned as-is.
func (t *Sequenced) StreamFrom(r io.Reader) error {
	buf := make([]byte, streamChunk)
	var srcErr error

	for {
		n, err := r.Read(buf)
		if n > 0 {
			if werr := t.writeRecord(buf[:n]); werr != nil {
				return werr
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			srcErr = err
			break
		}
	}

	if err := t.writeRecord(nil); err != nil {
		return err
	}
	if srcErr != nil {
		return fmt.Errorf("%w: %v", ErrSource, srcErr)
	}
	return nil
}

// StreamBuffer sends one complete block as a single record. Used for
// firmware blocks, whose on-wire size is the record length itself.
func (t *Sequenced) StreamBuffer(p []byte) error {
	return t.writeRecord(p)
}

// Bridge relays between the channel and a subprocess until both directions
// close. Outbound, it streams out to the host and terminates the run with a
// zero-length record once out reaches end-of-stream. Inbound, it feeds host
// records into in until the host sends its own zero-length record, then
// closes in. With a nil in the bridge degenerates to a one-directional
// stream of out.
//
// Process-side pipe failures end their direction quietly; only channel
// failures are returned. The call blocks until the channel is quiescent, so
// the caller may resume frame-synchronized reads immediately after.
func (t *Sequenced) Bridge(in io.WriteCloser, out io.Reader) error {
	if in == nil {
		err := t.StreamFrom(out)
		if errors.Is(err, ErrSource) {
			return nil
		}
		return err
	}

	inbound := make(chan error, 1)
	go func() {
		stalled := false
		for {
			rec, err := t.readRecord()
			if err != nil {
				inbound <- err
				return
			}
			if len(rec) == 0 {
				_ = in.Close()
				inbound <- nil
				return
			}
			if stalled {
				continue
			}
			if _, err := in.Write(rec); err != nil {
				// The process is gone; keep draining so the host's
				// terminator still lands on a record boundary.
				stalled = true
			}
		}
	}()

	outErr := t.StreamFrom(out)
	if outErr != nil && !errors.Is(outErr, ErrSource) {
		<-inbound
		return outErr
	}
	return <-inbound
}

// ReadRecord consumes exactly one inbound record of whatever length the
// peer framed it with. Host-side helper for firmware block reads.
func (t *Sequenced) ReadRecord() ([]byte, error) {
	return t.readRecord()
}

// ReadStream consumes one terminated record run and returns the
// concatenated payload. Host-side counterpart of StreamFrom.
func (t *Sequenced) ReadStream() ([]byte, error) {
	var out []byte
	for {
		rec, err := t.readRecord()
		if err != nil {
			return nil, err
		}
		if rec == nil {
			return out, nil
		}
		out = append(out, rec...)
	}
}

func (t *Sequenced) readRecord() ([]byte, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(t.r, header[:]); err != nil {
		return nil, fmt.Errorf("read record header: %w", err)
	}
	limit := t.MaxRecord
	if limit == 0 {
		limit = DefaultMaxRecord
	}
	length := binary.LittleEndian.Uint32(header[:])
	if length > limit {
		return nil, fmt.Errorf("inbound record of %d bytes exceeds limit %d", length, limit)
	}
	if length == 0 {
		return nil, nil
	}
	rec := make([]byte, length)
	if _, err := io.ReadFull(t.r, rec); err != nil {
		return nil, fmt.Errorf("read record payload: %w", err)
	}
	return rec, nil
}

func (t *Sequenced) writeRecord(p []byte) error {
	frame := make([]byte, headerSize+len(p))
	binary.LittleEndian.PutUint32(frame[:headerSize], uint32(len(p)))
	copy(frame[headerSize:], p)
	if _, err := t.w.Write(frame); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}
