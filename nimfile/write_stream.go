package nimfile

import (
	"bytes"
	"context"
)

// WriteStreamOptions configures NewWriteStream.
type WriteStreamOptions struct {
	// BufferSize is the number of bytes accumulated before a remote write is
	// issued; the default (and maximum) is FileMaxUploadRangeBytes.
	BufferSize int64

	// FileHTTPHeaders and Metadata are applied when the stream creates the file.
	FileHTTPHeaders FileHTTPHeaders
	Metadata        Metadata
}

func (o WriteStreamOptions) defaults() (WriteStreamOptions, error) {
	if o.BufferSize < 0 || o.BufferSize > FileMaxUploadRangeBytes {
		return o, invalidArgument("BufferSize must be >= 0 and <= %d", int64(FileMaxUploadRangeBytes))
	}
	if o.BufferSize == 0 {
		o.BufferSize = FileMaxUploadRangeBytes
	}
	return o, nil
}

// WriteStream is a buffered sequential writer over a file. Bytes accumulate
// locally and go to the service as range writes, one per full buffer plus one
// for any remainder on Flush or Close.
//
// The stream tracks the file's ETag from creation onward and sends it as an
// If-Match condition on every remote write, so all the bytes it lands belong
// to one uninterrupted version of the file: if the file is mutated through
// another handle, the next flush fails with a PreconditionFailed-kind error
// instead of interleaving two writers' content.
//
// The file's length is fixed at creation; a write that would run past it
// fails with an InvalidArgument-kind error before anything is sent.
type WriteStream struct {
	ctx context.Context
	f   FileURL
	o   WriteStreamOptions

	length int64 // fixed at create
	etag   ETag  // validity token, advanced by each flush

	buf []byte // bytes not yet sent
	pos int64  // file offset of buf[0]

	closed bool
}

// NewWriteStream creates the file at the given size, replacing any existing
// file at that path, and returns a sequential writer over it. size may be
// zero. The stream must be closed to flush its final buffer.
func NewWriteStream(ctx context.Context, f FileURL, size int64, o WriteStreamOptions) (*WriteStream, error) {
	o, err := o.defaults()
	if err != nil {
		return nil, err
	}
	cr, err := f.Create(ctx, size, o.FileHTTPHeaders, o.Metadata)
	if err != nil {
		return nil, err
	}
	return &WriteStream{
		ctx:    ctx,
		f:      f,
		o:      o,
		length: size,
		etag:   cr.ETag(),
	}, nil
}

// Write implements io.Writer. The bytes are buffered; full buffers are sent
// immediately and the remainder rides along on the next Write, Flush, or
// Close.
func (s *WriteStream) Write(p []byte) (int, error) {
	if s.closed {
		return 0, invalidArgument("stream is closed")
	}
	if s.pos+int64(len(s.buf))+int64(len(p)) > s.length {
		return 0, invalidArgument("write extends past the end of the file; the length is fixed at %d", s.length)
	}
	s.buf = append(s.buf, p...)
	for int64(len(s.buf)) >= s.o.BufferSize {
		if err := s.flush(int(s.o.BufferSize)); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

// Flush sends every buffered byte to the service. Flushed bytes are visible
// to other handles immediately.
func (s *WriteStream) Flush() error {
	if s.closed {
		return invalidArgument("stream is closed")
	}
	return s.flush(len(s.buf))
}

// Close flushes the remaining buffered bytes and releases the stream.
// Closing an already-closed stream is a no-op.
func (s *WriteStream) Close() error {
	if s.closed {
		return nil
	}
	if err := s.flush(len(s.buf)); err != nil {
		return err
	}
	s.closed = true
	s.buf = nil
	return nil
}

// flush sends the first n buffered bytes as one range write, conditioned on
// the last ETag this stream observed.
func (s *WriteStream) flush(n int) error {
	if n == 0 {
		return nil
	}
	resp, err := s.f.fileClient.UploadRange(s.ctx, toRange(s.pos, int64(n)), rangeWriteUpdate,
		bytes.NewReader(s.buf[:n]), nil, AccessConditions{IfMatch: s.etag})
	if err != nil {
		return err
	}
	s.etag = resp.ETag()
	s.pos += int64(n)
	s.buf = s.buf[:copy(s.buf, s.buf[n:])]
	return nil
}
