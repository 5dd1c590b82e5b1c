package nimfile

import (
	"context"
	"io"
	"net/http"
)

// ReadStreamOptions configures NewReadStream.
type ReadStreamOptions struct {
	// BufferSize is the number of bytes fetched per remote read; the default
	// (and maximum) is FileMaxUploadRangeBytes.
	BufferSize int64

	// MaxRetryRequests is the retry budget for each remote read's body stream.
	MaxRetryRequests int
}

func (o ReadStreamOptions) defaults() (ReadStreamOptions, error) {
	if o.BufferSize < 0 || o.BufferSize > FileMaxUploadRangeBytes {
		return o, invalidArgument("BufferSize must be >= 0 and <= %d", int64(FileMaxUploadRangeBytes))
	}
	if o.BufferSize == 0 {
		o.BufferSize = FileMaxUploadRangeBytes
	}
	return o, nil
}

// ReadStream is a sequential reader over a file with mark/reset support.
//
// The stream captures the file's ETag when opened and sends it as an If-Match
// condition on every remote read, so the bytes observed across the stream's
// whole lifetime belong to one version of the file: if the file is mutated
// (content, properties, or metadata) underneath the stream, the next remote
// read fails with a PreconditionFailed-kind error instead of silently
// returning mixed or stale data.
//
// Mark records the current position; Reset returns to it. A reset within the
// buffered window replays already-seen bytes with no remote request.
type ReadStream struct {
	ctx context.Context
	f   FileURL
	o   ReadStreamOptions

	length int64 // file length at open
	etag   ETag  // validity token captured at open

	buf      []byte // current window
	bufStart int64  // file offset of buf[0]
	pos      int64  // absolute position of the next byte to read

	markPos   int64 // -1 when no mark is set
	markLimit int64

	closed bool
}

// NewReadStream opens a sequential reader over the file's current version.
func NewReadStream(ctx context.Context, f FileURL, o ReadStreamOptions) (*ReadStream, error) {
	o, err := o.defaults()
	if err != nil {
		return nil, err
	}
	props, err := f.GetProperties(ctx)
	if err != nil {
		return nil, err
	}
	return &ReadStream{
		ctx:     ctx,
		f:       f,
		o:       o,
		length:  props.ContentLength(),
		etag:    props.ETag(),
		markPos: -1,
	}, nil
}

// Read implements io.Reader.
func (s *ReadStream) Read(p []byte) (int, error) {
	if s.closed {
		return 0, invalidArgument("stream is closed")
	}
	if s.pos >= s.length {
		return 0, io.EOF
	}
	if !s.inWindow(s.pos) {
		if err := s.refill(); err != nil {
			return 0, err
		}
	}
	n := copy(p, s.buf[s.pos-s.bufStart:])
	s.pos += int64(n)
	s.checkMarkExpiry()
	return n, nil
}

// ReadByte implements io.ByteReader.
func (s *ReadStream) ReadByte() (byte, error) {
	b := [1]byte{}
	for {
		n, err := s.Read(b[:])
		if err != nil {
			return 0, err
		}
		if n == 1 {
			return b[0], nil
		}
	}
}

// Mark records the current position. The mark stays valid while no more than
// readLimit bytes are read past it; readLimit <= 0 keeps it valid until the
// stream is closed or re-marked.
func (s *ReadStream) Mark(readLimit int64) {
	s.markPos = s.pos
	s.markLimit = readLimit
}

// Reset returns the stream to the marked position. When the marked bytes are
// still buffered they are replayed with no remote request; otherwise the next
// Read re-fetches them conditionally on the ETag captured at open, so a
// mutated file fails the read rather than yielding stale data.
func (s *ReadStream) Reset() error {
	if s.closed {
		return invalidArgument("stream is closed")
	}
	if s.markPos < 0 {
		return invalidArgument("Reset called with no valid mark")
	}
	s.pos = s.markPos
	return nil
}

// Close releases the stream. Closing is idempotent.
func (s *ReadStream) Close() error {
	s.closed = true
	s.buf = nil
	return nil
}

func (s *ReadStream) inWindow(pos int64) bool {
	return pos >= s.bufStart && pos < s.bufStart+int64(len(s.buf))
}

func (s *ReadStream) checkMarkExpiry() {
	if s.markPos >= 0 && s.markLimit > 0 && s.pos-s.markPos > s.markLimit {
		s.markPos = -1
	}
}

// refill downloads the window starting at the current position. The If-Match
// condition pins the read to the version observed at open.
func (s *ReadStream) refill() error {
	count := s.o.BufferSize
	if remaining := s.length - s.pos; remaining < count {
		count = remaining
	}
	rangeStr := toRange(s.pos, count)
	dr, err := s.f.fileClient.Download(s.ctx, &rangeStr, false, AccessConditions{IfMatch: s.etag})
	if err != nil {
		return err
	}
	body := NewRetryReader(s.ctx, dr.rawResponse,
		HTTPGetterInfo{Offset: s.pos, Count: count, ETag: s.etag},
		RetryReaderOptions{MaxRetryRequests: s.o.MaxRetryRequests},
		s.getter)
	defer body.Close()

	buf := make([]byte, count)
	if _, err = io.ReadFull(body, buf); err != nil {
		return err
	}
	s.buf = buf
	s.bufStart = s.pos
	return nil
}

func (s *ReadStream) getter(ctx context.Context, info HTTPGetterInfo) (*http.Response, error) {
	rangeStr := toRange(info.Offset, info.Count)
	dr, err := s.f.fileClient.Download(ctx, &rangeStr, false, AccessConditions{IfMatch: info.ETag})
	if err != nil {
		return nil, err
	}
	return dr.rawResponse, nil
}
