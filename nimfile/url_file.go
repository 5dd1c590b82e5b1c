package nimfile

import (
	"context"
	"crypto/md5"
	"encoding/base64"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/Azure/azure-pipeline-go/pipeline"
)

const (
	// FileMaxUploadRangeBytes indicates the maximum number of bytes that can be sent in a call to UploadRange.
	FileMaxUploadRangeBytes = 4 * 1024 * 1024 // 4MB

	// FileMaxSize indicates the maximum file size the service accepts.
	FileMaxSize = 1 * 1024 * 1024 * 1024 * 1024 // 1TB
)

// A FileURL represents a URL to a Nimbus Files file. The file is a sparse,
// fixed-length resource: only explicitly written ranges consume storage, and
// everything else reads back as zeros. Writes never change the length; only
// Create and Resize do.
type FileURL struct {
	fileClient fileClient
}

// NewFileURL creates a FileURL object using the specified URL and request policy pipeline.
func NewFileURL(url url.URL, p pipeline.Pipeline) FileURL {
	if p == nil {
		panic("p can't be nil")
	}
	return FileURL{fileClient: newFileClient(url, p)}
}

// URL returns the URL endpoint used by the FileURL object.
func (f FileURL) URL() url.URL {
	return f.fileClient.URL()
}

// String returns the URL as a string.
func (f FileURL) String() string {
	u := f.URL()
	return u.String()
}

// WithPipeline creates a new FileURL object identical to the source but with the specified request policy pipeline.
func (f FileURL) WithPipeline(p pipeline.Pipeline) FileURL {
	return NewFileURL(f.fileClient.URL(), p)
}

// validateSize rejects create/resize lengths outside the service's bounds
// before any request is built.
func validateSize(size int64) error {
	if size < 0 {
		return invalidArgument("size must be >= 0, got %d", size)
	}
	if size > FileMaxSize {
		return invalidArgument("size must be <= %d, got %d", int64(FileMaxSize), size)
	}
	return nil
}

// Create creates a new file of the given size or replaces an existing one.
// This only initializes the file: its content is all zeros and it has no
// written ranges until ranges are uploaded. size may be zero.
func (f FileURL) Create(ctx context.Context, size int64, h FileHTTPHeaders, metadata Metadata) (*FileCreateResponse, error) {
	if err := validateSize(size); err != nil {
		return nil, err
	}
	return f.fileClient.Create(ctx, size, h, metadata)
}

// Delete immediately removes the file from the store. It fails with a
// NotFound error when the file does not exist; see DeleteIfExists.
func (f FileURL) Delete(ctx context.Context) (*FileDeleteResponse, error) {
	return f.fileClient.Delete(ctx)
}

// Exists reports whether the file currently exists. Along with
// DeleteIfExists, this is the only operation defined to be safe against a
// non-existent file: that case returns (false, nil), not an error.
func (f FileURL) Exists(ctx context.Context) (bool, error) {
	_, err := f.fileClient.GetProperties(ctx)
	if err != nil {
		if KindOf(err) == ErrorKindNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// DeleteIfExists removes the file when present, reporting whether a delete
// happened. A missing file is not an error.
func (f FileURL) DeleteIfExists(ctx context.Context) (bool, error) {
	_, err := f.fileClient.Delete(ctx)
	if err != nil {
		if KindOf(err) == ErrorKindNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// GetProperties refreshes the caller's view of the file: current length,
// content properties, metadata, and ETag. Properties the service did not
// return come back unset, never stale.
func (f FileURL) GetProperties(ctx context.Context) (*FileGetPropertiesResponse, error) {
	return f.fileClient.GetProperties(ctx)
}

// SetHTTPHeaders persists the full content property set: this is a replace,
// not a merge, so a zero field clears the stored value. Each call refreshes
// the file's ETag and its Last-Modified time never moves backwards, so two
// sequential calls are distinguishable by token inequality.
func (f FileURL) SetHTTPHeaders(ctx context.Context, h FileHTTPHeaders) (*FileSetPropertiesResponse, error) {
	return f.fileClient.SetProperties(ctx, nil, h)
}

// SetMetadata replaces the file's user-defined metadata.
func (f FileURL) SetMetadata(ctx context.Context, metadata Metadata) (*FileSetMetadataResponse, error) {
	return f.fileClient.SetMetadata(ctx, metadata)
}

// Resize changes the file's length. Growing zero-fills the appended region
// without adding written ranges; shrinking discards truncated content and
// clips written ranges at the new boundary, so a later re-grow reads zeros,
// not stale bytes. Content properties and metadata survive a resize.
func (f FileURL) Resize(ctx context.Context, length int64) (*FileSetPropertiesResponse, error) {
	if err := validateSize(length); err != nil {
		return nil, err
	}
	return f.fileClient.SetProperties(ctx, &length, FileHTTPHeaders{})
}

// UploadRangeOptions configures UploadRange.
type UploadRangeOptions struct {
	// TransactionalMD5 makes the client hash the outgoing bytes and send the
	// digest with the request; the service recomputes it and rejects the
	// write with an integrity error when they disagree.
	TransactionalMD5 bool

	// AccessConditions makes the write conditional on the file's current ETag.
	AccessConditions AccessConditions
}

// UploadRange overwrites [offset, offset+n) with the body's n bytes and marks
// that interval written. The target interval must lie inside the file's
// current length: a range write never grows the file (that requires Resize),
// and the service rejects one that would with an InvalidArgument-kind error.
// body must be seekable and positioned at 0.
func (f FileURL) UploadRange(ctx context.Context, offset int64, body io.ReadSeeker, o UploadRangeOptions) (*FileUploadRangeResponse, error) {
	if offset < 0 {
		return nil, invalidArgument("offset must be >= 0, got %d", offset)
	}
	if body == nil {
		return nil, invalidArgument("body must not be nil")
	}
	count, err := seekableStreamSize(body)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, invalidArgument("body must contain at least 1 byte")
	}

	var transactionalMD5 *string
	if o.TransactionalMD5 {
		hash := md5.New()
		if _, err = io.Copy(hash, body); err != nil {
			return nil, err
		}
		if _, err = body.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		digest := base64.StdEncoding.EncodeToString(hash.Sum(nil))
		transactionalMD5 = &digest
	}

	return f.fileClient.UploadRange(ctx, toRange(offset, count), rangeWriteUpdate, body, transactionalMD5, o.AccessConditions)
}

// ClearRange marks [offset, offset+count) unwritten and releases its storage.
// The file's length is unchanged and the cleared interval reads back as
// zeros; this is distinct from Delete. Clearing is byte-granular and
// idempotent. count must be a positive byte count, never CountToEnd. The
// target interval must lie inside the file's current length, exactly as for
// UploadRange; the service rejects one extending past the end with an
// InvalidArgument-kind error.
func (f FileURL) ClearRange(ctx context.Context, offset int64, count int64) (*FileUploadRangeResponse, error) {
	if offset < 0 {
		return nil, invalidArgument("offset must be >= 0, got %d", offset)
	}
	if count <= 0 {
		return nil, invalidArgument("count cannot be CountToEnd, and must be > 0")
	}
	return f.fileClient.UploadRange(ctx, toRange(offset, count), rangeWriteClear, nil, nil, AccessConditions{})
}

// Download reads [offset, offset+count). Written sub-regions yield their
// last-written content and unwritten sub-regions yield zeros, so any valid
// sub-range is byte-identical to the same slice of a full-file download.
// Pass CountToEnd to read from offset to the end of the file; an explicit
// count of 0 is invalid and fails before any request is sent. A range that
// starts at or extends past the end of the file fails with an
// OutOfRange-kind error.
func (f FileURL) Download(ctx context.Context, offset int64, count int64, rangeGetContentMD5 bool) (*DownloadResponse, error) {
	if err := validateDownloadRange(offset, count); err != nil {
		return nil, err
	}
	if rangeGetContentMD5 && count == CountToEnd {
		return nil, invalidArgument("rangeGetContentMD5 requires an explicit count")
	}

	dr, err := f.fileClient.Download(ctx, downloadRangePointer(offset, count), rangeGetContentMD5, AccessConditions{})
	if err != nil {
		return nil, err
	}
	return &DownloadResponse{
		dr:  dr,
		ctx: ctx,
		f:   f,
		info: HTTPGetterInfo{
			Offset: offset,
			Count:  respContentLength(dr.rawResponse),
			ETag:   respETag(dr.rawResponse),
		},
	}, nil
}

func validateDownloadRange(offset, count int64) error {
	if offset < 0 {
		return invalidArgument("offset must be >= 0, got %d", offset)
	}
	if count == 0 {
		// An explicit zero-length read is distinct from "no count specified"
		// (CountToEnd) and is always out of range.
		return outOfRange("count must be > 0, or CountToEnd to read to the end of the file")
	}
	if count < CountToEnd {
		return invalidArgument("count must be > 0, or CountToEnd, got %d", count)
	}
	return nil
}

// downloadRangePointer renders the wire range header, or nil for a whole-file read.
func downloadRangePointer(offset, count int64) *string {
	if offset == 0 && count == CountToEnd {
		return nil
	}
	r := toRange(offset, count)
	return &r
}

// GetRangeList returns the file's written ranges intersecting
// [offset, offset+count): disjoint, coalesced into maximal intervals, sorted
// ascending, 0-based inclusive on both ends. Bytes outside every listed range
// read as zero. Pass offset 0 and CountToEnd to list the whole file.
func (f FileURL) GetRangeList(ctx context.Context, offset int64, count int64) (*RangeList, error) {
	if offset < 0 {
		return nil, invalidArgument("offset must be >= 0, got %d", offset)
	}
	if count == 0 || count < CountToEnd {
		return nil, invalidArgument("count must be > 0, or CountToEnd, got %d", count)
	}
	return f.fileClient.GetRangeList(ctx, downloadRangePointer(offset, count))
}

// DownloadResponse wraps the wire response to a Download. Body() gives the
// content stream; the other methods surface the file's properties, which ride
// along on every download.
type DownloadResponse struct {
	dr  *downloadResponse
	ctx context.Context
	f   FileURL

	// info tracks what a replacement request must fetch if the body stream
	// breaks mid-read.
	info HTTPGetterInfo
}

// Body returns the content stream. With a non-zero MaxRetryRequests the
// stream transparently re-issues ranged reads (conditioned on the ETag
// captured at download time) when a transport error interrupts it; a
// concurrent mutation of the file surfaces as an error rather than mixed
// content.
func (r *DownloadResponse) Body(o RetryReaderOptions) io.ReadCloser {
	if o.MaxRetryRequests == 0 {
		return r.Response().Body
	}
	return NewRetryReader(r.ctx, r.Response(), r.info, o,
		func(ctx context.Context, getInfo HTTPGetterInfo) (*http.Response, error) {
			rangeStr := toRange(getInfo.Offset, getInfo.Count)
			resp, err := r.f.fileClient.Download(ctx, &rangeStr, false, AccessConditions{IfMatch: getInfo.ETag})
			if err != nil {
				return nil, err
			}
			return resp.Response(), nil
		})
}

func (r *DownloadResponse) Response() *http.Response { return r.dr.rawResponse }
func (r *DownloadResponse) StatusCode() int          { return r.dr.rawResponse.StatusCode }
func (r *DownloadResponse) Status() string           { return r.dr.rawResponse.Status }
func (r *DownloadResponse) ETag() ETag               { return respETag(r.dr.rawResponse) }
func (r *DownloadResponse) LastModified() time.Time  { return respLastModified(r.dr.rawResponse) }
func (r *DownloadResponse) RequestID() string        { return respRequestID(r.dr.rawResponse) }
func (r *DownloadResponse) Version() string          { return respVersion(r.dr.rawResponse) }
func (r *DownloadResponse) Date() time.Time          { return respDate(r.dr.rawResponse) }

// ContentLength returns the byte length of this response's body.
func (r *DownloadResponse) ContentLength() int64 { return respContentLength(r.dr.rawResponse) }

// ContentRange identifies the slice of the file this response carries, for ranged downloads.
func (r *DownloadResponse) ContentRange() string { return r.dr.rawResponse.Header.Get("Content-Range") }

// AcceptRanges is "bytes" for a resource supporting ranged reads.
func (r *DownloadResponse) AcceptRanges() string { return r.dr.rawResponse.Header.Get("Accept-Ranges") }

func (r *DownloadResponse) ContentType() string {
	return r.dr.rawResponse.Header.Get(headerContentType)
}

func (r *DownloadResponse) ContentEncoding() string {
	return r.dr.rawResponse.Header.Get(headerContentEncoding)
}

func (r *DownloadResponse) ContentLanguage() string {
	return r.dr.rawResponse.Header.Get(headerContentLanguage)
}

func (r *DownloadResponse) CacheControl() string {
	return r.dr.rawResponse.Header.Get(headerCacheControl)
}

func (r *DownloadResponse) ContentDisposition() string {
	return r.dr.rawResponse.Header.Get(headerContentDispo)
}

// ContentMD5 returns the service-computed hash of the returned range, present
// only when the download asked for it.
func (r *DownloadResponse) ContentMD5() [md5.Size]byte {
	return md5StringToMD5(r.dr.rawResponse.Header.Get(headerTransactionalMD5))
}

// FileContentMD5 returns the whole-file hash property, if one was set.
func (r *DownloadResponse) FileContentMD5() [md5.Size]byte {
	return md5StringToMD5(r.dr.rawResponse.Header.Get(headerContentMD5))
}

// NewMetadata returns the user-defined key/value pairs for this file.
func (r *DownloadResponse) NewMetadata() Metadata { return respMetadata(r.dr.rawResponse) }

// NewHTTPHeaders returns the user-modifiable properties for this file.
func (r *DownloadResponse) NewHTTPHeaders() FileHTTPHeaders {
	return respHTTPHeaders(r.dr.rawResponse)
}
