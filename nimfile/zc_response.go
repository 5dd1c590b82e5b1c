package nimfile

import (
	"crypto/md5"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Header accessor helpers shared by the typed responses.

func respETag(r *http.Response) ETag { return ETag(r.Header.Get("ETag")) }

func respLastModified(r *http.Response) time.Time {
	t, _ := time.Parse(http.TimeFormat, r.Header.Get("Last-Modified"))
	return t
}

func respDate(r *http.Response) time.Time {
	t, _ := time.Parse(http.TimeFormat, r.Header.Get("Date"))
	return t
}

func respRequestID(r *http.Response) string { return r.Header.Get(headerRequestID) }

func respVersion(r *http.Response) string { return r.Header.Get(headerVersion) }

func respContentLength(r *http.Response) int64 {
	n, err := strconv.ParseInt(r.Header.Get("Content-Length"), 10, 64)
	if err != nil {
		return -1
	}
	return n
}

func respFileContentLength(r *http.Response) int64 {
	n, err := strconv.ParseInt(r.Header.Get(headerContentLength), 10, 64)
	if err != nil {
		return -1
	}
	return n
}

// respMetadata rebuilds the metadata map from x-nf-meta-* headers. Fields the
// service did not return stay absent rather than stale.
func respMetadata(r *http.Response) Metadata {
	md := Metadata{}
	for k, v := range r.Header {
		if lk := strings.ToLower(k); strings.HasPrefix(lk, headerMetaPrefix) {
			md[lk[len(headerMetaPrefix):]] = v[0]
		}
	}
	return md
}

func respHTTPHeaders(r *http.Response) FileHTTPHeaders {
	return FileHTTPHeaders{
		ContentType:        r.Header.Get(headerContentType),
		ContentEncoding:    r.Header.Get(headerContentEncoding),
		ContentLanguage:    r.Header.Get(headerContentLanguage),
		CacheControl:       r.Header.Get(headerCacheControl),
		ContentDisposition: r.Header.Get(headerContentDispo),
		ContentMD5:         md5StringToMD5(r.Header.Get(headerContentMD5)),
	}
}

// FileCreateResponse is returned by FileURL.Create.
type FileCreateResponse struct {
	rawResponse *http.Response
}

func (r *FileCreateResponse) Response() *http.Response { return r.rawResponse }
func (r *FileCreateResponse) StatusCode() int          { return r.rawResponse.StatusCode }
func (r *FileCreateResponse) Status() string           { return r.rawResponse.Status }
func (r *FileCreateResponse) ETag() ETag               { return respETag(r.rawResponse) }
func (r *FileCreateResponse) LastModified() time.Time  { return respLastModified(r.rawResponse) }
func (r *FileCreateResponse) RequestID() string        { return respRequestID(r.rawResponse) }
func (r *FileCreateResponse) Version() string          { return respVersion(r.rawResponse) }
func (r *FileCreateResponse) Date() time.Time          { return respDate(r.rawResponse) }

// FileDeleteResponse is returned by FileURL.Delete.
type FileDeleteResponse struct {
	rawResponse *http.Response
}

func (r *FileDeleteResponse) Response() *http.Response { return r.rawResponse }
func (r *FileDeleteResponse) StatusCode() int          { return r.rawResponse.StatusCode }
func (r *FileDeleteResponse) Status() string           { return r.rawResponse.Status }
func (r *FileDeleteResponse) RequestID() string        { return respRequestID(r.rawResponse) }
func (r *FileDeleteResponse) Version() string          { return respVersion(r.rawResponse) }
func (r *FileDeleteResponse) Date() time.Time          { return respDate(r.rawResponse) }

// FileGetPropertiesResponse is returned by FileURL.GetProperties: the
// refresh operation that reconciles a handle's local view with the remote
// resource's current length, properties, and metadata.
type FileGetPropertiesResponse struct {
	rawResponse *http.Response
}

func (r *FileGetPropertiesResponse) Response() *http.Response { return r.rawResponse }
func (r *FileGetPropertiesResponse) StatusCode() int          { return r.rawResponse.StatusCode }
func (r *FileGetPropertiesResponse) Status() string           { return r.rawResponse.Status }
func (r *FileGetPropertiesResponse) ETag() ETag               { return respETag(r.rawResponse) }
func (r *FileGetPropertiesResponse) LastModified() time.Time  { return respLastModified(r.rawResponse) }
func (r *FileGetPropertiesResponse) RequestID() string        { return respRequestID(r.rawResponse) }
func (r *FileGetPropertiesResponse) Version() string          { return respVersion(r.rawResponse) }
func (r *FileGetPropertiesResponse) Date() time.Time          { return respDate(r.rawResponse) }

// ContentLength returns the file's current length in bytes.
func (r *FileGetPropertiesResponse) ContentLength() int64 {
	return respFileContentLength(r.rawResponse)
}

// FileType returns the resource type ("File").
func (r *FileGetPropertiesResponse) FileType() string { return r.rawResponse.Header.Get(headerType) }

func (r *FileGetPropertiesResponse) ContentType() string {
	return r.rawResponse.Header.Get(headerContentType)
}

func (r *FileGetPropertiesResponse) ContentEncoding() string {
	return r.rawResponse.Header.Get(headerContentEncoding)
}

func (r *FileGetPropertiesResponse) ContentLanguage() string {
	return r.rawResponse.Header.Get(headerContentLanguage)
}

func (r *FileGetPropertiesResponse) CacheControl() string {
	return r.rawResponse.Header.Get(headerCacheControl)
}

func (r *FileGetPropertiesResponse) ContentDisposition() string {
	return r.rawResponse.Header.Get(headerContentDispo)
}

// ContentMD5 returns the whole-file hash property, if one was set.
func (r *FileGetPropertiesResponse) ContentMD5() [md5.Size]byte {
	return md5StringToMD5(r.rawResponse.Header.Get(headerContentMD5))
}

// NewMetadata returns the user-defined key/value pairs for this file.
func (r *FileGetPropertiesResponse) NewMetadata() Metadata { return respMetadata(r.rawResponse) }

// NewHTTPHeaders returns the user-modifiable properties for this file.
func (r *FileGetPropertiesResponse) NewHTTPHeaders() FileHTTPHeaders {
	return respHTTPHeaders(r.rawResponse)
}

// FileSetPropertiesResponse is returned by FileURL.SetHTTPHeaders and FileURL.Resize.
type FileSetPropertiesResponse struct {
	rawResponse *http.Response
}

func (r *FileSetPropertiesResponse) Response() *http.Response { return r.rawResponse }
func (r *FileSetPropertiesResponse) StatusCode() int          { return r.rawResponse.StatusCode }
func (r *FileSetPropertiesResponse) Status() string           { return r.rawResponse.Status }
func (r *FileSetPropertiesResponse) ETag() ETag               { return respETag(r.rawResponse) }
func (r *FileSetPropertiesResponse) LastModified() time.Time  { return respLastModified(r.rawResponse) }
func (r *FileSetPropertiesResponse) RequestID() string        { return respRequestID(r.rawResponse) }
func (r *FileSetPropertiesResponse) Version() string          { return respVersion(r.rawResponse) }
func (r *FileSetPropertiesResponse) Date() time.Time          { return respDate(r.rawResponse) }

// FileSetMetadataResponse is returned by FileURL.SetMetadata.
type FileSetMetadataResponse struct {
	rawResponse *http.Response
}

func (r *FileSetMetadataResponse) Response() *http.Response { return r.rawResponse }
func (r *FileSetMetadataResponse) StatusCode() int          { return r.rawResponse.StatusCode }
func (r *FileSetMetadataResponse) Status() string           { return r.rawResponse.Status }
func (r *FileSetMetadataResponse) ETag() ETag               { return respETag(r.rawResponse) }
func (r *FileSetMetadataResponse) RequestID() string        { return respRequestID(r.rawResponse) }
func (r *FileSetMetadataResponse) Version() string          { return respVersion(r.rawResponse) }
func (r *FileSetMetadataResponse) Date() time.Time          { return respDate(r.rawResponse) }

// FileUploadRangeResponse is returned by FileURL.UploadRange and FileURL.ClearRange.
type FileUploadRangeResponse struct {
	rawResponse *http.Response
}

func (r *FileUploadRangeResponse) Response() *http.Response { return r.rawResponse }
func (r *FileUploadRangeResponse) StatusCode() int          { return r.rawResponse.StatusCode }
func (r *FileUploadRangeResponse) Status() string           { return r.rawResponse.Status }
func (r *FileUploadRangeResponse) ETag() ETag               { return respETag(r.rawResponse) }
func (r *FileUploadRangeResponse) LastModified() time.Time  { return respLastModified(r.rawResponse) }
func (r *FileUploadRangeResponse) RequestID() string        { return respRequestID(r.rawResponse) }
func (r *FileUploadRangeResponse) Version() string          { return respVersion(r.rawResponse) }
func (r *FileUploadRangeResponse) Date() time.Time          { return respDate(r.rawResponse) }

// ContentMD5 returns the service-computed hash of the uploaded range.
func (r *FileUploadRangeResponse) ContentMD5() [md5.Size]byte {
	return md5StringToMD5(r.rawResponse.Header.Get(headerTransactionalMD5))
}

// downloadResponse is the raw wire response to a download; FileURL.Download
// wraps it into a DownloadResponse that can rebuild broken body streams.
type downloadResponse struct {
	rawResponse *http.Response
}

func (r *downloadResponse) Response() *http.Response { return r.rawResponse }

// RangeList is returned by FileURL.GetRangeList. Ranges holds the written
// intervals: disjoint, coalesced, ascending by Start, 0-based inclusive.
type RangeList struct {
	rawResponse *http.Response

	Ranges []Range
}

func (r *RangeList) Response() *http.Response { return r.rawResponse }
func (r *RangeList) StatusCode() int          { return r.rawResponse.StatusCode }
func (r *RangeList) Status() string           { return r.rawResponse.Status }
func (r *RangeList) ETag() ETag               { return respETag(r.rawResponse) }
func (r *RangeList) LastModified() time.Time  { return respLastModified(r.rawResponse) }
func (r *RangeList) RequestID() string        { return respRequestID(r.rawResponse) }
func (r *RangeList) Version() string          { return respVersion(r.rawResponse) }
func (r *RangeList) Date() time.Time          { return respDate(r.rawResponse) }

// FileContentLength returns the file's total length, which bounds every listed range.
func (r *RangeList) FileContentLength() int64 { return respFileContentLength(r.rawResponse) }

// StoreCreateResponse is returned by StoreURL.Create.
type StoreCreateResponse struct {
	rawResponse *http.Response
}

func (r *StoreCreateResponse) Response() *http.Response { return r.rawResponse }
func (r *StoreCreateResponse) StatusCode() int          { return r.rawResponse.StatusCode }
func (r *StoreCreateResponse) Status() string           { return r.rawResponse.Status }
func (r *StoreCreateResponse) ETag() ETag               { return respETag(r.rawResponse) }
func (r *StoreCreateResponse) RequestID() string        { return respRequestID(r.rawResponse) }
func (r *StoreCreateResponse) Version() string          { return respVersion(r.rawResponse) }
func (r *StoreCreateResponse) Date() time.Time          { return respDate(r.rawResponse) }

// StoreDeleteResponse is returned by StoreURL.Delete.
type StoreDeleteResponse struct {
	rawResponse *http.Response
}

func (r *StoreDeleteResponse) Response() *http.Response { return r.rawResponse }
func (r *StoreDeleteResponse) StatusCode() int          { return r.rawResponse.StatusCode }
func (r *StoreDeleteResponse) Status() string           { return r.rawResponse.Status }
func (r *StoreDeleteResponse) RequestID() string        { return respRequestID(r.rawResponse) }
func (r *StoreDeleteResponse) Version() string          { return respVersion(r.rawResponse) }
func (r *StoreDeleteResponse) Date() time.Time          { return respDate(r.rawResponse) }

// StoreGetPropertiesResponse is returned by StoreURL.GetProperties.
type StoreGetPropertiesResponse struct {
	rawResponse *http.Response
}

func (r *StoreGetPropertiesResponse) Response() *http.Response { return r.rawResponse }
func (r *StoreGetPropertiesResponse) StatusCode() int          { return r.rawResponse.StatusCode }
func (r *StoreGetPropertiesResponse) Status() string           { return r.rawResponse.Status }
func (r *StoreGetPropertiesResponse) ETag() ETag               { return respETag(r.rawResponse) }
func (r *StoreGetPropertiesResponse) LastModified() time.Time  { return respLastModified(r.rawResponse) }
func (r *StoreGetPropertiesResponse) RequestID() string        { return respRequestID(r.rawResponse) }
func (r *StoreGetPropertiesResponse) Version() string          { return respVersion(r.rawResponse) }
func (r *StoreGetPropertiesResponse) Date() time.Time          { return respDate(r.rawResponse) }

// NewMetadata returns the user-defined key/value pairs for this store.
func (r *StoreGetPropertiesResponse) NewMetadata() Metadata { return respMetadata(r.rawResponse) }

// ServiceGetPropertiesResponse is returned by ServiceURL.GetProperties.
type ServiceGetPropertiesResponse struct {
	rawResponse *http.Response
}

func (r *ServiceGetPropertiesResponse) Response() *http.Response { return r.rawResponse }
func (r *ServiceGetPropertiesResponse) StatusCode() int          { return r.rawResponse.StatusCode }
func (r *ServiceGetPropertiesResponse) Status() string           { return r.rawResponse.Status }
func (r *ServiceGetPropertiesResponse) RequestID() string        { return respRequestID(r.rawResponse) }
func (r *ServiceGetPropertiesResponse) Version() string          { return respVersion(r.rawResponse) }
func (r *ServiceGetPropertiesResponse) Date() time.Time          { return respDate(r.rawResponse) }
