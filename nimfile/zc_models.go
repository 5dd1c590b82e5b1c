package nimfile

import (
	"crypto/md5"
	"encoding/base64"
	"encoding/xml"
)

// ETag is the opacity token the service refreshes on every content or
// property mutation; it is the currency of optimistic concurrency.
type ETag string

const (
	// ETagNone represents an empty ETag.
	ETagNone ETag = ""

	// ETagAny matches any resource state in a conditional header.
	ETagAny ETag = "*"
)

// Metadata contains the user-defined key/value pairs associated with a
// store or file. Keys are case-insensitive; the service stores them lowercased.
type Metadata map[string]string

// Wire headers. The service speaks plain HTTP with an x-nf- extension prefix.
const (
	headerType             = "x-nf-type"
	headerContentLength    = "x-nf-content-length"
	headerWrite            = "x-nf-write"
	headerRange            = "x-nf-range"
	headerRangeGetMD5      = "x-nf-range-get-content-md5"
	headerContentMD5       = "x-nf-content-md5"
	headerErrorCode        = "x-nf-error-code"
	headerRequestID        = "x-nf-request-id"
	headerVersion          = "x-nf-version"
	headerMetaPrefix       = "x-nf-meta-"
	headerContentType      = "x-nf-content-type"
	headerContentEncoding  = "x-nf-content-encoding"
	headerContentLanguage  = "x-nf-content-language"
	headerCacheControl     = "x-nf-cache-control"
	headerContentDispo     = "x-nf-content-disposition"
	headerClientRequestID  = "x-nf-client-request-id"
	headerUserAgent        = "User-Agent"
	headerIfMatch          = "If-Match"
	headerIfNoneMatch      = "If-None-Match"
	headerTransactionalMD5 = "Content-MD5"
)

// ServiceVersion is sent with, and echoed on, every request.
const ServiceVersion = "2024-05-01"

// FileHTTPHeaders contains the read/writeable content properties of a file.
// SetHTTPHeaders persists the full set: a zero field clears the stored value.
type FileHTTPHeaders struct {
	ContentType        string
	ContentMD5         [md5.Size]byte
	ContentEncoding    string
	ContentLanguage    string
	ContentDisposition string
	CacheControl       string
}

func (h FileHTTPHeaders) contentMD5Pointer() *string {
	if h.ContentMD5 == [md5.Size]byte{} {
		return nil
	}
	str := base64.StdEncoding.EncodeToString(h.ContentMD5[:])
	return &str
}

func md5StringToMD5(md5String string) (hash [md5.Size]byte) {
	if md5String == "" {
		return
	}
	md5Slice, err := base64.StdEncoding.DecodeString(md5String)
	if err != nil {
		return
	}
	copy(hash[:], md5Slice)
	return
}

// AccessConditions carries the optional concurrency preconditions for a
// mutating or reading operation. A zero value imposes no condition.
type AccessConditions struct {
	// IfMatch proceeds only when the resource's current ETag equals this value.
	IfMatch ETag

	// IfNoneMatch proceeds only when the resource's current ETag differs from
	// this value; ETagAny means "only when the resource does not exist".
	IfNoneMatch ETag
}

// Range describes a written byte interval of a file, 0-based inclusive on
// both ends. Ranges reported by GetRangeList are disjoint, coalesced, and
// sorted ascending by Start.
type Range struct {
	XMLName xml.Name `xml:"Range"`
	Start   int64    `xml:"Start"`
	End     int64    `xml:"End"`
}

// rangeListDocument is the body of a GetRangeList response.
type rangeListDocument struct {
	XMLName xml.Name `xml:"Ranges"`
	Ranges  []Range  `xml:"Range"`
}
