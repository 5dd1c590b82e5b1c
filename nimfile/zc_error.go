package nimfile

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ErrorKind classifies every error this package can produce, whether it was
// detected locally before a request was sent or reported by the service.
type ErrorKind int

const (
	// ErrorKindOther is any failure not covered by the more specific kinds
	// (transport faults, unexpected status codes, and so on).
	ErrorKindOther ErrorKind = iota

	// ErrorKindInvalidArgument is a malformed input (negative offset, zero
	// count, oversized create, bad name) caught before any network call, or a
	// request the service rejected as unprocessable.
	ErrorKindInvalidArgument

	// ErrorKindOutOfRange is a well-formed range request that falls outside
	// the file's current length.
	ErrorKindOutOfRange

	// ErrorKindNotFound is an operation against a resource that does not exist.
	ErrorKindNotFound

	// ErrorKindIntegrity is a content-hash mismatch detected on upload or download.
	ErrorKindIntegrity

	// ErrorKindPreconditionFailed is a conditional operation that lost a
	// concurrency race. It is propagated, never retried.
	ErrorKindPreconditionFailed
)

// ServiceCode is the service-reported error code carried on failed responses.
type ServiceCode string

const (
	// ServiceCodeNone is returned for errors that carry no service code,
	// such as client-side validation failures.
	ServiceCodeNone ServiceCode = ""

	ServiceCodeResourceNotFound      ServiceCode = "ResourceNotFound"
	ServiceCodeResourceAlreadyExists ServiceCode = "ResourceAlreadyExists"
	ServiceCodeStoreNotFound         ServiceCode = "StoreNotFound"
	ServiceCodeStoreAlreadyExists    ServiceCode = "StoreAlreadyExists"
	ServiceCodeInvalidRange          ServiceCode = "InvalidRange"
	ServiceCodeRangeBeyondEndOfFile  ServiceCode = "RangeBeyondEndOfFile"
	ServiceCodeMd5Mismatch           ServiceCode = "Md5Mismatch"
	ServiceCodeConditionNotMet       ServiceCode = "ConditionNotMet"
	ServiceCodeInvalidInput          ServiceCode = "InvalidInput"
	ServiceCodeFileTooLarge          ServiceCode = "FileTooLarge"
)

// StorageError identifies any error reported by the package; use KindOf (or a
// type assertion to this interface) to classify an error returned by any
// operation.
type StorageError interface {
	error

	// Kind returns the classification of this error.
	Kind() ErrorKind

	// ServiceCode returns the service-reported code, or ServiceCodeNone for
	// errors raised before a request was sent.
	ServiceCode() ServiceCode

	// Response returns the raw HTTP response, or nil for errors raised before
	// a request was sent.
	Response() *http.Response
}

// KindOf classifies err. Errors not produced by this package report ErrorKindOther.
func KindOf(err error) ErrorKind {
	if se, ok := err.(StorageError); ok {
		return se.Kind()
	}
	return ErrorKindOther
}

// validationError is raised synchronously for malformed inputs; it never
// reaches the wire.
type validationError struct {
	kind ErrorKind
	msg  string
}

func (e *validationError) Error() string            { return e.msg }
func (e *validationError) Kind() ErrorKind          { return e.kind }
func (e *validationError) ServiceCode() ServiceCode { return ServiceCodeNone }
func (e *validationError) Response() *http.Response { return nil }

func invalidArgument(format string, a ...interface{}) error {
	return &validationError{kind: ErrorKindInvalidArgument, msg: fmt.Sprintf(format, a...)}
}

func outOfRange(format string, a ...interface{}) error {
	return &validationError{kind: ErrorKindOutOfRange, msg: fmt.Sprintf(format, a...)}
}

// storageError wraps a failed service response. The body has already been
// read and the error document parsed by the time it is returned to a caller.
type storageError struct {
	serviceCode ServiceCode
	message     string
	response    *http.Response
}

func (e *storageError) ServiceCode() ServiceCode { return e.serviceCode }
func (e *storageError) Response() *http.Response { return e.response }

// Kind maps the status code and service code to the error taxonomy. The
// service code wins when it is more specific than the status class.
func (e *storageError) Kind() ErrorKind {
	switch e.serviceCode {
	case ServiceCodeMd5Mismatch:
		return ErrorKindIntegrity
	case ServiceCodeRangeBeyondEndOfFile, ServiceCodeInvalidInput, ServiceCodeFileTooLarge:
		return ErrorKindInvalidArgument
	}
	switch e.response.StatusCode {
	case http.StatusNotFound:
		return ErrorKindNotFound
	case http.StatusRequestedRangeNotSatisfiable:
		return ErrorKindOutOfRange
	case http.StatusPreconditionFailed:
		return ErrorKindPreconditionFailed
	case http.StatusBadRequest:
		return ErrorKindInvalidArgument
	}
	return ErrorKindOther
}

func (e *storageError) Error() string {
	b := &bytes.Buffer{}
	fmt.Fprintf(b, "===== RESPONSE ERROR (ServiceCode=%s) =====\n", e.serviceCode)
	fmt.Fprintf(b, "Status=%s, Description: %s\n", e.response.Status, e.message)
	headers := make([]string, 0, len(e.response.Header))
	for k := range e.response.Header {
		headers = append(headers, k)
	}
	sort.Strings(headers)
	for _, k := range headers {
		v := e.response.Header.Get(k)
		if strings.EqualFold(k, "Authorization") {
			v = "REDACTED"
		}
		fmt.Fprintf(b, "   %s: %s\n", k, v)
	}
	return b.String()
}

// errorDocument is the XML body the service attaches to failed responses.
type errorDocument struct {
	XMLName xml.Name `xml:"Error"`
	Code    string   `xml:"Code"`
	Message string   `xml:"Message"`
}

// newStorageError consumes the response body and builds the error the caller
// sees. The service code comes from the x-nf-error-code header when present,
// falling back to the XML document.
func newStorageError(resp *http.Response, body []byte) error {
	se := &storageError{
		serviceCode: ServiceCode(resp.Header.Get(headerErrorCode)),
		response:    resp,
	}
	doc := errorDocument{}
	if err := xml.Unmarshal(body, &doc); err == nil {
		se.message = doc.Message
		if se.serviceCode == ServiceCodeNone {
			se.serviceCode = ServiceCode(doc.Code)
		}
	}
	return se
}
