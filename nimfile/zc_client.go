package nimfile

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Azure/azure-pipeline-go/pipeline"
)

// clientBase holds what every low-level client needs: the resource URL and
// the policy pipeline its requests travel through.
type clientBase struct {
	u url.URL
	p pipeline.Pipeline
}

// URL returns the URL endpoint used by the client.
func (c clientBase) URL() url.URL { return c.u }

// Pipeline returns the client's pipeline.
func (c clientBase) Pipeline() pipeline.Pipeline { return c.p }

// newRequest builds a request to the client's URL with the given query
// modifiers applied (comp/restype selectors).
func (c clientBase) newRequest(method string, query url.Values, body io.ReadSeeker) (pipeline.Request, error) {
	u := c.u
	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Set(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	req, err := pipeline.NewRequest(method, u, body)
	if err != nil {
		return req, err
	}
	req.Header.Set(headerVersion, ServiceVersion)
	return req, nil
}

func comp(value string) url.Values { return url.Values{"comp": {value}} }

// toRange renders the wire form of a byte range.
// A count of CountToEnd means bytes from offset to the end of the file.
func toRange(offset int64, count int64) string {
	if count == CountToEnd {
		return fmt.Sprintf("bytes=%d-", offset)
	}
	return fmt.Sprintf("bytes=%d-%d", offset, offset+count-1)
}

// setContentHeaders writes the full property set; absent fields are simply
// not sent, which the service interprets as "clear" on a properties call.
func setContentHeaders(h http.Header, headers FileHTTPHeaders) {
	if headers.ContentType != "" {
		h.Set(headerContentType, headers.ContentType)
	}
	if headers.ContentEncoding != "" {
		h.Set(headerContentEncoding, headers.ContentEncoding)
	}
	if headers.ContentLanguage != "" {
		h.Set(headerContentLanguage, headers.ContentLanguage)
	}
	if headers.CacheControl != "" {
		h.Set(headerCacheControl, headers.CacheControl)
	}
	if headers.ContentDisposition != "" {
		h.Set(headerContentDispo, headers.ContentDisposition)
	}
	if md5p := headers.contentMD5Pointer(); md5p != nil {
		h.Set(headerContentMD5, *md5p)
	}
}

// setMetadataHeaders validates and writes x-nf-meta-* headers. Keys must be
// valid identifiers (letter or underscore first, letters/digits/underscores after).
func setMetadataHeaders(h http.Header, metadata Metadata) error {
	for k, v := range metadata {
		if !isValidMetadataKey(k) {
			return invalidArgument("metadata key %q is not a valid identifier", k)
		}
		h.Set(headerMetaPrefix+strings.ToLower(k), v)
	}
	return nil
}

func isValidMetadataKey(k string) bool {
	if len(k) == 0 {
		return false
	}
	for i, r := range k {
		switch {
		case r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func setAccessConditions(h http.Header, ac AccessConditions) {
	if ac.IfMatch != ETagNone {
		h.Set(headerIfMatch, string(ac.IfMatch))
	}
	if ac.IfNoneMatch != ETagNone {
		h.Set(headerIfNoneMatch, string(ac.IfNoneMatch))
	}
}

//
// fileClient issues the wire-level file operations. It performs no argument
// validation; the FileURL convenience layer owns that and never lets a
// malformed request reach this client.
//

type fileClient struct {
	clientBase
}

func newFileClient(u url.URL, p pipeline.Pipeline) fileClient {
	return fileClient{clientBase{u: u, p: p}}
}

func (c fileClient) Create(ctx context.Context, size int64, h FileHTTPHeaders, metadata Metadata) (*FileCreateResponse, error) {
	req, err := c.newRequest(http.MethodPut, nil, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set(headerType, "file")
	req.Header.Set(headerContentLength, strconv.FormatInt(size, 10))
	setContentHeaders(req.Header, h)
	if err = setMetadataHeaders(req.Header, metadata); err != nil {
		return nil, err
	}
	resp, err := c.p.Do(ctx, responderPolicyFactory{validateResponse(http.StatusCreated)}, req)
	if err != nil {
		return nil, err
	}
	return &FileCreateResponse{rawResponse: resp.Response()}, nil
}

func (c fileClient) Delete(ctx context.Context) (*FileDeleteResponse, error) {
	req, err := c.newRequest(http.MethodDelete, nil, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.p.Do(ctx, responderPolicyFactory{validateResponse(http.StatusAccepted)}, req)
	if err != nil {
		return nil, err
	}
	return &FileDeleteResponse{rawResponse: resp.Response()}, nil
}

func (c fileClient) GetProperties(ctx context.Context) (*FileGetPropertiesResponse, error) {
	req, err := c.newRequest(http.MethodHead, nil, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.p.Do(ctx, responderPolicyFactory{validateResponse(http.StatusOK)}, req)
	if err != nil {
		return nil, err
	}
	return &FileGetPropertiesResponse{rawResponse: resp.Response()}, nil
}

// SetProperties handles both resize (newLength non-nil) and the full-replace
// property upload (newLength nil). The service treats them as the same
// resource facet; the two call shapes are kept separate at the FileURL layer.
func (c fileClient) SetProperties(ctx context.Context, newLength *int64, h FileHTTPHeaders) (*FileSetPropertiesResponse, error) {
	req, err := c.newRequest(http.MethodPut, comp("properties"), nil)
	if err != nil {
		return nil, err
	}
	if newLength != nil {
		req.Header.Set(headerContentLength, strconv.FormatInt(*newLength, 10))
	} else {
		setContentHeaders(req.Header, h)
	}
	resp, err := c.p.Do(ctx, responderPolicyFactory{validateResponse(http.StatusOK)}, req)
	if err != nil {
		return nil, err
	}
	return &FileSetPropertiesResponse{rawResponse: resp.Response()}, nil
}

func (c fileClient) SetMetadata(ctx context.Context, metadata Metadata) (*FileSetMetadataResponse, error) {
	req, err := c.newRequest(http.MethodPut, comp("metadata"), nil)
	if err != nil {
		return nil, err
	}
	if err = setMetadataHeaders(req.Header, metadata); err != nil {
		return nil, err
	}
	resp, err := c.p.Do(ctx, responderPolicyFactory{validateResponse(http.StatusOK)}, req)
	if err != nil {
		return nil, err
	}
	return &FileSetMetadataResponse{rawResponse: resp.Response()}, nil
}

// rangeWriteType selects what a range write does on the wire.
type rangeWriteType string

const (
	rangeWriteUpdate rangeWriteType = "update"
	rangeWriteClear  rangeWriteType = "clear"
)

func (c fileClient) UploadRange(ctx context.Context, rangeStr string, writeType rangeWriteType,
	body io.ReadSeeker, transactionalMD5 *string, ac AccessConditions) (*FileUploadRangeResponse, error) {
	req, err := c.newRequest(http.MethodPut, comp("range"), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set(headerRange, rangeStr)
	req.Header.Set(headerWrite, string(writeType))
	if transactionalMD5 != nil {
		req.Header.Set(headerTransactionalMD5, *transactionalMD5)
	}
	setAccessConditions(req.Header, ac)
	resp, err := c.p.Do(ctx, responderPolicyFactory{validateResponse(http.StatusCreated)}, req)
	if err != nil {
		return nil, err
	}
	return &FileUploadRangeResponse{rawResponse: resp.Response()}, nil
}

func (c fileClient) Download(ctx context.Context, rangeStr *string, rangeGetContentMD5 bool, ac AccessConditions) (*downloadResponse, error) {
	req, err := c.newRequest(http.MethodGet, nil, nil)
	if err != nil {
		return nil, err
	}
	if rangeStr != nil {
		req.Header.Set(headerRange, *rangeStr)
	}
	if rangeGetContentMD5 {
		req.Header.Set(headerRangeGetMD5, "true")
	}
	setAccessConditions(req.Header, ac)
	resp, err := c.p.Do(ctx, responderPolicyFactory{validateResponse(http.StatusOK, http.StatusPartialContent)}, req)
	if err != nil {
		return nil, err
	}
	return &downloadResponse{rawResponse: resp.Response()}, nil
}

func (c fileClient) GetRangeList(ctx context.Context, rangeStr *string) (*RangeList, error) {
	req, err := c.newRequest(http.MethodGet, comp("rangelist"), nil)
	if err != nil {
		return nil, err
	}
	if rangeStr != nil {
		req.Header.Set(headerRange, *rangeStr)
	}
	resp, err := c.p.Do(ctx, responderPolicyFactory{validateResponse(http.StatusOK)}, req)
	if err != nil {
		return nil, err
	}
	raw := resp.Response()
	body, err := ioutil.ReadAll(raw.Body)
	raw.Body.Close()
	if err != nil {
		return nil, err
	}
	doc := rangeListDocument{}
	if err = xml.Unmarshal(body, &doc); err != nil {
		return nil, err
	}
	return &RangeList{rawResponse: raw, Ranges: doc.Ranges}, nil
}

//
// storeClient issues store (container) operations.
//

type storeClient struct {
	clientBase
}

func newStoreClient(u url.URL, p pipeline.Pipeline) storeClient {
	return storeClient{clientBase{u: u, p: p}}
}

func restypeStore() url.Values { return url.Values{"restype": {"store"}} }

func (c storeClient) Create(ctx context.Context, metadata Metadata) (*StoreCreateResponse, error) {
	req, err := c.newRequest(http.MethodPut, restypeStore(), nil)
	if err != nil {
		return nil, err
	}
	if err = setMetadataHeaders(req.Header, metadata); err != nil {
		return nil, err
	}
	resp, err := c.p.Do(ctx, responderPolicyFactory{validateResponse(http.StatusCreated)}, req)
	if err != nil {
		return nil, err
	}
	return &StoreCreateResponse{rawResponse: resp.Response()}, nil
}

func (c storeClient) Delete(ctx context.Context) (*StoreDeleteResponse, error) {
	req, err := c.newRequest(http.MethodDelete, restypeStore(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.p.Do(ctx, responderPolicyFactory{validateResponse(http.StatusAccepted)}, req)
	if err != nil {
		return nil, err
	}
	return &StoreDeleteResponse{rawResponse: resp.Response()}, nil
}

func (c storeClient) GetProperties(ctx context.Context) (*StoreGetPropertiesResponse, error) {
	req, err := c.newRequest(http.MethodHead, restypeStore(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.p.Do(ctx, responderPolicyFactory{validateResponse(http.StatusOK)}, req)
	if err != nil {
		return nil, err
	}
	return &StoreGetPropertiesResponse{rawResponse: resp.Response()}, nil
}

//
// serviceClient issues account-level operations.
//

type serviceClient struct {
	clientBase
}

func newServiceClient(u url.URL, p pipeline.Pipeline) serviceClient {
	return serviceClient{clientBase{u: u, p: p}}
}

func (c serviceClient) GetProperties(ctx context.Context) (*ServiceGetPropertiesResponse, error) {
	req, err := c.newRequest(http.MethodHead, url.Values{"restype": {"account"}}, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.p.Do(ctx, responderPolicyFactory{validateResponse(http.StatusOK)}, req)
	if err != nil {
		return nil, err
	}
	return &ServiceGetPropertiesResponse{rawResponse: resp.Response()}, nil
}
