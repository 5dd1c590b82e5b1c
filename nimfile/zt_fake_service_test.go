package nimfile_test

// An in-process service speaking the wire protocol, so the suites run
// hermetically. It keeps each file as a flat byte slice plus the set of
// written ranges, which is enough to exercise sparse-file semantics
// (zero-fill, coalescing, clearing) without a real backend.

import (
	"crypto/md5"
	"encoding/base64"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"
)

const fakeServiceVersion = "2024-05-01"

const fakeMaxFileSize = 1 * 1024 * 1024 * 1024 * 1024
const fakeMaxRangeSize = 4 * 1024 * 1024

type fakeFile struct {
	data    []byte
	written [][2]int64 // disjoint, coalesced, ascending; inclusive bounds
	etag    string
	modTime time.Time
	meta    map[string]string
	content map[string]string // x-nf-content-* property headers
}

type fakeStore struct {
	files   map[string]*fakeFile
	etag    string
	modTime time.Time
	meta    map[string]string
}

type fakeService struct {
	mu      sync.Mutex
	stores  map[string]*fakeStore
	etagSeq int64
	idSeq   int64
	clock   time.Time
}

func newFakeService() *fakeService {
	return &fakeService{
		stores: map[string]*fakeStore{},
		clock:  time.Now().UTC().Truncate(time.Second),
	}
}

func (s *fakeService) nextETag() string {
	s.etagSeq++
	return fmt.Sprintf("\"0x%X\"", s.etagSeq)
}

func (s *fakeService) nextRequestID() string {
	s.idSeq++
	return fmt.Sprintf("req-%08d", s.idSeq)
}

// now returns a timestamp that never moves backwards, even though the HTTP
// date format only has second granularity.
func (s *fakeService) now() time.Time {
	t := time.Now().UTC().Truncate(time.Second)
	if !t.After(s.clock) {
		t = s.clock.Add(time.Second)
	}
	s.clock = t
	return t
}

func (s *fakeService) stamp(w http.ResponseWriter) {
	w.Header().Set("x-nf-request-id", s.nextRequestID())
	w.Header().Set("x-nf-version", fakeServiceVersion)
}

func (s *fakeService) fail(w http.ResponseWriter, status int, code, msg string) {
	s.stamp(w)
	w.Header().Set("x-nf-error-code", code)
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	fmt.Fprintf(w, "<Error><Code>%s</Code><Message>%s</Message></Error>", code, msg)
}

func metadataFromRequest(r *http.Request) map[string]string {
	meta := map[string]string{}
	for k, v := range r.Header {
		if lk := strings.ToLower(k); strings.HasPrefix(lk, "x-nf-meta-") {
			meta[lk[len("x-nf-meta-"):]] = v[0]
		}
	}
	return meta
}

var contentPropertyHeaders = []string{
	"x-nf-content-type",
	"x-nf-content-encoding",
	"x-nf-content-language",
	"x-nf-cache-control",
	"x-nf-content-disposition",
	"x-nf-content-md5",
}

func contentFromRequest(r *http.Request) map[string]string {
	content := map[string]string{}
	for _, h := range contentPropertyHeaders {
		if v := r.Header.Get(h); v != "" {
			content[h] = v
		}
	}
	return content
}

// parseWireRange parses "bytes=start-" or "bytes=start-end".
func parseWireRange(s string) (start, end int64, toEnd, ok bool) {
	if !strings.HasPrefix(s, "bytes=") {
		return 0, 0, false, false
	}
	parts := strings.SplitN(s[len("bytes="):], "-", 2)
	if len(parts) != 2 {
		return 0, 0, false, false
	}
	start, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || start < 0 {
		return 0, 0, false, false
	}
	if parts[1] == "" {
		return start, 0, true, true
	}
	end, err = strconv.ParseInt(parts[1], 10, 64)
	if err != nil || end < start {
		return 0, 0, false, false
	}
	return start, end, false, true
}

// markWritten records [start, end] as written, merging overlapping and
// exactly-adjacent neighbors into one maximal interval.
func markWritten(ranges [][2]int64, start, end int64) [][2]int64 {
	out := make([][2]int64, 0, len(ranges)+1)
	placed := false
	for _, r := range ranges {
		switch {
		case r[1]+1 < start: // Entirely before, not adjacent
			out = append(out, r)
		case end+1 < r[0]: // Entirely after, not adjacent
			if !placed {
				out = append(out, [2]int64{start, end})
				placed = true
			}
			out = append(out, r)
		default: // Overlaps or touches; absorb into the new interval
			if r[0] < start {
				start = r[0]
			}
			if r[1] > end {
				end = r[1]
			}
		}
	}
	if !placed {
		out = append(out, [2]int64{start, end})
	}
	return out
}

// markCleared removes [start, end] from the written set, splitting any
// interval it lands inside.
func markCleared(ranges [][2]int64, start, end int64) [][2]int64 {
	out := make([][2]int64, 0, len(ranges)+1)
	for _, r := range ranges {
		if r[1] < start || r[0] > end {
			out = append(out, r)
			continue
		}
		if r[0] < start {
			out = append(out, [2]int64{r[0], start - 1})
		}
		if r[1] > end {
			out = append(out, [2]int64{end + 1, r[1]})
		}
	}
	return out
}

// clipWritten truncates the written set at the new length.
func clipWritten(ranges [][2]int64, length int64) [][2]int64 {
	out := make([][2]int64, 0, len(ranges))
	for _, r := range ranges {
		if r[0] >= length {
			continue
		}
		if r[1] >= length {
			r[1] = length - 1
		}
		out = append(out, r)
	}
	return out
}

func (s *fakeService) touchFile(f *fakeFile) {
	f.etag = s.nextETag()
	f.modTime = s.now()
}

func writeFileStamp(w http.ResponseWriter, f *fakeFile) {
	w.Header().Set("ETag", f.etag)
	w.Header().Set("Last-Modified", f.modTime.Format(http.TimeFormat))
}

func (s *fakeService) checkConditions(w http.ResponseWriter, r *http.Request, etag string) bool {
	if im := r.Header.Get("If-Match"); im != "" && im != "*" && im != etag {
		s.fail(w, http.StatusPreconditionFailed, "ConditionNotMet", "the condition specified was not met")
		return false
	}
	if inm := r.Header.Get("If-None-Match"); inm != "" && (inm == "*" || inm == etag) {
		s.fail(w, http.StatusPreconditionFailed, "ConditionNotMet", "the condition specified was not met")
		return false
	}
	return true
}

func (s *fakeService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := r.URL.Query()
	if q.Get("restype") == "account" {
		s.stamp(w)
		w.WriteHeader(http.StatusOK)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/")
	parts := strings.SplitN(path, "/", 2)
	storeName := parts[0]
	if storeName == "" {
		s.fail(w, http.StatusBadRequest, "InvalidInput", "no store named in the request URL")
		return
	}

	if q.Get("restype") == "store" || len(parts) == 1 {
		s.handleStore(w, r, storeName)
		return
	}
	s.handleFile(w, r, storeName, parts[1], q.Get("comp"))
}

func (s *fakeService) handleStore(w http.ResponseWriter, r *http.Request, name string) {
	switch r.Method {
	case http.MethodPut:
		if _, ok := s.stores[name]; ok {
			s.fail(w, http.StatusConflict, "StoreAlreadyExists", "the specified store already exists")
			return
		}
		st := &fakeStore{
			files:   map[string]*fakeFile{},
			etag:    s.nextETag(),
			modTime: s.now(),
			meta:    metadataFromRequest(r),
		}
		s.stores[name] = st
		s.stamp(w)
		w.Header().Set("ETag", st.etag)
		w.Header().Set("Last-Modified", st.modTime.Format(http.TimeFormat))
		w.WriteHeader(http.StatusCreated)

	case http.MethodDelete:
		if _, ok := s.stores[name]; !ok {
			s.fail(w, http.StatusNotFound, "StoreNotFound", "the specified store does not exist")
			return
		}
		delete(s.stores, name)
		s.stamp(w)
		w.WriteHeader(http.StatusAccepted)

	case http.MethodHead, http.MethodGet:
		st, ok := s.stores[name]
		if !ok {
			s.fail(w, http.StatusNotFound, "StoreNotFound", "the specified store does not exist")
			return
		}
		s.stamp(w)
		w.Header().Set("ETag", st.etag)
		w.Header().Set("Last-Modified", st.modTime.Format(http.TimeFormat))
		for k, v := range st.meta {
			w.Header().Set("x-nf-meta-"+k, v)
		}
		w.WriteHeader(http.StatusOK)

	default:
		s.fail(w, http.StatusBadRequest, "InvalidInput", "unsupported store operation")
	}
}

func (s *fakeService) handleFile(w http.ResponseWriter, r *http.Request, storeName, filePath, comp string) {
	st, ok := s.stores[storeName]
	if !ok {
		s.fail(w, http.StatusNotFound, "StoreNotFound", "the specified store does not exist")
		return
	}

	if r.Method == http.MethodPut && comp == "" {
		s.createFile(w, r, st, filePath)
		return
	}

	f, ok := st.files[filePath]
	if !ok {
		s.fail(w, http.StatusNotFound, "ResourceNotFound", "the specified resource does not exist")
		return
	}

	switch {
	case r.Method == http.MethodDelete:
		delete(st.files, filePath)
		s.stamp(w)
		w.WriteHeader(http.StatusAccepted)

	case r.Method == http.MethodHead:
		s.fileProperties(w, f)

	case r.Method == http.MethodPut && comp == "properties":
		s.setProperties(w, r, f)

	case r.Method == http.MethodPut && comp == "metadata":
		f.meta = metadataFromRequest(r)
		s.touchFile(f)
		s.stamp(w)
		writeFileStamp(w, f)
		w.WriteHeader(http.StatusOK)

	case r.Method == http.MethodPut && comp == "range":
		s.writeRange(w, r, f)

	case r.Method == http.MethodGet && comp == "rangelist":
		s.rangeList(w, r, f)

	case r.Method == http.MethodGet && comp == "":
		s.download(w, r, f)

	default:
		s.fail(w, http.StatusBadRequest, "InvalidInput", "unsupported file operation")
	}
}

func (s *fakeService) createFile(w http.ResponseWriter, r *http.Request, st *fakeStore, filePath string) {
	if r.Header.Get("x-nf-type") != "file" {
		s.fail(w, http.StatusBadRequest, "InvalidInput", "x-nf-type must be 'file'")
		return
	}
	size, err := strconv.ParseInt(r.Header.Get("x-nf-content-length"), 10, 64)
	if err != nil || size < 0 {
		s.fail(w, http.StatusBadRequest, "InvalidInput", "x-nf-content-length is missing or malformed")
		return
	}
	if size > fakeMaxFileSize {
		s.fail(w, http.StatusBadRequest, "FileTooLarge", "the requested size exceeds the maximum file size")
		return
	}
	f := &fakeFile{
		data:    make([]byte, size),
		meta:    metadataFromRequest(r),
		content: contentFromRequest(r),
	}
	s.touchFile(f)
	st.files[filePath] = f
	s.stamp(w)
	writeFileStamp(w, f)
	w.WriteHeader(http.StatusCreated)
}

func (s *fakeService) fileProperties(w http.ResponseWriter, f *fakeFile) {
	s.stamp(w)
	writeFileStamp(w, f)
	w.Header().Set("x-nf-type", "File")
	w.Header().Set("x-nf-content-length", strconv.FormatInt(int64(len(f.data)), 10))
	for k, v := range f.content {
		w.Header().Set(k, v)
	}
	for k, v := range f.meta {
		w.Header().Set("x-nf-meta-"+k, v)
	}
	w.WriteHeader(http.StatusOK)
}

func (s *fakeService) setProperties(w http.ResponseWriter, r *http.Request, f *fakeFile) {
	if lenStr := r.Header.Get("x-nf-content-length"); lenStr != "" { // Resize
		newLen, err := strconv.ParseInt(lenStr, 10, 64)
		if err != nil || newLen < 0 {
			s.fail(w, http.StatusBadRequest, "InvalidInput", "x-nf-content-length is malformed")
			return
		}
		if newLen > fakeMaxFileSize {
			s.fail(w, http.StatusBadRequest, "FileTooLarge", "the requested size exceeds the maximum file size")
			return
		}
		old := int64(len(f.data))
		if newLen <= old {
			// Truncated content is gone for good; a later re-grow must read zeros.
			f.data = append([]byte{}, f.data[:newLen]...)
			f.written = clipWritten(f.written, newLen)
		} else {
			f.data = append(f.data, make([]byte, newLen-old)...)
		}
	} else { // Full property replace
		f.content = contentFromRequest(r)
	}
	s.touchFile(f)
	s.stamp(w)
	writeFileStamp(w, f)
	w.WriteHeader(http.StatusOK)
}

func (s *fakeService) writeRange(w http.ResponseWriter, r *http.Request, f *fakeFile) {
	if !s.checkConditions(w, r, f.etag) {
		return
	}
	start, end, toEnd, ok := parseWireRange(r.Header.Get("x-nf-range"))
	if !ok || toEnd {
		s.fail(w, http.StatusBadRequest, "InvalidInput", "x-nf-range is missing or malformed")
		return
	}
	length := int64(len(f.data))

	switch r.Header.Get("x-nf-write") {
	case "update":
		body, err := ioutil.ReadAll(r.Body)
		if err != nil {
			s.fail(w, http.StatusBadRequest, "InvalidInput", "could not read the request body")
			return
		}
		if int64(len(body)) != end-start+1 {
			s.fail(w, http.StatusBadRequest, "InvalidInput", "the body length does not match the range")
			return
		}
		if int64(len(body)) > fakeMaxRangeSize {
			s.fail(w, http.StatusBadRequest, "InvalidInput", "the range exceeds the maximum write size")
			return
		}
		if end >= length {
			// Range writes never grow the file.
			s.fail(w, http.StatusBadRequest, "RangeBeyondEndOfFile", "the range is beyond the end of the file")
			return
		}
		sum := md5.Sum(body)
		digest := base64.StdEncoding.EncodeToString(sum[:])
		if sent := r.Header.Get("Content-MD5"); sent != "" && sent != digest {
			s.fail(w, http.StatusBadRequest, "Md5Mismatch", "the computed MD5 does not match the one sent")
			return
		}
		copy(f.data[start:end+1], body)
		f.written = markWritten(f.written, start, end)
		s.touchFile(f)
		s.stamp(w)
		writeFileStamp(w, f)
		w.Header().Set("Content-MD5", digest)
		w.WriteHeader(http.StatusCreated)

	case "clear":
		if end >= length {
			// Clears obey the same bound as writes.
			s.fail(w, http.StatusBadRequest, "RangeBeyondEndOfFile", "the range is beyond the end of the file")
			return
		}
		for i := start; i <= end; i++ {
			f.data[i] = 0
		}
		f.written = markCleared(f.written, start, end)
		s.touchFile(f)
		s.stamp(w)
		writeFileStamp(w, f)
		w.WriteHeader(http.StatusCreated)

	default:
		s.fail(w, http.StatusBadRequest, "InvalidInput", "x-nf-write must be 'update' or 'clear'")
	}
}

func (s *fakeService) rangeList(w http.ResponseWriter, r *http.Request, f *fakeFile) {
	length := int64(len(f.data))
	start, end := int64(0), length-1
	if rs := r.Header.Get("x-nf-range"); rs != "" {
		var toEnd, ok bool
		start, end, toEnd, ok = parseWireRange(rs)
		if !ok {
			s.fail(w, http.StatusBadRequest, "InvalidInput", "x-nf-range is malformed")
			return
		}
		if toEnd || end >= length {
			end = length - 1
		}
	}

	b := &strings.Builder{}
	b.WriteString("<?xml version=\"1.0\" encoding=\"utf-8\"?><Ranges>")
	for _, wr := range f.written {
		if wr[1] < start || wr[0] > end {
			continue
		}
		lo, hi := wr[0], wr[1]
		if lo < start {
			lo = start
		}
		if hi > end {
			hi = end
		}
		fmt.Fprintf(b, "<Range><Start>%d</Start><End>%d</End></Range>", lo, hi)
	}
	b.WriteString("</Ranges>")

	s.stamp(w)
	writeFileStamp(w, f)
	w.Header().Set("x-nf-content-length", strconv.FormatInt(length, 10))
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, b.String())
}

func (s *fakeService) download(w http.ResponseWriter, r *http.Request, f *fakeFile) {
	if !s.checkConditions(w, r, f.etag) {
		return
	}
	length := int64(len(f.data))
	start, end := int64(0), length-1
	ranged := false
	if rs := r.Header.Get("x-nf-range"); rs != "" {
		var toEnd, ok bool
		start, end, toEnd, ok = parseWireRange(rs)
		if !ok {
			s.fail(w, http.StatusBadRequest, "InvalidInput", "x-nf-range is malformed")
			return
		}
		if toEnd {
			end = length - 1
		}
		if start >= length || end >= length {
			w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", length))
			s.fail(w, http.StatusRequestedRangeNotSatisfiable, "InvalidRange", "the range is outside the file's bounds")
			return
		}
		ranged = true
	}

	s.stamp(w)
	writeFileStamp(w, f)
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("x-nf-content-length", strconv.FormatInt(length, 10))
	for k, v := range f.content {
		w.Header().Set(k, v)
	}
	if f.content["x-nf-content-type"] == "" {
		w.Header().Set("x-nf-content-type", "application/octet-stream")
	}
	for k, v := range f.meta {
		w.Header().Set("x-nf-meta-"+k, v)
	}

	body := f.data
	status := http.StatusOK
	if ranged {
		body = f.data[start : end+1]
		status = http.StatusPartialContent
		w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, length))
		if r.Header.Get("x-nf-range-get-content-md5") == "true" {
			if int64(len(body)) > fakeMaxRangeSize {
				s.fail(w, http.StatusBadRequest, "InvalidInput", "the range is too large to hash")
				return
			}
			sum := md5.Sum(body)
			w.Header().Set("Content-MD5", base64.StdEncoding.EncodeToString(sum[:]))
		}
	}
	w.Header().Set("Content-Length", strconv.FormatInt(int64(len(body)), 10))
	w.WriteHeader(status)
	if r.Method != http.MethodHead {
		w.Write(append([]byte{}, body...))
	}
}

func startFakeService() *httptest.Server {
	return httptest.NewServer(newFakeService())
}
