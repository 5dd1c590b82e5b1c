package nimfile

import (
	"bytes"
	"context"
	"io"
	"math"
	"os"
	"sync"

	"github.com/Azure/azure-pipeline-go/pipeline"
)

// UploadToFileOptions identifies options used by the UploadBufferToFile and UploadFileToFile functions.
type UploadToFileOptions struct {
	// RangeSize specifies the range size to use in each parallel upload; the default (and maximum size) is FileMaxUploadRangeBytes.
	RangeSize int64

	// Progress is a function that is invoked periodically as bytes are sent in an UploadRange call.
	Progress pipeline.ProgressReceiver

	// Parallelism indicates the maximum number of ranges to upload in parallel. The default is 5.
	Parallelism int16

	// FileHTTPHeaders contains read/writeable file properties.
	FileHTTPHeaders FileHTTPHeaders

	// Metadata contains metadata key/value pairs.
	Metadata Metadata
}

func (o UploadToFileOptions) defaults() (UploadToFileOptions, error) {
	if o.RangeSize < 0 || o.RangeSize > FileMaxUploadRangeBytes {
		return o, invalidArgument("RangeSize option must be >= 0 and <= %d", int64(FileMaxUploadRangeBytes))
	}
	if o.RangeSize == 0 {
		o.RangeSize = FileMaxUploadRangeBytes
	}
	if o.Parallelism == 0 {
		o.Parallelism = 5
	}
	return o, nil
}

// UploadBufferToFile uploads a buffer to a file, creating (or replacing) the
// file at the buffer's exact size first.
func UploadBufferToFile(ctx context.Context, b []byte, fileURL FileURL, o UploadToFileOptions) error {
	o, err := o.defaults()
	if err != nil {
		return err
	}

	size := int64(len(b))
	if _, err := fileURL.Create(ctx, size, o.FileHTTPHeaders, o.Metadata); err != nil {
		return err
	}
	if size == 0 {
		return nil
	}

	numRanges := int16(math.Ceil(float64(size) / float64(o.RangeSize)))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	uploadRangeChannel := make(chan func() (*FileUploadRangeResponse, error), o.Parallelism) // Releases 'Parallelism' goroutines concurrently
	uploadRangeResponseChannel := make(chan error, numRanges)                                // Holds each UploadRange's response

	// Create the goroutines that process each UploadRange (in parallel).
	for g := int16(0); g < o.Parallelism; g++ {
		go func() {
			for f := range uploadRangeChannel {
				_, err := f()
				uploadRangeResponseChannel <- err
			}
		}()
	}

	fileProgress := int64(0)
	progressLock := &sync.Mutex{}

	curRangeSize := o.RangeSize
	// Add each upload range to the channel.
	for rangeNum := int16(0); rangeNum < numRanges; rangeNum++ {
		if rangeNum == numRanges-1 { // Last range
			curRangeSize = size - (int64(rangeNum) * o.RangeSize) // Remove size of all uploaded ranges from total
		}
		offset := int64(rangeNum) * o.RangeSize

		// Prepare to read the proper section of the buffer.
		var body io.ReadSeeker = bytes.NewReader(b[offset : offset+curRangeSize])
		if o.Progress != nil {
			rangeProgress := int64(0)
			body = pipeline.NewRequestBodyProgress(body,
				func(bytesTransferred int64) {
					diff := bytesTransferred - rangeProgress
					rangeProgress = bytesTransferred
					progressLock.Lock()
					fileProgress += diff
					o.Progress(fileProgress)
					progressLock.Unlock()
				})
		}

		uploadRangeChannel <- func() (*FileUploadRangeResponse, error) {
			return fileURL.UploadRange(ctx, offset, body, UploadRangeOptions{})
		}
	}
	close(uploadRangeChannel)

	// Wait for the upload ranges to complete.
	for rangeNum := int16(0); rangeNum < numRanges; rangeNum++ {
		if responseError := <-uploadRangeResponseChannel; responseError != nil {
			cancel()             // As soon as any UploadRange fails, cancel all remaining UploadRange calls
			return responseError // No need to process any more responses
		}
	}

	return nil
}

// UploadFileToFile uploads a local file to a remote file.
func UploadFileToFile(ctx context.Context, file *os.File, fileURL FileURL, o UploadToFileOptions) error {
	stat, err := file.Stat()
	if err != nil {
		return err
	}
	m := mmf{} // Default to an empty slice; used for a 0-size file
	if stat.Size() != 0 {
		m, err = newMMF(file, false, 0, int(stat.Size()))
		if err != nil {
			return err
		}
		defer m.unmap()
	}
	return UploadBufferToFile(ctx, m, fileURL, o)
}

// DownloadFromFileOptions identifies options used by the download functions.
type DownloadFromFileOptions struct {
	// RangeSize specifies the range size to use in each parallel download; the default is FileMaxUploadRangeBytes.
	RangeSize int64

	// Progress is a function that is invoked periodically as bytes are received.
	Progress pipeline.ProgressReceiver

	// Parallelism indicates the maximum number of ranges to download in parallel. The default is 5.
	Parallelism int16

	// MaxRetryRequests is the retry budget used while reading data for each range.
	MaxRetryRequests int
}

func (o DownloadFromFileOptions) defaults() (DownloadFromFileOptions, error) {
	if o.RangeSize < 0 {
		return o, invalidArgument("RangeSize option must be >= 0")
	}
	if o.RangeSize == 0 {
		o.RangeSize = FileMaxUploadRangeBytes
	}
	if o.Parallelism == 0 {
		o.Parallelism = 5
	}
	return o, nil
}

// downloadFileToBuffer downloads count bytes starting at offset into
// b[bufferOffset:], with parallel ranged reads.
func downloadFileToBuffer(ctx context.Context, fileURL FileURL, offset int64, count int64,
	b []byte, bufferOffset int64, o DownloadFromFileOptions, props *FileGetPropertiesResponse) (*FileGetPropertiesResponse, error) {

	o, err := o.defaults()
	if err != nil {
		return nil, err
	}
	if bufferOffset < 0 {
		return nil, invalidArgument("bufferOffset must be >= 0, got %d", bufferOffset)
	}
	if err := validateDownloadRange(offset, count); err != nil {
		return nil, err
	}

	if count == CountToEnd { // If size is unknown, calculate it
		if props == nil {
			props, err = fileURL.GetProperties(ctx)
			if err != nil {
				return nil, err
			}
		}
		count = props.ContentLength() - offset
		if count <= 0 {
			return nil, outOfRange("offset %d is at or past the end of the file", offset)
		}
	}

	if int64(len(b))-bufferOffset < count {
		return nil, invalidArgument("the buffer must hold %d bytes at offset %d", count, bufferOffset)
	}

	numRanges := int16(math.Ceil(float64(count) / float64(o.RangeSize)))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	downloadRangeChannel := make(chan func() (*DownloadResponse, error), o.Parallelism)
	downloadRangeResponseChannel := make(chan error, numRanges)

	// Create the goroutines that process each ranged download (in parallel).
	for g := int16(0); g < o.Parallelism; g++ {
		go func() {
			for f := range downloadRangeChannel {
				_, err := f()
				downloadRangeResponseChannel <- err
			}
		}()
	}

	fileProgress := int64(0)
	progressLock := &sync.Mutex{}

	curRangeSize := o.RangeSize
	// Add each download range to the channel.
	for rangeNum := int16(0); rangeNum < numRanges; rangeNum++ {
		if rangeNum == numRanges-1 { // Last range
			curRangeSize = count - (int64(rangeNum) * o.RangeSize)
		}
		rangeOffset := int64(rangeNum) * o.RangeSize
		rangeSize := curRangeSize

		downloadRangeChannel <- func() (*DownloadResponse, error) {
			dr, err := fileURL.Download(ctx, offset+rangeOffset, rangeSize, false)
			if err != nil {
				return nil, err
			}
			var body io.ReadCloser = dr.Body(RetryReaderOptions{MaxRetryRequests: o.MaxRetryRequests})

			if o.Progress != nil {
				rangeProgress := int64(0)
				body = pipeline.NewResponseBodyProgress(
					body,
					func(bytesTransferred int64) {
						diff := bytesTransferred - rangeProgress
						rangeProgress = bytesTransferred
						progressLock.Lock()
						fileProgress += diff
						o.Progress(fileProgress)
						progressLock.Unlock()
					})
			}

			_, err = io.ReadFull(body, b[bufferOffset+rangeOffset:bufferOffset+rangeOffset+rangeSize])
			body.Close()

			return dr, err
		}
	}
	close(downloadRangeChannel)

	// Wait for the download ranges to complete.
	for rangeNum := int16(0); rangeNum < numRanges; rangeNum++ {
		if responseError := <-downloadRangeResponseChannel; responseError != nil {
			cancel() // As soon as any ranged download fails, cancel all remaining calls
			return nil, responseError
		}
	}

	return props, nil
}

// DownloadFileToBuffer downloads the entire file into b with parallel ranged reads.
func DownloadFileToBuffer(ctx context.Context, fileURL FileURL, b []byte, o DownloadFromFileOptions) (*FileGetPropertiesResponse, error) {
	props, err := fileURL.GetProperties(ctx)
	if err != nil {
		return nil, err
	}
	if props.ContentLength() == 0 {
		return props, nil
	}
	return downloadFileToBuffer(ctx, fileURL, 0, CountToEnd, b, 0, o, props)
}

// DownloadFileRangeToBuffer downloads [offset, offset+count) into
// b[bufferOffset:] and returns the number of bytes written. Pass CountToEnd
// to download from offset to the end of the file. The bounds rules match
// Download: an explicit zero count or a range past the end of the file is
// out of range, and a target window that does not fit in b is an invalid
// argument, detected before any request is sent when the count is explicit.
func DownloadFileRangeToBuffer(ctx context.Context, fileURL FileURL, offset int64, count int64,
	b []byte, bufferOffset int64, o DownloadFromFileOptions) (int64, error) {

	props, err := downloadFileToBuffer(ctx, fileURL, offset, count, b, bufferOffset, o, nil)
	if err != nil {
		return 0, err
	}
	if count == CountToEnd {
		// props is only fetched on the CountToEnd path.
		return props.ContentLength() - offset, nil
	}
	return count, nil
}

// DownloadFileToFile downloads a remote file to a local file.
// The local file is created if it doesn't exist, and is truncated to match
// the remote size.
func DownloadFileToFile(ctx context.Context, fileURL FileURL, file *os.File, o DownloadFromFileOptions) (*FileGetPropertiesResponse, error) {
	if file == nil {
		return nil, invalidArgument("file must not be nil")
	}

	props, err := fileURL.GetProperties(ctx)
	if err != nil {
		return nil, err
	}
	size := props.ContentLength()

	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}
	if stat.Size() != size {
		if err = file.Truncate(size); err != nil {
			return nil, err
		}
	}
	if size == 0 {
		return props, nil
	}

	m, err := newMMF(file, true, 0, int(size))
	if err != nil {
		return nil, err
	}
	defer m.unmap()

	return downloadFileToBuffer(ctx, fileURL, 0, CountToEnd, m, 0, o, props)
}
