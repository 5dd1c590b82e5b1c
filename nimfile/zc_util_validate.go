package nimfile

import (
	"io"
)

const (
	// CountToEnd indicates a flag for count parameters. It means the count of
	// bytes from the start offset to the end of the file.
	CountToEnd = -1
)

// seekableStreamSize verifies body is positioned at 0 and returns its total
// size, leaving the position at 0. A nil body is logically empty.
func seekableStreamSize(body io.ReadSeeker) (int64, error) {
	if body == nil {
		return 0, nil
	}
	if pos, err := body.Seek(0, io.SeekCurrent); err != nil {
		return 0, err
	} else if pos != 0 {
		return 0, invalidArgument("body stream must be set to position 0, at %d", pos)
	}
	size, err := body.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	if _, err = body.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}
	return size, nil
}
