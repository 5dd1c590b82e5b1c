package nimfile

import (
	"net/url"
	"strings"
)

// A FileURLParts object represents the components that make up a Nimbus Files
// store/file URL. You parse an existing URL into its parts by calling
// NewFileURLParts(). You construct a URL from parts by calling URL().
type FileURLParts struct {
	Scheme         string // Ex: "https://"
	Host           string // Ex: "account.files.nimbus.dev"
	StoreName      string // Store name, Ex: "mystore"
	FilePath       string // Path of the file within the store, Ex: "mydir/myfile"
	UnparsedParams string
}

// NewFileURLParts parses a URL initializing FileURLParts' fields. Any query
// parameters remain in the UnparsedParams field. This method overwrites all
// fields in the FileURLParts object.
func NewFileURLParts(u url.URL) FileURLParts {
	up := FileURLParts{
		Scheme: u.Scheme,
		Host:   u.Host,
	}

	if u.Path != "" {
		path := u.Path
		if path[0] == '/' {
			path = path[1:]
		}

		// Find the next slash (if it exists)
		storeEndIndex := strings.Index(path, "/")
		if storeEndIndex == -1 { // Slash not found; path has store name & no file path
			up.StoreName = path
		} else { // Slash found; path has store name & path of file
			up.StoreName = path[:storeEndIndex]
			up.FilePath = path[storeEndIndex+1:]
		}
	}

	up.UnparsedParams = u.RawQuery
	return up
}

// URL returns a URL object whose fields are initialized from the FileURLParts fields.
func (up FileURLParts) URL() url.URL {
	path := ""
	// Concatenate store & file path (if they exist)
	if up.StoreName != "" {
		path += "/" + up.StoreName
		if up.FilePath != "" {
			path += "/" + up.FilePath
		}
	}

	u := url.URL{
		Scheme:   up.Scheme,
		Host:     up.Host,
		Path:     path,
		RawQuery: up.UnparsedParams,
	}
	return u
}
