package nimfile

import (
	"context"
	"net/url"

	"github.com/Azure/azure-pipeline-go/pipeline"
)

// A StoreURL represents a URL to a Nimbus Files store: the container every
// file lives in. A store has its own metadata and lifecycle; files inside it
// are addressed by slash-separated paths (the namespace is flat; there is no
// directory object to create or delete).
type StoreURL struct {
	client storeClient
}

// NewStoreURL creates a StoreURL object using the specified URL and request policy pipeline.
func NewStoreURL(u url.URL, p pipeline.Pipeline) StoreURL {
	if p == nil {
		panic("p can't be nil")
	}
	return StoreURL{client: newStoreClient(u, p)}
}

// URL returns the URL endpoint used by the StoreURL object.
func (s StoreURL) URL() url.URL {
	return s.client.URL()
}

// String returns the URL as a string.
func (s StoreURL) String() string {
	u := s.URL()
	return u.String()
}

// WithPipeline creates a new StoreURL object identical to the source but with the specified request policy pipeline.
func (s StoreURL) WithPipeline(p pipeline.Pipeline) StoreURL {
	return NewStoreURL(s.URL(), p)
}

// NewFileURL creates a new FileURL object by concatenating filePath to the end
// of StoreURL's URL. The new FileURL uses the same request policy pipeline as
// the StoreURL.
func (s StoreURL) NewFileURL(filePath string) FileURL {
	fileURL := appendToURLPath(s.URL(), filePath)
	return NewFileURL(fileURL, s.client.Pipeline())
}

// Create creates a new store within the account.
func (s StoreURL) Create(ctx context.Context, metadata Metadata) (*StoreCreateResponse, error) {
	return s.client.Create(ctx, metadata)
}

// Delete removes the store and every file inside it.
func (s StoreURL) Delete(ctx context.Context) (*StoreDeleteResponse, error) {
	return s.client.Delete(ctx)
}

// GetProperties returns the store's metadata and system properties.
func (s StoreURL) GetProperties(ctx context.Context) (*StoreGetPropertiesResponse, error) {
	return s.client.GetProperties(ctx)
}

// Exists reports whether the store currently exists. It is defined to be safe
// against a missing store: that case returns (false, nil), not an error.
func (s StoreURL) Exists(ctx context.Context) (bool, error) {
	_, err := s.client.GetProperties(ctx)
	if err != nil {
		if KindOf(err) == ErrorKindNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// DeleteIfExists removes the store when present, reporting whether a delete
// happened. A missing store is not an error.
func (s StoreURL) DeleteIfExists(ctx context.Context) (bool, error) {
	_, err := s.client.Delete(ctx)
	if err != nil {
		if KindOf(err) == ErrorKindNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
