package nimfile

import (
	"context"
	"net/url"

	"github.com/Azure/azure-pipeline-go/pipeline"
)

// A ServiceURL represents a URL to a Nimbus Files account.
type ServiceURL struct {
	client serviceClient
}

// NewServiceURL creates a ServiceURL object using the specified URL and request policy pipeline.
func NewServiceURL(primaryURL url.URL, p pipeline.Pipeline) ServiceURL {
	if p == nil {
		panic("p can't be nil")
	}
	return ServiceURL{client: newServiceClient(primaryURL, p)}
}

// URL returns the URL endpoint used by the ServiceURL object.
func (s ServiceURL) URL() url.URL {
	return s.client.URL()
}

// String returns the URL as a string.
func (s ServiceURL) String() string {
	u := s.URL()
	return u.String()
}

// WithPipeline creates a new ServiceURL object identical to the source but with the specified request policy pipeline.
func (s ServiceURL) WithPipeline(p pipeline.Pipeline) ServiceURL {
	return NewServiceURL(s.URL(), p)
}

// NewStoreURL creates a new StoreURL object by concatenating storeName to the end of
// ServiceURL's URL. The new StoreURL uses the same request policy pipeline as the ServiceURL.
func (s ServiceURL) NewStoreURL(storeName string) StoreURL {
	storeURL := appendToURLPath(s.URL(), storeName)
	return NewStoreURL(storeURL, s.client.Pipeline())
}

// GetProperties returns the properties of the account's file service.
func (s ServiceURL) GetProperties(ctx context.Context) (*ServiceGetPropertiesResponse, error) {
	return s.client.GetProperties(ctx)
}

// appendToURLPath appends a string to the end of a URL's path (aware of trailing slashes).
func appendToURLPath(u url.URL, name string) url.URL {
	if len(u.Path) == 0 {
		u.Path = "/"
	}
	if u.Path[len(u.Path)-1] != '/' {
		u.Path += "/"
	}
	u.Path += name
	return u
}
