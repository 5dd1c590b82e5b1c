package nimfile

import (
	"context"
	"crypto/rand"
	"fmt"

	"github.com/Azure/azure-pipeline-go/pipeline"
)

// NewUniqueRequestIDPolicyFactory creates a factory that can create policies
// which stamp each outgoing request with a fresh client request ID, unless
// the caller already supplied one.
func NewUniqueRequestIDPolicyFactory() pipeline.Factory {
	return pipeline.FactoryFunc(func(next pipeline.Policy, po *pipeline.PolicyOptions) pipeline.PolicyFunc {
		return func(ctx context.Context, request pipeline.Request) (pipeline.Response, error) {
			if request.Header.Get(headerClientRequestID) == "" {
				request.Header.Set(headerClientRequestID, newUUID())
			}
			return next.Do(ctx, request)
		}
	})
}

// newUUID returns a random (version 4) UUID string.
func newUUID() string {
	u := [16]byte{}
	// The only failure mode of rand.Read is a broken system entropy source;
	// a partially-filled ID is still unique enough for request correlation.
	_, _ = rand.Read(u[:])
	u[8] = (u[8] | 0x40) & 0x7F // RFC 4122 variant
	u[6] = (u[6] & 0xF) | (4 << 4)
	return fmt.Sprintf("%x-%x-%x-%x-%x", u[0:4], u[4:6], u[6:8], u[8:10], u[10:])
}
