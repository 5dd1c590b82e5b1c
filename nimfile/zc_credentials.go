package nimfile

import (
	"context"
	"sync/atomic"

	"github.com/Azure/azure-pipeline-go/pipeline"
)

type atomicString struct {
	v atomic.Value
}

func (s *atomicString) Load() string {
	if x := s.v.Load(); x != nil {
		return x.(string)
	}
	return ""
}

func (s *atomicString) Store(val string) { s.v.Store(val) }

// Credential represents any credential type; it is used to create a pipeline.
// Signing schemes live below this SDK; a credential is just the pipeline slot
// that attaches whatever proof of identity the deployment requires.
type Credential interface {
	pipeline.Factory
	credentialMarker()
}

// NewAnonymousCredential creates an anonymous credential for use with HTTP(S)
// requests that read publicly-available resources or are authorized at a
// lower layer (a fronting proxy, a test server).
func NewAnonymousCredential() Credential {
	return anonymousCredentialFactory
}

var anonymousCredentialFactory Credential = &anonymousCredentialPolicyFactory{}

type anonymousCredentialPolicyFactory struct{}

func (f *anonymousCredentialPolicyFactory) New(next pipeline.Policy, po *pipeline.PolicyOptions) pipeline.Policy {
	return &anonymousCredentialPolicy{next: next}
}

func (*anonymousCredentialPolicyFactory) credentialMarker() {}

type anonymousCredentialPolicy struct {
	next pipeline.Policy
}

func (p *anonymousCredentialPolicy) Do(ctx context.Context, request pipeline.Request) (pipeline.Response, error) {
	return p.next.Do(ctx, request) // No credential; just forward the request
}

// NewTokenCredential creates a credential that attaches the given bearer
// token to each request. The token value can be rotated with SetToken; the
// new value applies to requests issued after the call.
func NewTokenCredential(initialToken string) *TokenCredential {
	tc := &TokenCredential{}
	tc.SetToken(initialToken)
	return tc
}

// TokenCredential is a Credential that puts a bearer token in each request's
// Authorization header.
type TokenCredential struct {
	token atomicString
}

func (tc *TokenCredential) credentialMarker() {}

// Token returns the current token value.
func (tc *TokenCredential) Token() string { return tc.token.Load() }

// SetToken changes the token value used by future requests.
func (tc *TokenCredential) SetToken(token string) { tc.token.Store(token) }

// New satisfies pipeline.Factory's New method creating a credential policy object.
func (tc *TokenCredential) New(next pipeline.Policy, po *pipeline.PolicyOptions) pipeline.Policy {
	return pipeline.PolicyFunc(func(ctx context.Context, request pipeline.Request) (pipeline.Response, error) {
		if token := tc.Token(); token != "" {
			request.Header.Set("Authorization", "Bearer "+token)
		}
		return next.Do(ctx, request)
	})
}
