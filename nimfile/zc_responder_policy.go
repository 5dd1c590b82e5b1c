package nimfile

import (
	"context"
	"io/ioutil"

	"github.com/Azure/azure-pipeline-go/pipeline"
)

// responder validates a raw response, converting failed ones into StorageErrors.
type responder func(resp pipeline.Response) (result pipeline.Response, err error)

// responderPolicyFactory is a Factory capable of creating a responder policy.
type responderPolicyFactory struct {
	responder responder
}

// New creates a responder policy object.
func (arpf responderPolicyFactory) New(next pipeline.Policy, po *pipeline.PolicyOptions) pipeline.Policy {
	return responderPolicy{next: next, responder: arpf.responder}
}

// responderPolicy exists so that the response validation runs inside the
// pipeline, after the method factory stage.
type responderPolicy struct {
	next      pipeline.Policy
	responder responder
}

// Do implements the policy method.
func (arp responderPolicy) Do(ctx context.Context, request pipeline.Request) (pipeline.Response, error) {
	resp, err := arp.next.Do(ctx, request)
	if err != nil {
		return resp, err
	}
	return arp.responder(resp)
}

// validateResponse returns a responder accepting only the listed status codes.
// Any other status consumes the body and produces a StorageError.
func validateResponse(successStatusCodes ...int) responder {
	return func(resp pipeline.Response) (pipeline.Response, error) {
		if resp == nil {
			return resp, nil
		}
		raw := resp.Response()
		for _, code := range successStatusCodes {
			if raw.StatusCode == code {
				return resp, nil
			}
		}
		// Failed response; the body holds the error document, not payload.
		body, err := ioutil.ReadAll(raw.Body)
		raw.Body.Close()
		if err != nil {
			return resp, err
		}
		return resp, newStorageError(raw, body)
	}
}
