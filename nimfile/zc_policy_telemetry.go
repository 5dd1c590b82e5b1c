package nimfile

import (
	"bytes"
	"context"
	"fmt"
	"runtime"

	"github.com/Azure/azure-pipeline-go/pipeline"
)

// TelemetryOptions configures the telemetry policy's behavior.
type TelemetryOptions struct {
	// Value is a string prepended to each request's User-Agent and sent to the service.
	// The service records the user-agent in logs for diagnostics and tracking of client requests.
	Value string
}

// NewTelemetryPolicyFactory creates a factory that can create telemetry
// policy objects which add telemetry information to outgoing HTTP requests.
func NewTelemetryPolicyFactory(o TelemetryOptions) pipeline.Factory {
	b := &bytes.Buffer{}
	b.WriteString(o.Value)
	if b.Len() > 0 {
		b.WriteRune(' ')
	}
	fmt.Fprintf(b, "nimbus-file-go/%s %s (%s)", sdkVersion, runtime.Version(), platformInfo)
	telemetryValue := b.String()

	return pipeline.FactoryFunc(func(next pipeline.Policy, po *pipeline.PolicyOptions) pipeline.PolicyFunc {
		return func(ctx context.Context, request pipeline.Request) (pipeline.Response, error) {
			request.Header.Set(headerUserAgent, telemetryValue)
			return next.Do(ctx, request)
		}
	})
}

const sdkVersion = "0.3.0"

var platformInfo = fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)
