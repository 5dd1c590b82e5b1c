package nimfile

import (
	"github.com/Azure/azure-pipeline-go/pipeline"
)

// PipelineOptions is used to configure a request policy pipeline's retry
// policy, logging, telemetry, and interception behavior.
type PipelineOptions struct {
	// Log configures the pipeline's logging infrastructure indicating what information is logged and where.
	Log pipeline.LogOptions

	// Retry configures the built-in retry policy behavior.
	Retry RetryOptions

	// Telemetry configures the built-in telemetry policy behavior.
	Telemetry TelemetryOptions

	// HTTPSender configures the sender of HTTP requests; leave nil for the default (http.Client-based) sender.
	HTTPSender pipeline.Factory

	// RequestInterceptor, when non-nil, is injected immediately before the
	// request goes to the wire. It sees the fully-prepared request and may
	// inspect or mutate it. Test harnesses use this slot to inject or corrupt
	// headers; production callers can use it for auditing.
	RequestInterceptor pipeline.Factory
}

// NewPipeline creates a Pipeline using the specified credential and options.
func NewPipeline(c Credential, o PipelineOptions) pipeline.Pipeline {
	if c == nil {
		c = NewAnonymousCredential()
	}

	f := []pipeline.Factory{
		NewTelemetryPolicyFactory(o.Telemetry),
		NewUniqueRequestIDPolicyFactory(),
		NewRetryPolicyFactory(o.Retry),
		c,
	}
	if o.RequestInterceptor != nil {
		f = append(f, o.RequestInterceptor)
	}
	f = append(f, pipeline.MethodFactoryMarker()) // indicates at what stage in the pipeline the method factory is invoked

	return pipeline.NewPipeline(f, pipeline.Options{HTTPSender: o.HTTPSender, Log: o.Log})
}
