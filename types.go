// types.go: flow model and message types exchanged between host and plugin
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package httpplugins

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Flow identifies an interception point in the host's HTTP pipeline.
type Flow int32

const (
	// FlowUnspecified is the zero value and never a valid capability.
	FlowUnspecified Flow = 0
	// FlowRequest is invoked before the host forwards a request upstream.
	FlowRequest Flow = 1
	// FlowResponse is invoked before the host returns a response to the client.
	FlowResponse Flow = 2
)

// String returns the schema name of the flow.
func (f Flow) String() string {
	switch f {
	case FlowUnspecified:
		return "FLOW_UNSPECIFIED"
	case FlowRequest:
		return "FLOW_REQUEST"
	case FlowResponse:
		return "FLOW_RESPONSE"
	default:
		return "FLOW_" + strconv.Itoa(int(f))
	}
}

// Metadata describes a plugin. It is read-only once constructed.
type Metadata struct {
	Name        string `json:"name" yaml:"name"`
	Version     string `json:"version" yaml:"version"`
	Description string `json:"description" yaml:"description"`
	CommitHash  string `json:"commit_hash,omitempty" yaml:"commit_hash,omitempty"`
	BuildDate   string `json:"build_date,omitempty" yaml:"build_date,omitempty"`
}

// Capabilities lists the flows a plugin wants to participate in.
type Capabilities struct {
	Flows []Flow `json:"flows"`
}

// NewCapabilities returns capabilities advertising the given flows.
func NewCapabilities(flows ...Flow) *Capabilities {
	return &Capabilities{Flows: slices.Clone(flows)}
}

// Supports reports whether the flow is advertised.
func (c *Capabilities) Supports(flow Flow) bool {
	if c == nil {
		return false
	}
	return slices.Contains(c.Flows, flow)
}

// TelemetryConfig carries the host's telemetry settings to the plugin.
type TelemetryConfig struct {
	Endpoint    string `json:"endpoint,omitempty"`
	ServiceName string `json:"service_name,omitempty"`
	Enabled     bool   `json:"enabled"`
}

// PluginConfig is delivered once, before any traffic.
type PluginConfig struct {
	CustomConfig map[string]string `json:"custom_config,omitempty"`
	Telemetry    *TelemetryConfig  `json:"telemetry,omitempty"`
}

// Get returns a custom configuration value and whether it was present.
func (c *PluginConfig) Get(key string) (string, bool) {
	if c == nil || c.CustomConfig == nil {
		return "", false
	}
	v, ok := c.CustomConfig[key]
	return v, ok
}

// GetFloat parses a numeric custom value. Missing keys yield def; malformed
// values yield a configuration error naming the key.
func (c *PluginConfig) GetFloat(key string, def float64) (float64, error) {
	raw, ok := c.Get(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return def, NewConfigValueError(key, raw, err)
	}
	return v, nil
}

// GetDuration reads a value expressed in whole seconds ("60") or as a Go
// duration string ("1m30s").
func (c *PluginConfig) GetDuration(key string, def time.Duration) (time.Duration, error) {
	raw, ok := c.Get(key)
	raw = strings.TrimSpace(raw)
	if !ok || raw == "" {
		return def, nil
	}
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def, NewConfigValueError(key, raw, err)
	}
	return d, nil
}

// GetList splits a comma separated value, dropping blanks.
func (c *PluginConfig) GetList(key string) []string {
	raw, ok := c.Get(key)
	if !ok {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// HTTPRequest is the host's view of an inbound request.
type HTTPRequest struct {
	Method     string            `json:"method"`
	Path       string            `json:"path"`
	Headers    map[string]string `json:"headers,omitempty"`
	Body       []byte            `json:"body,omitempty"`
	RemoteAddr string            `json:"remote_addr,omitempty"`
}

// Header looks a header up case-insensitively.
func (r *HTTPRequest) Header(name string) (string, bool) {
	if r == nil {
		return "", false
	}
	if v, ok := r.Headers[name]; ok {
		return v, true
	}
	for k, v := range r.Headers {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

// Clone returns a deep copy that can be modified without touching r. The
// copy always has a non-nil Headers map, so headers can be set on it
// directly.
func (r *HTTPRequest) Clone() *HTTPRequest {
	if r == nil {
		return nil
	}
	out := *r
	out.Headers = make(map[string]string, len(r.Headers)+1)
	maps.Copy(out.Headers, r.Headers)
	out.Body = slices.Clone(r.Body)
	return &out
}

// HTTPResponse is a plugin's decision for either flow.
//
// For the request flow it may carry a ModifiedRequest; for the response flow
// StatusCode, Headers and Body describe the response to send on.
type HTTPResponse struct {
	Continue        bool              `json:"continue"`
	StatusCode      int32             `json:"status_code,omitempty"`
	Headers         map[string]string `json:"headers,omitempty"`
	Body            []byte            `json:"body,omitempty"`
	ModifiedRequest *HTTPRequest      `json:"modified_request,omitempty"`
}

// Outcome is the host-visible classification of an HTTPResponse.
type Outcome int

const (
	// OutcomePassThrough forwards the original message unchanged.
	OutcomePassThrough Outcome = iota
	// OutcomeModifiedRequest forwards the plugin's replacement request.
	OutcomeModifiedRequest
	// OutcomeShortCircuit stops the pipeline and returns the synthesized response.
	OutcomeShortCircuit
)

// String returns a readable outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomePassThrough:
		return "pass_through"
	case OutcomeModifiedRequest:
		return "modified_request"
	case OutcomeShortCircuit:
		return "short_circuit"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Outcome classifies the response. A nil response is a pass-through.
func (r *HTTPResponse) Outcome() Outcome {
	switch {
	case r == nil:
		return OutcomePassThrough
	case !r.Continue:
		return OutcomeShortCircuit
	case r.ModifiedRequest != nil:
		return OutcomeModifiedRequest
	default:
		return OutcomePassThrough
	}
}

// ValidateFor checks the response against the flow it was produced for.
// Response-phase replies never carry a modified request.
func (r *HTTPResponse) ValidateFor(flow Flow) error {
	if r == nil {
		return NewInvalidInputError("response is nil")
	}
	switch flow {
	case FlowRequest:
		return nil
	case FlowResponse:
		if r.ModifiedRequest != nil {
			return NewInvalidInputError("response flow reply carries a modified request").
				WithContext("flow", flow.String())
		}
		return nil
	default:
		return NewInvalidInputError("unknown flow").WithContext("flow", flow.String())
	}
}

// PassThrough lets the original message proceed unchanged.
func PassThrough() *HTTPResponse {
	return &HTTPResponse{Continue: true}
}

// ModifyRequest lets the pipeline continue with req in place of the original.
func ModifyRequest(req *HTTPRequest) *HTTPResponse {
	return &HTTPResponse{Continue: true, ModifiedRequest: req}
}

// ShortCircuit stops the pipeline and answers the client directly.
func ShortCircuit(statusCode int32, headers map[string]string, body []byte) *HTTPResponse {
	return &HTTPResponse{
		Continue:   false,
		StatusCode: statusCode,
		Headers:    headers,
		Body:       body,
	}
}

// Empty is the unit message used by RPCs without a payload.
type Empty struct{}
