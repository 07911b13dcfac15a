// types_test.go: tests for flow, outcome and configuration helpers
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package httpplugins

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlowString(t *testing.T) {
	assert.Equal(t, "FLOW_UNSPECIFIED", FlowUnspecified.String())
	assert.Equal(t, "FLOW_REQUEST", FlowRequest.String())
	assert.Equal(t, "FLOW_RESPONSE", FlowResponse.String())
	assert.Equal(t, "FLOW_7", Flow(7).String())
}

func TestCapabilitiesSupports(t *testing.T) {
	caps := NewCapabilities(FlowRequest)
	assert.True(t, caps.Supports(FlowRequest))
	assert.False(t, caps.Supports(FlowResponse))

	var nilCaps *Capabilities
	assert.False(t, nilCaps.Supports(FlowRequest))
}

func TestOutcomeClassification(t *testing.T) {
	tests := []struct {
		name string
		resp *HTTPResponse
		want Outcome
	}{
		{"nil", nil, OutcomePassThrough},
		{"pass", PassThrough(), OutcomePassThrough},
		{"modified", ModifyRequest(&HTTPRequest{Path: "/new"}), OutcomeModifiedRequest},
		{"short circuit", ShortCircuit(401, nil, nil), OutcomeShortCircuit},
		{"short circuit wins over modified request", &HTTPResponse{Continue: false, ModifiedRequest: &HTTPRequest{}}, OutcomeShortCircuit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.resp.Outcome())
		})
	}
}

func TestValidateForResponseFlow(t *testing.T) {
	assert.NoError(t, ModifyRequest(&HTTPRequest{}).ValidateFor(FlowRequest))
	assert.NoError(t, PassThrough().ValidateFor(FlowResponse))

	err := ModifyRequest(&HTTPRequest{}).ValidateFor(FlowResponse)
	require.Error(t, err)
	assert.Equal(t, ClassInvalidInput, Classify(err))

	assert.Error(t, PassThrough().ValidateFor(FlowUnspecified))
	var nilResp *HTTPResponse
	assert.Error(t, nilResp.ValidateFor(FlowRequest))
}

func TestHTTPRequestClone(t *testing.T) {
	orig := &HTTPRequest{
		Method:  "GET",
		Path:    "/a",
		Headers: map[string]string{"K": "v"},
		Body:    []byte("body"),
	}
	clone := orig.Clone()
	clone.Headers["K"] = "changed"
	clone.Body[0] = 'B'

	assert.Equal(t, "v", orig.Headers["K"])
	assert.Equal(t, []byte("body"), orig.Body)

	var nilReq *HTTPRequest
	assert.Nil(t, nilReq.Clone())
}

func TestHTTPRequestCloneWithoutHeaders(t *testing.T) {
	orig := &HTTPRequest{Method: "GET", Path: "/"}
	clone := orig.Clone()
	require.NotNil(t, clone.Headers)
	clone.Headers["X-Seen"] = "true"

	assert.Nil(t, orig.Headers)
	assert.Equal(t, map[string]string{"X-Seen": "true"}, clone.Headers)
}

func TestHTTPRequestHeaderLookup(t *testing.T) {
	req := &HTTPRequest{Headers: map[string]string{"authorization": "Bearer x"}}
	v, ok := req.Header("Authorization")
	assert.True(t, ok)
	assert.Equal(t, "Bearer x", v)

	_, ok = req.Header("X-Missing")
	assert.False(t, ok)
}

func TestPluginConfigGetters(t *testing.T) {
	cfg := &PluginConfig{CustomConfig: map[string]string{
		"max":     "10",
		"bad":     "ten",
		"window":  "60",
		"timeout": "1m30s",
		"list":    " a, ,b ,c",
	}}

	v, err := cfg.GetFloat("max", 1)
	require.NoError(t, err)
	assert.Equal(t, 10.0, v)

	v, err = cfg.GetFloat("missing", 3)
	require.NoError(t, err)
	assert.Equal(t, 3.0, v)

	_, err = cfg.GetFloat("bad", 1)
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))

	d, err := cfg.GetDuration("window", time.Second)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, d)

	d, err = cfg.GetDuration("timeout", time.Second)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)

	assert.Equal(t, []string{"a", "b", "c"}, cfg.GetList("list"))
	assert.Nil(t, cfg.GetList("missing"))

	var nilCfg *PluginConfig
	_, ok := nilCfg.Get("x")
	assert.False(t, ok)
}
