// plugin.go: the plugin contract and its pass-through defaults
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package httpplugins

import (
	"context"
	"maps"
	"slices"
)

// Plugin is the behaviour a middleware plugin exposes to its host.
//
// The host drives the lifecycle: Configure is called at most once before any
// traffic, HandleRequest and HandleResponse may then be called concurrently
// and without bound, and Stop is called at most once after traffic ends.
// CheckHealth and CheckReady may be interleaved with anything.
//
// A returned error fails only the call it was returned from. Errors built
// with the constructors in errors.go keep their classification across the
// wire; any other error is reported to the host as an internal failure.
//
// Implementations normally embed BasePlugin and override what they need:
//
//	type headerPlugin struct {
//		httpplugins.BasePlugin
//	}
//
//	func (p *headerPlugin) HandleRequest(ctx context.Context, req *httpplugins.HTTPRequest) (*httpplugins.HTTPResponse, error) {
//		modified := req.Clone()
//		modified.Headers["X-Seen"] = "true"
//		return httpplugins.ModifyRequest(modified), nil
//	}
type Plugin interface {
	GetMetadata(ctx context.Context) (*Metadata, error)
	GetCapabilities(ctx context.Context) (*Capabilities, error)
	Configure(ctx context.Context, config *PluginConfig) error
	Stop(ctx context.Context) error
	CheckHealth(ctx context.Context) error
	CheckReady(ctx context.Context) error
	HandleRequest(ctx context.Context, req *HTTPRequest) (*HTTPResponse, error)
	HandleResponse(ctx context.Context, resp *HTTPResponse) (*HTTPResponse, error)
}

// BasePlugin implements every Plugin operation with neutral behaviour.
// A plugin embedding it unchanged advertises no flows and lets all traffic
// through untouched.
type BasePlugin struct{}

var _ Plugin = BasePlugin{}

// GetMetadata returns empty metadata.
func (BasePlugin) GetMetadata(context.Context) (*Metadata, error) {
	return &Metadata{}, nil
}

// GetCapabilities advertises no flows.
func (BasePlugin) GetCapabilities(context.Context) (*Capabilities, error) {
	return &Capabilities{}, nil
}

// Configure ignores the configuration.
func (BasePlugin) Configure(context.Context, *PluginConfig) error {
	return nil
}

// Stop does nothing.
func (BasePlugin) Stop(context.Context) error {
	return nil
}

// CheckHealth always succeeds.
func (BasePlugin) CheckHealth(context.Context) error {
	return nil
}

// CheckReady always succeeds.
func (BasePlugin) CheckReady(context.Context) error {
	return nil
}

// HandleRequest continues without modification.
func (BasePlugin) HandleRequest(context.Context, *HTTPRequest) (*HTTPResponse, error) {
	return PassThrough(), nil
}

// HandleResponse echoes the response with Continue set.
func (BasePlugin) HandleResponse(_ context.Context, resp *HTTPResponse) (*HTTPResponse, error) {
	if resp == nil {
		return PassThrough(), nil
	}
	return &HTTPResponse{
		Continue:   true,
		StatusCode: resp.StatusCode,
		Headers:    maps.Clone(resp.Headers),
		Body:       slices.Clone(resp.Body),
	}, nil
}
