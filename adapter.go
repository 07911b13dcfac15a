// adapter.go: exposes a Plugin through the gRPC service shape
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package httpplugins

import "context"

// Adapter presents a Plugin as a PluginServiceServer. Every method forwards
// to the plugin exactly once and returns its result, error included, as-is.
// It keeps no state of its own and is safe for concurrent use when the
// plugin is.
type Adapter struct {
	plugin Plugin
}

var _ PluginServiceServer = (*Adapter)(nil)

// NewAdapter wraps plugin. A nil plugin is replaced by BasePlugin.
func NewAdapter(plugin Plugin) *Adapter {
	if plugin == nil {
		plugin = BasePlugin{}
	}
	return &Adapter{plugin: plugin}
}

// Plugin returns the wrapped plugin.
func (a *Adapter) Plugin() Plugin {
	return a.plugin
}

func (a *Adapter) GetMetadata(ctx context.Context, _ *Empty) (*Metadata, error) {
	return a.plugin.GetMetadata(ctx)
}

func (a *Adapter) GetCapabilities(ctx context.Context, _ *Empty) (*Capabilities, error) {
	return a.plugin.GetCapabilities(ctx)
}

func (a *Adapter) Configure(ctx context.Context, config *PluginConfig) (*Empty, error) {
	if err := a.plugin.Configure(ctx, config); err != nil {
		return nil, err
	}
	return &Empty{}, nil
}

func (a *Adapter) Stop(ctx context.Context, _ *Empty) (*Empty, error) {
	if err := a.plugin.Stop(ctx); err != nil {
		return nil, err
	}
	return &Empty{}, nil
}

func (a *Adapter) CheckHealth(ctx context.Context, _ *Empty) (*Empty, error) {
	if err := a.plugin.CheckHealth(ctx); err != nil {
		return nil, err
	}
	return &Empty{}, nil
}

func (a *Adapter) CheckReady(ctx context.Context, _ *Empty) (*Empty, error) {
	if err := a.plugin.CheckReady(ctx); err != nil {
		return nil, err
	}
	return &Empty{}, nil
}

func (a *Adapter) HandleRequest(ctx context.Context, req *HTTPRequest) (*HTTPResponse, error) {
	return a.plugin.HandleRequest(ctx, req)
}

func (a *Adapter) HandleResponse(ctx context.Context, resp *HTTPResponse) (*HTTPResponse, error) {
	return a.plugin.HandleResponse(ctx, resp)
}
