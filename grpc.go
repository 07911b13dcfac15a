// grpc.go: gRPC service binding for the plugin contract
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package httpplugins

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully qualified name of the plugin service.
const ServiceName = "mozilla.mcpd.plugins.v1.Plugin"

// Full method names of the plugin service.
const (
	GetMetadataMethod     = "/" + ServiceName + "/GetMetadata"
	GetCapabilitiesMethod = "/" + ServiceName + "/GetCapabilities"
	ConfigureMethod       = "/" + ServiceName + "/Configure"
	StopMethod            = "/" + ServiceName + "/Stop"
	CheckHealthMethod     = "/" + ServiceName + "/CheckHealth"
	CheckReadyMethod      = "/" + ServiceName + "/CheckReady"
	HandleRequestMethod   = "/" + ServiceName + "/HandleRequest"
	HandleResponseMethod  = "/" + ServiceName + "/HandleResponse"
)

// PluginServiceServer is the server side of the plugin service.
type PluginServiceServer interface {
	GetMetadata(context.Context, *Empty) (*Metadata, error)
	GetCapabilities(context.Context, *Empty) (*Capabilities, error)
	Configure(context.Context, *PluginConfig) (*Empty, error)
	Stop(context.Context, *Empty) (*Empty, error)
	CheckHealth(context.Context, *Empty) (*Empty, error)
	CheckReady(context.Context, *Empty) (*Empty, error)
	HandleRequest(context.Context, *HTTPRequest) (*HTTPResponse, error)
	HandleResponse(context.Context, *HTTPResponse) (*HTTPResponse, error)
}

// RegisterPluginServiceServer registers srv on s.
func RegisterPluginServiceServer(s grpc.ServiceRegistrar, srv PluginServiceServer) {
	s.RegisterService(&PluginServiceDesc, srv)
}

// PluginServiceDesc describes the plugin service to grpc.Server.
var PluginServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PluginServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetMetadata", Handler: unaryHandler(GetMetadataMethod, PluginServiceServer.GetMetadata)},
		{MethodName: "GetCapabilities", Handler: unaryHandler(GetCapabilitiesMethod, PluginServiceServer.GetCapabilities)},
		{MethodName: "Configure", Handler: unaryHandler(ConfigureMethod, PluginServiceServer.Configure)},
		{MethodName: "Stop", Handler: unaryHandler(StopMethod, PluginServiceServer.Stop)},
		{MethodName: "CheckHealth", Handler: unaryHandler(CheckHealthMethod, PluginServiceServer.CheckHealth)},
		{MethodName: "CheckReady", Handler: unaryHandler(CheckReadyMethod, PluginServiceServer.CheckReady)},
		{MethodName: "HandleRequest", Handler: unaryHandler(HandleRequestMethod, PluginServiceServer.HandleRequest)},
		{MethodName: "HandleResponse", Handler: unaryHandler(HandleResponseMethod, PluginServiceServer.HandleResponse)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "mozilla/mcpd/plugins/v1/plugin.proto",
}

// unaryHandler builds the method handler grpc.Server dispatches to: decode
// the request, then run call directly or through the interceptor chain.
func unaryHandler[Req, Resp any](fullMethod string, call func(PluginServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(PluginServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(PluginServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// PluginServiceClient is the host side of the plugin service.
type PluginServiceClient interface {
	GetMetadata(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Metadata, error)
	GetCapabilities(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Capabilities, error)
	Configure(ctx context.Context, in *PluginConfig, opts ...grpc.CallOption) (*Empty, error)
	Stop(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Empty, error)
	CheckHealth(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Empty, error)
	CheckReady(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Empty, error)
	HandleRequest(ctx context.Context, in *HTTPRequest, opts ...grpc.CallOption) (*HTTPResponse, error)
	HandleResponse(ctx context.Context, in *HTTPResponse, opts ...grpc.CallOption) (*HTTPResponse, error)
}

type pluginServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewPluginServiceClient returns a client bound to cc. Calls force the
// plugin codec so no global codec registration is needed.
func NewPluginServiceClient(cc grpc.ClientConnInterface) PluginServiceClient {
	return &pluginServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.ForceCodec(Codec{})}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *pluginServiceClient) GetMetadata(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Metadata, error) {
	return invoke[Metadata](ctx, c.cc, GetMetadataMethod, in, opts)
}

func (c *pluginServiceClient) GetCapabilities(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Capabilities, error) {
	return invoke[Capabilities](ctx, c.cc, GetCapabilitiesMethod, in, opts)
}

func (c *pluginServiceClient) Configure(ctx context.Context, in *PluginConfig, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, ConfigureMethod, in, opts)
}

func (c *pluginServiceClient) Stop(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, StopMethod, in, opts)
}

func (c *pluginServiceClient) CheckHealth(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, CheckHealthMethod, in, opts)
}

func (c *pluginServiceClient) CheckReady(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, CheckReadyMethod, in, opts)
}

func (c *pluginServiceClient) HandleRequest(ctx context.Context, in *HTTPRequest, opts ...grpc.CallOption) (*HTTPResponse, error) {
	return invoke[HTTPResponse](ctx, c.cc, HandleRequestMethod, in, opts)
}

func (c *pluginServiceClient) HandleResponse(ctx context.Context, in *HTTPResponse, opts ...grpc.CallOption) (*HTTPResponse, error) {
	return invoke[HTTPResponse](ctx, c.cc, HandleResponseMethod, in, opts)
}
