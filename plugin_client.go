// plugin_client.go: host-side client for a served plugin
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package httpplugins

import (
	"context"
	"path/filepath"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Client calls a plugin served by Server. Errors returned by its methods are
// classified: statuses from the plugin come back as InvalidInput or Internal
// errors, unreachable plugins as Transport errors.
type Client struct {
	conn    *grpc.ClientConn
	service PluginServiceClient
	health  healthpb.HealthClient
	target  string
}

// Target returns the gRPC dial target for a network and address.
func Target(network NetworkType, address string) (string, error) {
	switch network {
	case "", NetworkUnix:
		if filepath.IsAbs(address) {
			return "unix://" + address, nil
		}
		return "unix:" + address, nil
	case NetworkTCP:
		if err := validateTCPAddress(address); err != nil {
			return "", err
		}
		return "passthrough:///" + address, nil
	default:
		return "", NewUnsupportedNetworkError(string(network))
	}
}

// Dial creates a client for the plugin at address. The connection is
// established lazily on the first call.
func Dial(network NetworkType, address string, opts ...grpc.DialOption) (*Client, error) {
	target, err := Target(network, address)
	if err != nil {
		return nil, err
	}

	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(DefaultMaxMessageSize),
			grpc.MaxCallSendMsgSize(DefaultMaxMessageSize),
		),
	}
	dialOpts = append(dialOpts, opts...)

	conn, err := grpc.NewClient(target, dialOpts...)
	if err != nil {
		return nil, NewTransportError(target, err)
	}
	return &Client{
		conn:    conn,
		service: NewPluginServiceClient(conn),
		health:  healthpb.NewHealthClient(conn),
		target:  target,
	}, nil
}

// Close releases the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) GetMetadata(ctx context.Context) (*Metadata, error) {
	md, err := c.service.GetMetadata(ctx, &Empty{})
	return md, FromStatus(err, c.target)
}

func (c *Client) GetCapabilities(ctx context.Context) (*Capabilities, error) {
	caps, err := c.service.GetCapabilities(ctx, &Empty{})
	return caps, FromStatus(err, c.target)
}

func (c *Client) Configure(ctx context.Context, config *PluginConfig) error {
	if config == nil {
		config = &PluginConfig{}
	}
	_, err := c.service.Configure(ctx, config)
	return FromStatus(err, c.target)
}

func (c *Client) Stop(ctx context.Context) error {
	_, err := c.service.Stop(ctx, &Empty{})
	return FromStatus(err, c.target)
}

func (c *Client) CheckHealth(ctx context.Context) error {
	_, err := c.service.CheckHealth(ctx, &Empty{})
	return FromStatus(err, c.target)
}

func (c *Client) CheckReady(ctx context.Context) error {
	_, err := c.service.CheckReady(ctx, &Empty{})
	return FromStatus(err, c.target)
}

// ServingStatus queries the standard health service for service ("" for
// the whole server).
func (c *Client) ServingStatus(ctx context.Context, service string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	resp, err := c.health.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, FromStatus(err, c.target)
	}
	return resp.GetStatus(), nil
}

func (c *Client) HandleRequest(ctx context.Context, req *HTTPRequest) (*HTTPResponse, error) {
	resp, err := c.service.HandleRequest(ctx, req)
	if err != nil {
		return nil, FromStatus(err, c.target)
	}
	return resp, nil
}

// HandleResponse rejects replies that carry a modified request, which has
// no meaning in the response flow.
func (c *Client) HandleResponse(ctx context.Context, resp *HTTPResponse) (*HTTPResponse, error) {
	out, err := c.service.HandleResponse(ctx, resp)
	if err != nil {
		return nil, FromStatus(err, c.target)
	}
	if err := out.ValidateFor(FlowResponse); err != nil {
		return nil, err
	}
	return out, nil
}
