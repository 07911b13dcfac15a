// Package httpplugins is an SDK for writing out-of-process HTTP middleware
// plugins. A plugin inspects requests and responses flowing through a
// reverse-proxy host and, for each one, lets it pass, replaces it with a
// modified request, or short-circuits it with a response of its own.
//
// Plugins are served over gRPC on a unix domain socket or a TCP port, so the
// host can run them as separate processes.
//
// Writing a plugin:
//
//	type tagger struct {
//		httpplugins.BasePlugin
//	}
//
//	func (tagger) GetCapabilities(context.Context) (*httpplugins.Capabilities, error) {
//		return httpplugins.NewCapabilities(httpplugins.FlowRequest), nil
//	}
//
//	func (tagger) HandleRequest(_ context.Context, req *httpplugins.HTTPRequest) (*httpplugins.HTTPResponse, error) {
//		modified := req.Clone()
//		modified.Headers["X-Tagged"] = "true"
//		return httpplugins.ModifyRequest(modified), nil
//	}
//
//	func main() {
//		if err := httpplugins.Run(tagger{}); err != nil {
//			os.Exit(1)
//		}
//	}
//
// The binary then accepts --address and --network (unix or tcp), shuts down
// gracefully on SIGINT or SIGTERM and removes its socket file on exit.
//
// Hosts use Dial to obtain a Client for a running plugin.
//
// Copyright (c) 2025 AGILira - A. Giordano
// SPDX-License-Identifier: MPL-2.0
package httpplugins
