// errors.go: structured error definitions and their RPC status mapping
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package httpplugins

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/agilira/go-errors"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Error codes. The prefix before the underscore is the error class.
const (
	// Configuration errors (1000-1099)
	ErrCodeInvalidBindAddress = "CONFIG_1001"
	ErrCodeUnsupportedNetwork = "CONFIG_1002"
	ErrCodeMissingAddress     = "CONFIG_1003"
	ErrCodeInvalidConfigValue = "CONFIG_1004"
	ErrCodeConfigFileError    = "CONFIG_1005"
	ErrCodeConfigParseError   = "CONFIG_1006"
	ErrCodeConfigWatcherError = "CONFIG_1007"

	// Server errors (1100-1199)
	ErrCodeBindFailed  = "SERVER_1101"
	ErrCodeServeFailed = "SERVER_1102"

	// Invalid input errors (1200-1299)
	ErrCodeInvalidInput = "INPUT_1201"

	// Internal errors (1300-1399)
	ErrCodeInternal = "INTERNAL_1301"

	// Transport errors (1400-1499)
	ErrCodeTransportUnavailable = "TRANSPORT_1401"

	// Readiness errors (1500-1599)
	ErrCodeNotReady  = "HEALTH_1501"
	ErrCodeUnhealthy = "HEALTH_1502"
)

// ErrorClass is the coarse category of a failure.
type ErrorClass string

const (
	ClassConfiguration ErrorClass = "configuration"
	ClassServer        ErrorClass = "server"
	ClassInvalidInput  ErrorClass = "invalid_input"
	ClassInternal      ErrorClass = "internal"
	ClassTransport     ErrorClass = "transport"
	ClassHealth        ErrorClass = "health"
	ClassUnknown       ErrorClass = "unknown"
)

// Configuration error constructors

func NewInvalidBindAddressError(address string, cause error) *errors.Error {
	if cause != nil {
		return errors.Wrap(cause, ErrCodeInvalidBindAddress, "Invalid TCP address: "+address).
			WithUserMessage("The bind address must be in host:port form").
			WithContext("address", address).
			WithSeverity("error")
	}
	return errors.New(ErrCodeInvalidBindAddress, "Invalid TCP address: "+address).
		WithUserMessage("The bind address must be in host:port form").
		WithContext("address", address).
		WithSeverity("error")
}

func NewUnsupportedNetworkError(network string) *errors.Error {
	return errors.New(ErrCodeUnsupportedNetwork, "Unsupported network type: "+network).
		WithUserMessage("Network must be one of: unix, tcp").
		WithContext("network", network).
		WithSeverity("error")
}

func NewMissingAddressError(network NetworkType) *errors.Error {
	return errors.New(ErrCodeMissingAddress, "Missing address").
		WithUserMessage("An address is required to serve the plugin").
		WithContext("network", string(network)).
		WithSeverity("error")
}

func NewConfigValueError(key, value string, cause error) *errors.Error {
	if cause != nil {
		return errors.Wrap(cause, ErrCodeInvalidConfigValue, "Invalid configuration value for "+key).
			WithUserMessage("A configuration value could not be parsed").
			WithContext("key", key).
			WithContext("value", value).
			WithSeverity("error")
	}
	return errors.New(ErrCodeInvalidConfigValue, "Invalid configuration value for "+key).
		WithUserMessage("A configuration value is out of range").
		WithContext("key", key).
		WithContext("value", value).
		WithSeverity("error")
}

func NewConfigFileError(path, reason string, cause error) *errors.Error {
	if cause != nil {
		return errors.Wrap(cause, ErrCodeConfigFileError, "Configuration file error: "+reason).
			WithUserMessage("The configuration file could not be read").
			WithContext("path", path).
			WithSeverity("error")
	}
	return errors.New(ErrCodeConfigFileError, "Configuration file error: "+reason).
		WithUserMessage("The configuration file could not be read").
		WithContext("path", path).
		WithSeverity("error")
}

func NewConfigParseError(path string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeConfigParseError, "Failed to parse configuration").
		WithUserMessage("The configuration file is malformed").
		WithContext("path", path).
		WithSeverity("error")
}

func NewConfigWatcherError(path string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeConfigWatcherError, "Configuration watcher failed").
		WithUserMessage("Unable to watch the configuration file").
		WithContext("path", path).
		WithSeverity("warning")
}

// Server error constructors

func NewBindError(network NetworkType, address string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeBindFailed, "Failed to bind listener").
		WithUserMessage("The plugin could not listen on the requested address").
		WithContext("network", string(network)).
		WithContext("address", address).
		WithSeverity("critical")
}

func NewServeError(cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeServeFailed, "Server failed").
		WithUserMessage("The plugin server stopped unexpectedly").
		WithSeverity("critical")
}

// Call error constructors

func NewInvalidInputError(message string) *errors.Error {
	return errors.New(ErrCodeInvalidInput, message).
		WithUserMessage("The request sent to the plugin is invalid").
		WithSeverity("warning")
}

func NewInternalError(message string, cause error) *errors.Error {
	if cause != nil {
		return errors.Wrap(cause, ErrCodeInternal, message).
			WithUserMessage("The plugin failed to process the call").
			WithSeverity("error")
	}
	return errors.New(ErrCodeInternal, message).
		WithUserMessage("The plugin failed to process the call").
		WithSeverity("error")
}

func NewTransportError(target string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeTransportUnavailable, "Plugin transport unavailable").
		WithUserMessage("The plugin could not be reached").
		WithContext("target", target).
		WithSeverity("error").
		AsRetryable()
}

func NewNotReadyError(reason string) *errors.Error {
	return errors.New(ErrCodeNotReady, "Plugin not ready: "+reason).
		WithUserMessage("The plugin is not ready to accept traffic").
		WithSeverity("warning")
}

func NewUnhealthyError(reason string) *errors.Error {
	return errors.New(ErrCodeUnhealthy, "Plugin unhealthy: "+reason).
		WithUserMessage("The plugin reported itself unhealthy").
		WithSeverity("error")
}

// Classify returns the class of err, looking through wrapped errors.
func Classify(err error) ErrorClass {
	if err == nil {
		return ""
	}
	var coded *errors.Error
	if !stderrors.As(err, &coded) {
		return ClassUnknown
	}
	prefix, _, _ := strings.Cut(string(coded.ErrorCode()), "_")
	switch prefix {
	case "CONFIG":
		return ClassConfiguration
	case "SERVER":
		return ClassServer
	case "INPUT":
		return ClassInvalidInput
	case "INTERNAL":
		return ClassInternal
	case "TRANSPORT":
		return ClassTransport
	case "HEALTH":
		return ClassHealth
	default:
		return ClassUnknown
	}
}

// IsConfigurationError reports whether err was caused by invalid settings.
func IsConfigurationError(err error) bool {
	return Classify(err) == ClassConfiguration
}

// ToStatus converts a plugin error into the status reported to the host.
// Errors that already carry a gRPC status pass through unchanged.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(interface{ GRPCStatus() *status.Status }); ok {
		return err
	}
	switch {
	case stderrors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case stderrors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}

	switch Classify(err) {
	case ClassConfiguration, ClassInvalidInput:
		return status.Error(codes.InvalidArgument, err.Error())
	case ClassServer, ClassInternal:
		return status.Error(codes.Internal, err.Error())
	case ClassTransport, ClassHealth:
		return status.Error(codes.Unavailable, err.Error())
	}

	var withStatus interface{ GRPCStatus() *status.Status }
	if stderrors.As(err, &withStatus) {
		return withStatus.GRPCStatus().Err()
	}
	return status.Error(codes.Internal, "internal plugin error")
}

// FromStatus converts a status returned by a plugin into a classified error
// on the host side.
func FromStatus(err error, target string) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return NewTransportError(target, err)
	}
	switch st.Code() {
	case codes.InvalidArgument:
		return NewInvalidInputError(st.Message()).WithContext("target", target)
	case codes.Unavailable:
		return NewTransportError(target, err)
	case codes.Canceled:
		return context.Canceled
	case codes.DeadlineExceeded:
		return context.DeadlineExceeded
	default:
		return NewInternalError(st.Message(), err).WithContext("target", target)
	}
}
