// codec.go: protobuf wire encoding for the plugin messages
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package httpplugins

import (
	"fmt"
	"math"
	"slices"

	"google.golang.org/grpc/encoding"
	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
)

// Field numbers of the v1 message schema.
//
//	Metadata:        name=1 version=2 description=3 commit_hash=4 build_date=5
//	Capabilities:    flows=1 (packed enum)
//	PluginConfig:    custom_config=1 (map) telemetry=2
//	TelemetryConfig: endpoint=1 service_name=2 enabled=3
//	HTTPRequest:     method=1 path=2 headers=3 (map) body=4 remote_addr=5
//	HTTPResponse:    continue=1 status_code=2 headers=3 (map) body=4 modified_request=5
//
// Map fields use the standard entry encoding (key=1, value=2).
const (
	mapKeyField   protowire.Number = 1
	mapValueField protowire.Number = 2
)

// skipField tells walkFields to step over a field it does not decode.
const skipField = math.MinInt32

// CodecName is registered with gRPC as the content-subtype of plugin calls.
const CodecName = "proto"

// wireMessage is implemented by every message type in this package.
type wireMessage interface {
	appendWire(b []byte) []byte
	unmarshalWire(b []byte) error
}

// Codec encodes plugin messages with protowire and delegates real protobuf
// messages (health checks, reflection) to the proto runtime.
type Codec struct{}

var _ encoding.Codec = Codec{}

// Name implements encoding.Codec.
func (Codec) Name() string { return CodecName }

// Marshal implements encoding.Codec.
func (Codec) Marshal(v any) ([]byte, error) {
	switch m := v.(type) {
	case wireMessage:
		return m.appendWire(nil), nil
	case proto.Message:
		return proto.Marshal(m)
	default:
		return nil, NewInternalError(fmt.Sprintf("cannot marshal %T", v), nil)
	}
}

// Unmarshal implements encoding.Codec.
func (Codec) Unmarshal(data []byte, v any) error {
	switch m := v.(type) {
	case wireMessage:
		if err := m.unmarshalWire(data); err != nil {
			return NewInvalidInputError(fmt.Sprintf("malformed %T", v)).WithContext("cause", err.Error())
		}
		return nil
	case proto.Message:
		return proto.Unmarshal(data, m)
	default:
		return NewInternalError(fmt.Sprintf("cannot unmarshal into %T", v), nil)
	}
}

// Empty

func (*Empty) appendWire(b []byte) []byte { return b }

func (*Empty) unmarshalWire(b []byte) error {
	return walkFields(b, func(protowire.Number, protowire.Type, []byte) (int, error) {
		return skipField, nil
	})
}

// Metadata

func (m *Metadata) appendWire(b []byte) []byte {
	if m == nil {
		return b
	}
	b = appendString(b, 1, m.Name)
	b = appendString(b, 2, m.Version)
	b = appendString(b, 3, m.Description)
	b = appendString(b, 4, m.CommitHash)
	b = appendString(b, 5, m.BuildDate)
	return b
}

func (m *Metadata) unmarshalWire(b []byte) error {
	*m = Metadata{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if typ != protowire.BytesType {
			return skipField, nil
		}
		var dst *string
		switch num {
		case 1:
			dst = &m.Name
		case 2:
			dst = &m.Version
		case 3:
			dst = &m.Description
		case 4:
			dst = &m.CommitHash
		case 5:
			dst = &m.BuildDate
		default:
			return skipField, nil
		}
		v, n := protowire.ConsumeString(b)
		*dst = v
		return n, nil
	})
}

// Capabilities

func (m *Capabilities) appendWire(b []byte) []byte {
	if m == nil || len(m.Flows) == 0 {
		return b
	}
	var packed []byte
	for _, f := range m.Flows {
		packed = protowire.AppendVarint(packed, uint64(int64(f)))
	}
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	return protowire.AppendBytes(b, packed)
}

func (m *Capabilities) unmarshalWire(b []byte) error {
	*m = Capabilities{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num != 1 {
			return skipField, nil
		}
		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			m.Flows = append(m.Flows, Flow(int32(v)))
			return n, nil
		case protowire.BytesType:
			packed, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, nil
			}
			for len(packed) > 0 {
				v, vn := protowire.ConsumeVarint(packed)
				if vn < 0 {
					return vn, nil
				}
				m.Flows = append(m.Flows, Flow(int32(v)))
				packed = packed[vn:]
			}
			return n, nil
		default:
			return skipField, nil
		}
	})
}

// TelemetryConfig

func (m *TelemetryConfig) appendWire(b []byte) []byte {
	if m == nil {
		return b
	}
	b = appendString(b, 1, m.Endpoint)
	b = appendString(b, 2, m.ServiceName)
	if m.Enabled {
		b = protowire.AppendTag(b, 3, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeBool(true))
	}
	return b
}

func (m *TelemetryConfig) unmarshalWire(b []byte) error {
	*m = TelemetryConfig{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			m.Endpoint = v
			return n, nil
		case num == 2 && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			m.ServiceName = v
			return n, nil
		case num == 3 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			m.Enabled = protowire.DecodeBool(v)
			return n, nil
		default:
			return skipField, nil
		}
	})
}

// PluginConfig

func (m *PluginConfig) appendWire(b []byte) []byte {
	if m == nil {
		return b
	}
	b = appendStringMap(b, 1, m.CustomConfig)
	if m.Telemetry != nil {
		b = appendMessage(b, 2, m.Telemetry)
	}
	return b
}

func (m *PluginConfig) unmarshalWire(b []byte) error {
	*m = PluginConfig{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if typ != protowire.BytesType {
			return skipField, nil
		}
		switch num {
		case 1:
			if m.CustomConfig == nil {
				m.CustomConfig = make(map[string]string)
			}
			return consumeMapEntry(b, m.CustomConfig)
		case 2:
			if m.Telemetry == nil {
				m.Telemetry = &TelemetryConfig{}
			}
			return consumeMessage(b, m.Telemetry)
		default:
			return skipField, nil
		}
	})
}

// HTTPRequest

func (m *HTTPRequest) appendWire(b []byte) []byte {
	if m == nil {
		return b
	}
	b = appendString(b, 1, m.Method)
	b = appendString(b, 2, m.Path)
	b = appendStringMap(b, 3, m.Headers)
	b = appendBytes(b, 4, m.Body)
	b = appendString(b, 5, m.RemoteAddr)
	return b
}

func (m *HTTPRequest) unmarshalWire(b []byte) error {
	*m = HTTPRequest{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if typ != protowire.BytesType {
			return skipField, nil
		}
		switch num {
		case 1:
			v, n := protowire.ConsumeString(b)
			m.Method = v
			return n, nil
		case 2:
			v, n := protowire.ConsumeString(b)
			m.Path = v
			return n, nil
		case 3:
			if m.Headers == nil {
				m.Headers = make(map[string]string)
			}
			return consumeMapEntry(b, m.Headers)
		case 4:
			v, n := protowire.ConsumeBytes(b)
			m.Body = slices.Clone(v)
			return n, nil
		case 5:
			v, n := protowire.ConsumeString(b)
			m.RemoteAddr = v
			return n, nil
		default:
			return skipField, nil
		}
	})
}

// HTTPResponse

func (m *HTTPResponse) appendWire(b []byte) []byte {
	if m == nil {
		return b
	}
	if m.Continue {
		b = protowire.AppendTag(b, 1, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeBool(true))
	}
	if m.StatusCode != 0 {
		b = protowire.AppendTag(b, 2, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(int64(m.StatusCode)))
	}
	b = appendStringMap(b, 3, m.Headers)
	b = appendBytes(b, 4, m.Body)
	if m.ModifiedRequest != nil {
		b = appendMessage(b, 5, m.ModifiedRequest)
	}
	return b
}

func (m *HTTPResponse) unmarshalWire(b []byte) error {
	*m = HTTPResponse{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			m.Continue = protowire.DecodeBool(v)
			return n, nil
		case num == 2 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			m.StatusCode = int32(v)
			return n, nil
		case num == 3 && typ == protowire.BytesType:
			if m.Headers == nil {
				m.Headers = make(map[string]string)
			}
			return consumeMapEntry(b, m.Headers)
		case num == 4 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			m.Body = slices.Clone(v)
			return n, nil
		case num == 5 && typ == protowire.BytesType:
			if m.ModifiedRequest == nil {
				m.ModifiedRequest = &HTTPRequest{}
			}
			return consumeMessage(b, m.ModifiedRequest)
		default:
			return skipField, nil
		}
	})
}

// walkFields iterates over the fields in b. fn returns the number of bytes it
// consumed from the field value, or skipField to have it skipped as unknown.
// A negative protowire length from fn is reported as a parse error.
func walkFields(b []byte, fn func(num protowire.Number, typ protowire.Type, b []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		consumed, err := fn(num, typ, b)
		if err != nil {
			return err
		}
		if consumed == skipField {
			consumed = protowire.ConsumeFieldValue(num, typ, b)
		}
		if consumed < 0 {
			return protowire.ParseError(consumed)
		}
		b = b[consumed:]
	}
	return nil
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendMessage(b []byte, num protowire.Number, m wireMessage) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, m.appendWire(nil))
}

// appendStringMap writes entries in key order so encodings are stable.
func appendStringMap(b []byte, num protowire.Number, m map[string]string) []byte {
	if len(m) == 0 {
		return b
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		var entry []byte
		entry = protowire.AppendTag(entry, mapKeyField, protowire.BytesType)
		entry = protowire.AppendString(entry, k)
		entry = protowire.AppendTag(entry, mapValueField, protowire.BytesType)
		entry = protowire.AppendString(entry, m[k])

		b = protowire.AppendTag(b, num, protowire.BytesType)
		b = protowire.AppendBytes(b, entry)
	}
	return b
}

func consumeMessage(b []byte, m wireMessage) (int, error) {
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return n, nil
	}
	if err := m.unmarshalWire(v); err != nil {
		return 0, err
	}
	return n, nil
}

func consumeMapEntry(b []byte, dst map[string]string) (int, error) {
	entry, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return n, nil
	}
	var key, value string
	err := walkFields(entry, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if typ != protowire.BytesType {
			return skipField, nil
		}
		switch num {
		case mapKeyField:
			v, n := protowire.ConsumeString(b)
			key = v
			return n, nil
		case mapValueField:
			v, n := protowire.ConsumeString(b)
			value = v
			return n, nil
		default:
			return skipField, nil
		}
	})
	if err != nil {
		return 0, err
	}
	dst[key] = value
	return n, nil
}
