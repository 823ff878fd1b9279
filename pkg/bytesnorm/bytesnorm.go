// AgentNet - Autonomous Agent Network Core
// Copyright (C) 2026 atproto-agent-network
//
// This file is part of AgentNet.
//
// AgentNet is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// AgentNet is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with AgentNet. If not, see <https://www.gnu.org/licenses/>.


// Package bytesnorm normalizes the several shapes binary fields can
// arrive in at an ingress boundary into a canonical []byte, so downstream
// code only ever handles raw bytes.
package bytesnorm

import (
	"encoding/base64"
	"fmt"
)

// Normalize accepts []byte, a base64-encoded string, or a []interface{} of
// numeric byte values (the shape JSON unmarshaling into interface{}
// produces for a would-be byte array) and returns a canonical []byte.
func Normalize(v interface{}) ([]byte, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case []byte:
		return t, nil
	case string:
		b, err := base64.StdEncoding.DecodeString(t)
		if err != nil {
			return nil, fmt.Errorf("bytesnorm: invalid base64 string: %w", err)
		}
		return b, nil
	case []interface{}:
		out := make([]byte, len(t))
		for i, elem := range t {
			n, ok := toByte(elem)
			if !ok {
				return nil, fmt.Errorf("bytesnorm: element %d is not a byte value", i)
			}
			out[i] = n
		}
		return out, nil
	default:
		return nil, fmt.Errorf("bytesnorm: unsupported type %T", v)
	}
}

func toByte(v interface{}) (byte, bool) {
	switch n := v.(type) {
	case float64:
		if n < 0 || n > 255 {
			return 0, false
		}
		return byte(n), true
	case int:
		if n < 0 || n > 255 {
			return 0, false
		}
		return byte(n), true
	default:
		return 0, false
	}
}

// ToBase64 is the inverse used when serializing ciphertext/nonce/dek
// fields back onto the wire, where encrypted fields travel as base64
// strings.
func ToBase64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}
