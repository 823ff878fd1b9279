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


// Package identity models an agent's stable cryptographic identity: a DID
// plus an Ed25519 signing key pair and an X25519 encryption key pair. Keys
// are generated when New creates the identity; an identity rebuilt from
// KeyMaterial hydrates its key pairs lazily.
package identity

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/atproto-agent-network/agentnet/pkg/envelope"
)

// DID is a stable opaque identifier of the form "did:cf:<id>".
type DID string

// NewDID derives a fresh DID from a random instance id.
func NewDID() (DID, error) {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("identity: generate instance id: %w", err)
	}
	return DID("did:cf:" + hex.EncodeToString(raw)), nil
}

// Identity is the per-actor cryptographic identity.
type Identity struct {
	DID        DID          `json:"did"`
	Signing    *KeyMaterial `json:"signingKeyPair"`
	Encryption *KeyMaterial `json:"encryptionKeyPair"`
	CreatedAt  time.Time    `json:"createdAt"`
	RotatedAt  *time.Time   `json:"rotatedAt,omitempty"`

	signing    *envelope.Ed25519KeyPair
	encryption *envelope.X25519KeyPair
}

// KeyMaterial is the durable (private, at-rest) representation of a key
// pair, versioned so a rotated key can be distinguished from the one it
// replaced.
type KeyMaterial struct {
	Version   int    `json:"version"`
	Algorithm string `json:"algorithm"`
	// PrivateKeyHex is the raw private key material (Ed25519 seed or X25519
	// scalar) hex-encoded for storage. It is never serialized onto the wire
	// outside the actor's own persistence layer.
	PrivateKeyHex string `json:"privateKeyHex"`
	PublicKeyHex  string `json:"publicKeyHex"`
}

// New generates a fresh identity: a new DID, a new Ed25519 signing pair,
// and a new X25519 encryption pair.
func New() (*Identity, error) {
	did, err := NewDID()
	if err != nil {
		return nil, err
	}
	signing, err := envelope.GenerateEd25519()
	if err != nil {
		return nil, fmt.Errorf("identity: generate signing key: %w", err)
	}
	encryption, err := envelope.GenerateX25519()
	if err != nil {
		return nil, fmt.Errorf("identity: generate encryption key: %w", err)
	}

	id := &Identity{
		DID:        did,
		CreatedAt:  time.Now().UTC(),
		signing:    signing,
		encryption: encryption,
	}
	id.Signing = &KeyMaterial{
		Version:       1,
		Algorithm:     "Ed25519",
		PrivateKeyHex: hex.EncodeToString(signing.PrivateSeed()),
		PublicKeyHex:  hex.EncodeToString(signing.PublicBytes()),
	}
	id.Encryption = &KeyMaterial{
		Version:       1,
		Algorithm:     "X25519",
		PrivateKeyHex: hex.EncodeToString(encryption.PrivateBytes()),
		PublicKeyHex:  hex.EncodeToString(encryption.PublicBytes()),
	}
	return id, nil
}

// Hydrate reconstructs the in-memory key pairs from persisted KeyMaterial,
// used when the actor is rebuilt from the store.
func (id *Identity) Hydrate() error {
	signingSeed, err := hex.DecodeString(id.Signing.PrivateKeyHex)
	if err != nil {
		return fmt.Errorf("identity: decode signing key: %w", err)
	}
	signing, err := envelope.Ed25519FromSeed(signingSeed)
	if err != nil {
		return fmt.Errorf("identity: hydrate signing key: %w", err)
	}
	encPriv, err := hex.DecodeString(id.Encryption.PrivateKeyHex)
	if err != nil {
		return fmt.Errorf("identity: decode encryption key: %w", err)
	}
	encryption, err := envelope.X25519FromPrivateBytes(encPriv)
	if err != nil {
		return fmt.Errorf("identity: hydrate encryption key: %w", err)
	}
	id.signing = signing
	id.encryption = encryption
	return nil
}

// SigningKeyPair returns the live Ed25519 key pair, hydrating lazily if
// needed.
func (id *Identity) SigningKeyPair() (*envelope.Ed25519KeyPair, error) {
	if id.signing == nil {
		if err := id.Hydrate(); err != nil {
			return nil, err
		}
	}
	return id.signing, nil
}

// EncryptionKeyPair returns the live X25519 key pair, hydrating lazily if
// needed.
func (id *Identity) EncryptionKeyPair() (*envelope.X25519KeyPair, error) {
	if id.encryption == nil {
		if err := id.Hydrate(); err != nil {
			return nil, err
		}
	}
	return id.encryption, nil
}

// PublicKeys exports both public keys in multibase form, matching the
// shape the relay directory and /agents registration endpoint expose.
type PublicKeys struct {
	Encryption string `json:"encryption"`
	Signing    string `json:"signing"`
}

// Export returns the multibase-encoded public keys for directory
// publication.
func (id *Identity) Export() (PublicKeys, error) {
	signing, err := id.SigningKeyPair()
	if err != nil {
		return PublicKeys{}, err
	}
	encryption, err := id.EncryptionKeyPair()
	if err != nil {
		return PublicKeys{}, err
	}
	signingExp, err := envelope.ExportPublicKey(envelope.AlgorithmEd25519, signing.PublicBytes())
	if err != nil {
		return PublicKeys{}, err
	}
	encExp, err := envelope.ExportPublicKey(envelope.AlgorithmX25519, encryption.PublicBytes())
	if err != nil {
		return PublicKeys{}, err
	}
	return PublicKeys{Encryption: encExp, Signing: signingExp}, nil
}

// Rotate replaces the encryption key pair with a freshly generated one and
// records the rotation time. Signing keys are not rotated here; DID
// continuity is preserved (spec does not require re-issuing the DID).
func (id *Identity) Rotate() error {
	fresh, err := envelope.GenerateX25519()
	if err != nil {
		return fmt.Errorf("identity: rotate encryption key: %w", err)
	}
	id.encryption = fresh
	id.Encryption = &KeyMaterial{
		Version:       id.Encryption.Version + 1,
		Algorithm:     "X25519",
		PrivateKeyHex: hex.EncodeToString(fresh.PrivateBytes()),
		PublicKeyHex:  hex.EncodeToString(fresh.PublicBytes()),
	}
	now := time.Now().UTC()
	id.RotatedAt = &now
	return nil
}
