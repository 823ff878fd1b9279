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


// Package envelope implements the cryptographic primitives that back
// per-record envelope encryption: DEK/nonce generation, AES-256-GCM AEAD,
// X25519 ECDH key agreement, HKDF-based DEK wrapping, Ed25519 signing, and
// multibase public key export.
package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/hkdf"
)

const (
	dekSize     = 32
	nonceSize   = 12
	saltSize    = 16
	wrapVersion = 1
	hkdfInfo    = "atproto-agent-network:dek"

	minWrappedLen = 1 + saltSize + nonceSize + 32 // version + salt + nonce + ephemeral pub, ct may be empty-ish but GCM tag adds 16
)

var (
	ErrSignNotSupported   = errors.New("envelope: key pair does not support signing")
	ErrVerifyNotSupported = errors.New("envelope: key pair does not support verification")
	ErrInvalidSignature   = errors.New("envelope: invalid signature")
	ErrUnsupportedVersion = errors.New("envelope: unsupported wrap version")
	ErrEnvelopeTooShort   = errors.New("envelope: wrapped envelope too short")
)

// Multicodec prefixes used by ExportPublicKey/ParsePublicKey.
var (
	multicodecEd25519 = []byte{0xED, 0x01}
	multicodecX25519  = []byte{0xEC, 0x01}
)

// GenerateDEK returns a fresh 32-byte data-encryption key.
func GenerateDEK() ([]byte, error) {
	return randomBytes(dekSize)
}

// GenerateNonce returns a fresh 12-byte AEAD nonce.
func GenerateNonce() ([]byte, error) {
	return randomBytes(nonceSize)
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, fmt.Errorf("envelope: read random bytes: %w", err)
	}
	return b, nil
}

// X25519KeyPair holds an X25519 private/public key pair used for key
// agreement only (no signing).
type X25519KeyPair struct {
	priv *ecdh.PrivateKey
	pub  *ecdh.PublicKey
	id   string
}

// GenerateX25519 generates a fresh X25519 key pair.
func GenerateX25519() (*X25519KeyPair, error) {
	priv, err := ecdh.X25519().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("envelope: generate x25519 key: %w", err)
	}
	pub := priv.PublicKey()
	hash := sha256.Sum256(pub.Bytes())
	return &X25519KeyPair{priv: priv, pub: pub, id: hex.EncodeToString(hash[:8])}, nil
}

// X25519FromPrivateBytes reconstructs a key pair from a raw 32-byte scalar,
// used when rehydrating a persisted identity.
func X25519FromPrivateBytes(raw []byte) (*X25519KeyPair, error) {
	priv, err := ecdh.X25519().NewPrivateKey(raw)
	if err != nil {
		return nil, fmt.Errorf("envelope: parse x25519 private key: %w", err)
	}
	pub := priv.PublicKey()
	hash := sha256.Sum256(pub.Bytes())
	return &X25519KeyPair{priv: priv, pub: pub, id: hex.EncodeToString(hash[:8])}, nil
}

func (kp *X25519KeyPair) PublicBytes() []byte  { return kp.pub.Bytes() }
func (kp *X25519KeyPair) PrivateBytes() []byte { return kp.priv.Bytes() }
func (kp *X25519KeyPair) ID() string           { return kp.id }

// DeriveSharedSecret computes the raw 32-byte X25519 ECDH output against a
// peer's public key bytes.
func DeriveSharedSecret(priv *X25519KeyPair, peerPub []byte) ([]byte, error) {
	pub, err := ecdh.X25519().NewPublicKey(peerPub)
	if err != nil {
		return nil, fmt.Errorf("envelope: parse peer public key: %w", err)
	}
	secret, err := priv.priv.ECDH(pub)
	if err != nil {
		return nil, fmt.Errorf("envelope: ecdh: %w", err)
	}
	return secret, nil
}

// Ed25519KeyPair holds an Ed25519 signing key pair.
type Ed25519KeyPair struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
	id   string
}

// GenerateEd25519 generates a fresh Ed25519 signing key pair.
func GenerateEd25519() (*Ed25519KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("envelope: generate ed25519 key: %w", err)
	}
	hash := sha256.Sum256(pub)
	return &Ed25519KeyPair{priv: priv, pub: pub, id: hex.EncodeToString(hash[:8])}, nil
}

// Ed25519FromSeed reconstructs a signing key pair from a persisted 32-byte seed.
func Ed25519FromSeed(seed []byte) (*Ed25519KeyPair, error) {
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	hash := sha256.Sum256(pub)
	return &Ed25519KeyPair{priv: priv, pub: pub, id: hex.EncodeToString(hash[:8])}, nil
}

func (kp *Ed25519KeyPair) PublicBytes() []byte  { return kp.pub }
func (kp *Ed25519KeyPair) PrivateSeed() []byte  { return kp.priv.Seed() }
func (kp *Ed25519KeyPair) ID() string           { return kp.id }

// Sign signs message with the Ed25519 private key.
func (kp *Ed25519KeyPair) Sign(message []byte) []byte {
	return ed25519.Sign(kp.priv, message)
}

// Verify checks an Ed25519 signature against this key pair's public key.
func (kp *Ed25519KeyPair) Verify(message, signature []byte) error {
	if !ed25519.Verify(kp.pub, message, signature) {
		return ErrInvalidSignature
	}
	return nil
}

// VerifyWithPublicKey checks an Ed25519 signature against an arbitrary raw
// public key, used by the relay when verifying messages from directory
// entries it did not mint itself.
func VerifyWithPublicKey(pub, message, signature []byte) error {
	if !ed25519.Verify(ed25519.PublicKey(pub), message, signature) {
		return ErrInvalidSignature
	}
	return nil
}

func aeadFor(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("envelope: new aes cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("envelope: new gcm: %w", err)
	}
	return aead, nil
}

// Encrypt seals plaintext under dek with the given nonce using AES-256-GCM.
func Encrypt(dek, nonce, plaintext []byte) ([]byte, error) {
	aead, err := aeadFor(dek)
	if err != nil {
		return nil, err
	}
	return aead.Seal(nil, nonce, plaintext, nil), nil
}

// Decrypt opens ciphertext sealed by Encrypt.
func Decrypt(dek, nonce, ciphertext []byte) ([]byte, error) {
	aead, err := aeadFor(dek)
	if err != nil {
		return nil, err
	}
	pt, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("envelope: gcm open: %w", err)
	}
	return pt, nil
}

// WrapDEK wraps dek for recipientPub: generate an ephemeral X25519 key E,
// derive ss = ECDH(E.priv, recipientPub), sample salt/nonce, derive an
// AES-256 key via HKDF-SHA256(ss, salt, info), AES-GCM-encrypt the DEK, and
// emit version(1B)=1 ‖ salt(16) ‖ nonce(12) ‖ E.pub(32) ‖ ct.
//
// Wrap is non-deterministic: every call samples a fresh ephemeral key and
// salt, so two wraps of the same DEK for the same recipient never collide
// byte-for-byte even though both decrypt to the same DEK.
func WrapDEK(dek, recipientPub []byte) ([]byte, error) {
	ephemeral, err := GenerateX25519()
	if err != nil {
		return nil, err
	}
	ss, err := DeriveSharedSecret(ephemeral, recipientPub)
	if err != nil {
		return nil, fmt.Errorf("envelope: wrap dek ecdh: %w", err)
	}
	salt, err := randomBytes(saltSize)
	if err != nil {
		return nil, err
	}
	nonce, err := GenerateNonce()
	if err != nil {
		return nil, err
	}
	wrapKey, err := hkdfKey(ss, salt, []byte(hkdfInfo))
	if err != nil {
		return nil, err
	}
	ct, err := Encrypt(wrapKey, nonce, dek)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, minWrappedLen+len(ct))
	out = append(out, byte(wrapVersion))
	out = append(out, salt...)
	out = append(out, nonce...)
	out = append(out, ephemeral.PublicBytes()...)
	out = append(out, ct...)
	return out, nil
}

// UnwrapDEK reverses WrapDEK given the recipient's private key.
func UnwrapDEK(wrapped []byte, recipientPriv *X25519KeyPair) ([]byte, error) {
	if len(wrapped) < minWrappedLen {
		return nil, ErrEnvelopeTooShort
	}
	if wrapped[0] != wrapVersion {
		return nil, ErrUnsupportedVersion
	}
	offset := 1
	salt := wrapped[offset : offset+saltSize]
	offset += saltSize
	nonce := wrapped[offset : offset+nonceSize]
	offset += nonceSize
	ephPub := wrapped[offset : offset+32]
	offset += 32
	ct := wrapped[offset:]

	ss, err := DeriveSharedSecret(recipientPriv, ephPub)
	if err != nil {
		return nil, fmt.Errorf("envelope: unwrap dek ecdh: %w", err)
	}
	wrapKey, err := hkdfKey(ss, salt, []byte(hkdfInfo))
	if err != nil {
		return nil, err
	}
	return Decrypt(wrapKey, nonce, ct)
}

func hkdfKey(secret, salt, info []byte) ([]byte, error) {
	r := hkdf.New(sha256.New, secret, salt, info)
	key := make([]byte, 32)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("envelope: hkdf expand: %w", err)
	}
	return key, nil
}

// KeyAlgorithm distinguishes multicodec prefixes for ExportPublicKey.
type KeyAlgorithm int

const (
	AlgorithmEd25519 KeyAlgorithm = iota
	AlgorithmX25519
)

// ExportPublicKey renders a raw public key as "z"+base58btc(multicodec‖raw).
func ExportPublicKey(alg KeyAlgorithm, raw []byte) (string, error) {
	var prefix []byte
	switch alg {
	case AlgorithmEd25519:
		prefix = multicodecEd25519
	case AlgorithmX25519:
		prefix = multicodecX25519
	default:
		return "", fmt.Errorf("envelope: unknown key algorithm %d", alg)
	}
	buf := make([]byte, 0, len(prefix)+len(raw))
	buf = append(buf, prefix...)
	buf = append(buf, raw...)
	return "z" + base58.Encode(buf), nil
}

// ParsePublicKey reverses ExportPublicKey, returning the algorithm and raw
// key bytes.
func ParsePublicKey(encoded string) (KeyAlgorithm, []byte, error) {
	if len(encoded) == 0 || encoded[0] != 'z' {
		return 0, nil, fmt.Errorf("envelope: multibase key must start with 'z'")
	}
	decoded, err := base58.Decode(encoded[1:])
	if err != nil {
		return 0, nil, fmt.Errorf("envelope: base58 decode: %w", err)
	}
	if len(decoded) < 2 {
		return 0, nil, fmt.Errorf("envelope: encoded key too short")
	}
	prefix := decoded[:2]
	raw := decoded[2:]
	switch {
	case prefix[0] == multicodecEd25519[0] && prefix[1] == multicodecEd25519[1]:
		return AlgorithmEd25519, raw, nil
	case prefix[0] == multicodecX25519[0] && prefix[1] == multicodecX25519[1]:
		return AlgorithmX25519, raw, nil
	default:
		return 0, nil, fmt.Errorf("envelope: unknown multicodec prefix %x", prefix)
	}
}
