// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package engine

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/luxfi/mpcint"
)

// KeySize is the size of a network key and of a user key.
const KeySize = chacha20poly1305.KeySize

var (
	storageInfo   = []byte("mpcint storage v1")
	transportInfo = []byte("mpcint transport v1")
)

// ErrInvalidKey is returned for keys of the wrong size.
var ErrInvalidKey = errors.New("invalid key")

// NetworkKey holds the symmetric keys of the network's own encryption
// domain, both derived from one 32-byte secret.
type NetworkKey struct {
	raw       []byte
	storage   cipher.AEAD
	transport cipher.AEAD
}

// GenerateNetworkKey returns a fresh random network key.
func GenerateNetworkKey() (*NetworkKey, error) {
	raw := make([]byte, KeySize)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("generate network key: %w", err)
	}
	return NewNetworkKey(raw)
}

// NewNetworkKey derives the storage and transport keys from raw.
func NewNetworkKey(raw []byte) (*NetworkKey, error) {
	if len(raw) != KeySize {
		return nil, fmt.Errorf("%w: network key is %d bytes, want %d", ErrInvalidKey, len(raw), KeySize)
	}
	storage, err := deriveAEAD(raw, storageInfo)
	if err != nil {
		return nil, err
	}
	transport, err := deriveAEAD(raw, transportInfo)
	if err != nil {
		return nil, err
	}
	return &NetworkKey{
		raw:       append([]byte(nil), raw...),
		storage:   storage,
		transport: transport,
	}, nil
}

// ParseNetworkKey decodes a 0x-prefixed hex network key.
func ParseNetworkKey(s string) (*NetworkKey, error) {
	raw, err := hexutil.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return NewNetworkKey(raw)
}

// Hex returns the 0x-prefixed hex form of the raw key.
func (k *NetworkKey) Hex() string {
	return hexutil.Encode(k.raw)
}

func deriveAEAD(secret, info []byte) (cipher.AEAD, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, info), key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("create aead: %w", err)
	}
	return aead, nil
}

// seal encodes a word as type || nonce || aead(value). The type byte and
// extra are bound as associated data.
func seal(aead cipher.AEAD, t mpcint.Type, v uint64, extra []byte) ([]byte, error) {
	out := make([]byte, 1+aead.NonceSize(), 1+aead.NonceSize()+8+aead.Overhead())
	out[0] = byte(t)
	if _, err := rand.Read(out[1:]); err != nil {
		return nil, fmt.Errorf("read nonce: %w", err)
	}
	var pt [8]byte
	binary.BigEndian.PutUint64(pt[:], v&t.Mask())
	return aead.Seal(out, out[1:], pt[:], associated(t, extra)), nil
}

// open reverses seal and checks the word fits its type.
func open(aead cipher.AEAD, data []byte, extra []byte) (mpcint.Type, uint64, error) {
	if len(data) < 1+aead.NonceSize()+aead.Overhead() {
		return 0, 0, fmt.Errorf("%w: %d bytes", mpcint.ErrInvalidCiphertext, len(data))
	}
	t := mpcint.Type(data[0])
	if !t.Valid() {
		return 0, 0, fmt.Errorf("%w: unknown type %d", mpcint.ErrInvalidCiphertext, data[0])
	}
	nonce := data[1 : 1+aead.NonceSize()]
	pt, err := aead.Open(nil, nonce, data[1+aead.NonceSize():], associated(t, extra))
	if err != nil || len(pt) != 8 {
		return 0, 0, fmt.Errorf("%w: authentication failed", mpcint.ErrInvalidCiphertext)
	}
	v := binary.BigEndian.Uint64(pt)
	if v&^t.Mask() != 0 {
		return 0, 0, fmt.Errorf("%w: value exceeds %s", mpcint.ErrInvalidCiphertext, t)
	}
	return t, v, nil
}

func associated(t mpcint.Type, extra []byte) []byte {
	return append([]byte{byte(t)}, extra...)
}

// Encrypt produces a network ciphertext of v as a word of type t.
func (k *NetworkKey) Encrypt(t mpcint.Type, v uint64) (mpcint.Ciphertext, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d", mpcint.ErrTypeMismatch, t)
	}
	ct, err := seal(k.transport, t, v, nil)
	if err != nil {
		return nil, err
	}
	return mpcint.Ciphertext(ct), nil
}

// Decrypt opens a network ciphertext.
func (k *NetworkKey) Decrypt(ct mpcint.Ciphertext) (mpcint.Type, uint64, error) {
	return open(k.transport, ct, nil)
}

// Limbs returns the word types of a signed width: one native word up to 64
// bits, otherwise one Uint64 word per 64 bits.
func Limbs(bits uint) ([]mpcint.Type, error) {
	switch bits {
	case 8:
		return []mpcint.Type{mpcint.Uint8}, nil
	case 16:
		return []mpcint.Type{mpcint.Uint16}, nil
	case 32:
		return []mpcint.Type{mpcint.Uint32}, nil
	case 64:
		return []mpcint.Type{mpcint.Uint64}, nil
	case 128:
		return []mpcint.Type{mpcint.Uint64, mpcint.Uint64}, nil
	case 256:
		return []mpcint.Type{mpcint.Uint64, mpcint.Uint64, mpcint.Uint64, mpcint.Uint64}, nil
	}
	return nil, fmt.Errorf("%w: no signed width of %d bits", mpcint.ErrTypeMismatch, bits)
}

// EncryptSigned encrypts a signed value of the given width as network
// ciphertexts, most significant limb first.
func (k *NetworkKey) EncryptSigned(bits uint, v *big.Int) ([]mpcint.Ciphertext, error) {
	types, err := Limbs(bits)
	if err != nil {
		return nil, err
	}
	z, err := mpcint.ToWords(v, bits)
	if err != nil {
		return nil, err
	}
	out := make([]mpcint.Ciphertext, len(types))
	for i, t := range types {
		ct, err := k.Encrypt(t, z[len(types)-1-i])
		if err != nil {
			return nil, err
		}
		out[i] = ct
	}
	return out, nil
}

// DecryptSigned opens the limbs produced by EncryptSigned.
func (k *NetworkKey) DecryptSigned(bits uint, cts []mpcint.Ciphertext) (*big.Int, error) {
	types, err := Limbs(bits)
	if err != nil {
		return nil, err
	}
	if len(cts) != len(types) {
		return nil, fmt.Errorf("%w: %d limbs for int%d", mpcint.ErrInvalidCiphertext, len(cts), bits)
	}
	var z [4]uint64
	for i, ct := range cts {
		t, v, err := k.Decrypt(ct)
		if err != nil {
			return nil, err
		}
		if t != types[i] {
			return nil, fmt.Errorf("%w: limb %d is %s, want %s", mpcint.ErrTypeMismatch, i, t, types[i])
		}
		z[len(cts)-1-i] = v
	}
	return mpcint.FromWords(z, bits), nil
}
