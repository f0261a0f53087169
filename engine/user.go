// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package engine

import (
	"crypto/cipher"
	"crypto/ecdsa"
	"crypto/rand"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/luxfi/mpcint"
)

// ticketDomain separates input-ticket digests from any other keccak use.
var ticketDomain = []byte("mpcint input ticket v1")

// TicketDigest returns the digest an input ticket signature commits to.
func TicketDigest(t mpcint.Type, ct mpcint.Ciphertext) []byte {
	return crypto.Keccak256(ticketDomain, []byte{byte(t)}, ct)
}

// UserKey is a client identity: a secp256k1 signing key whose address names
// the user, and a symmetric key the network re-encrypts outputs under.
type UserKey struct {
	signer *ecdsa.PrivateKey
	secret []byte
	aead   cipher.AEAD
}

// GenerateUserKey creates a fresh user identity.
func GenerateUserKey() (*UserKey, error) {
	signer, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generate signing key: %w", err)
	}
	secret := make([]byte, KeySize)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate user key: %w", err)
	}
	return NewUserKey(signer, secret)
}

// NewUserKey assembles a user identity from its parts.
func NewUserKey(signer *ecdsa.PrivateKey, secret []byte) (*UserKey, error) {
	aead, err := chacha20poly1305.New(secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return &UserKey{
		signer: signer,
		secret: append([]byte(nil), secret...),
		aead:   aead,
	}, nil
}

// Address returns the user's address.
func (u *UserKey) Address() common.Address {
	return crypto.PubkeyToAddress(u.signer.PublicKey)
}

// Secret returns the symmetric key to register with an engine.
func (u *UserKey) Secret() []byte {
	return append([]byte(nil), u.secret...)
}

// Ticket signs a network ciphertext of type t as an input ticket.
func (u *UserKey) Ticket(t mpcint.Type, ct mpcint.Ciphertext) (mpcint.InputTicket, error) {
	sig, err := crypto.Sign(TicketDigest(t, ct), u.signer)
	if err != nil {
		return mpcint.InputTicket{}, fmt.Errorf("sign ticket: %w", err)
	}
	return mpcint.InputTicket{Ciphertext: ct, Signature: sig}, nil
}

// Open decrypts a ciphertext the network re-encrypted for this user.
func (u *UserKey) Open(ct mpcint.Ciphertext) (mpcint.Type, uint64, error) {
	addr := u.Address()
	return open(u.aead, ct, addr[:])
}
