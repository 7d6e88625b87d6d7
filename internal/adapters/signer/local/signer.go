package local

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"

	"github.com/bnema/smartwallet-cli/internal/ports"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

var errNilKey = errors.New("private key is nil")

// Signer is an embedded secp256k1 wallet. Signatures use v in {27, 28}.
type Signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

var _ ports.KeySigner = (*Signer)(nil)

// Keys creates and restores local signers.
type Keys struct{}

var _ ports.KeySource = Keys{}

func (Keys) Generate() (ports.KeySigner, error) {
	signer, err := GenerateSigner()
	if err != nil {
		return nil, err
	}
	return signer, nil
}

func (Keys) Parse(raw string) (ports.KeySigner, error) {
	signer, err := ParseSigner(raw)
	if err != nil {
		return nil, err
	}
	return signer, nil
}

func NewSigner(key *ecdsa.PrivateKey) (*Signer, error) {
	if key == nil {
		return nil, errNilKey
	}

	return &Signer{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}, nil
}

// ParseSigner accepts a hex private key with or without the 0x prefix.
func ParseSigner(raw string) (*Signer, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(raw), "0x")
	key, err := crypto.HexToECDSA(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	return NewSigner(key)
}

func GenerateSigner() (*Signer, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generate private key: %w", err)
	}

	return NewSigner(key)
}

func (s *Signer) Address() common.Address {
	return s.address
}

// ExportHex returns the 0x-prefixed private key for the secret store.
func (s *Signer) ExportHex() string {
	return hexutil.Encode(crypto.FromECDSA(s.key))
}

func (s *Signer) SignMessage(ctx context.Context, msg []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return s.signHash(accounts.TextHash(msg))
}

func (s *Signer) SignTypedData(ctx context.Context, data apitypes.TypedData) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	hash, _, err := apitypes.TypedDataAndHash(data)
	if err != nil {
		return nil, fmt.Errorf("hash typed data: %w", err)
	}

	return s.signHash(hash)
}

func (s *Signer) signHash(hash []byte) ([]byte, error) {
	sig, err := crypto.Sign(hash, s.key)
	if err != nil {
		return nil, fmt.Errorf("sign hash: %w", err)
	}

	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}
