package precompiles

import (
	"math/big"

	"github.com/ethereum/go-ethereum/crypto/bn256/cloudflare"
)

// --- bn256Add (address 0x06) -- EIP-196 ---
// --- bn256ScalarMul (address 0x07) -- EIP-196 ---
// --- bn256Pairing (address 0x08) -- EIP-197 ---
//
// The teacher's own precompiles.go stubs these three behind
// ErrBN254NotImplemented, noting the BN254 curve library was never
// wired in. go-ethereum ships one at crypto/bn256/cloudflare (a direct
// dependency of this module already); these precompiles exercise it
// for real rather than carrying the stub forward.
//
// An unmarshalable point is not an error: spec.md's "points must validate;
// invalid input yields empty output" (mirrored by ecrecover's nil,nil on a
// bad signature, and by mythril's ec_add/ec_mul/ec_pair each returning []
// rather than raising on a ValidationError) means Run reports success with
// an empty result, not a failed call.

const (
	bn256AddGas         = 150   // EIP-1108
	bn256ScalarMulGas   = 6000  // EIP-1108
	bn256PairingBaseGas = 45000 // EIP-1108
	bn256PairingPerGas  = 34000
	bn256PairingEltSize = 192
)

func newCurvePoint(data []byte) (*bn256.G1, bool) {
	p := new(bn256.G1)
	if _, err := p.Unmarshal(data); err != nil {
		return nil, false
	}
	return p, true
}

func newTwistPoint(data []byte) (*bn256.G2, bool) {
	p := new(bn256.G2)
	if _, err := p.Unmarshal(data); err != nil {
		return nil, false
	}
	return p, true
}

type bn256Add struct{}

func (c *bn256Add) RequiredGas(input []byte) uint64 { return bn256AddGas }

func (c *bn256Add) Run(input []byte) ([]byte, error) {
	input = padRight(input, 128)
	x, ok := newCurvePoint(input[0:64])
	if !ok {
		return nil, nil
	}
	y, ok := newCurvePoint(input[64:128])
	if !ok {
		return nil, nil
	}
	sum := new(bn256.G1).Add(x, y)
	return sum.Marshal(), nil
}

type bn256ScalarMul struct{}

func (c *bn256ScalarMul) RequiredGas(input []byte) uint64 { return bn256ScalarMulGas }

func (c *bn256ScalarMul) Run(input []byte) ([]byte, error) {
	input = padRight(input, 96)
	p, ok := newCurvePoint(input[0:64])
	if !ok {
		return nil, nil
	}
	scalar := new(big.Int).SetBytes(input[64:96])
	result := new(bn256.G1).ScalarMult(p, scalar)
	return result.Marshal(), nil
}

type bn256Pairing struct{}

func (c *bn256Pairing) RequiredGas(input []byte) uint64 {
	k := uint64(len(input)) / bn256PairingEltSize
	return bn256PairingBaseGas + bn256PairingPerGas*k
}

func (c *bn256Pairing) Run(input []byte) ([]byte, error) {
	if len(input)%bn256PairingEltSize != 0 {
		// Malformed length, same as mythril's ec_pair: empty output, not
		// an error.
		return nil, nil
	}

	var g1s []*bn256.G1
	var g2s []*bn256.G2
	for i := 0; i < len(input); i += bn256PairingEltSize {
		g1, ok := newCurvePoint(input[i : i+64])
		if !ok {
			return nil, nil
		}
		g2, ok := newTwistPoint(input[i+64 : i+bn256PairingEltSize])
		if !ok {
			return nil, nil
		}
		g1s = append(g1s, g1)
		g2s = append(g2s, g2)
	}

	result := make([]byte, 32)
	if bn256.PairingCheck(g1s, g2s) {
		result[31] = 1
	}
	return result, nil
}
