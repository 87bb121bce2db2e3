package precompiles

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"math/big"
)

// --- kzgPointEvaluation (address 0x0a) -- EIP-4844 ---

const (
	pointEvaluationGas      = 50000
	versionedHashVersionKZG = 0x01
)

var (
	fieldElementsPerBlob = big.NewInt(4096)
	blsModulus, _        = new(big.Int).SetString(
		"52435875175126190479447740508185965837690552500527637822603658699938581184513", 10)
)

// KZGVerifier abstracts the actual pairing-based proof check so the
// precompile can run with or without the real Ethereum ceremony setup
// loaded; see kzg_goeth_adapter.go for the production implementation.
type KZGVerifier interface {
	VerifyKZGProof(commitment [48]byte, z, y [32]byte, proof [48]byte) error
}

// formatOnlyKZGVerifier accepts any input whose commitment/versioned-hash
// relationship already checked out, without running the pairing check --
// the same limitation the teacher's own precompiles.go documents for this
// precompile ("actual cryptographic verification requires a KZG library
// with a trusted setup"). DefaultKZGVerifier is swapped for the real
// go-eth-kzg-backed verifier when built with the goethkzg tag.
type formatOnlyKZGVerifier struct{}

func (formatOnlyKZGVerifier) VerifyKZGProof(commitment [48]byte, z, y [32]byte, proof [48]byte) error {
	return nil
}

// DefaultKZGVerifier is used by the registry's 0x0a entry. Overridden to
// a goeth-kzg-backed verifier in kzg_goeth_adapter.go under the
// "goethkzg" build tag.
var DefaultKZGVerifier KZGVerifier = formatOnlyKZGVerifier{}

type kzgPointEvaluation struct {
	Verifier KZGVerifier
}

func (c *kzgPointEvaluation) RequiredGas(input []byte) uint64 {
	return pointEvaluationGas
}

func (c *kzgPointEvaluation) Run(input []byte) ([]byte, error) {
	if len(input) != 192 {
		return nil, errors.New("kzg: invalid input length")
	}

	versionedHash := input[:32]
	z := new(big.Int).SetBytes(input[32:64])
	y := new(big.Int).SetBytes(input[64:96])

	if versionedHash[0] != versionedHashVersionKZG {
		return nil, errors.New("kzg: invalid versioned hash version")
	}
	if z.Cmp(blsModulus) >= 0 {
		return nil, errors.New("kzg: z is not a valid field element")
	}
	if y.Cmp(blsModulus) >= 0 {
		return nil, errors.New("kzg: y is not a valid field element")
	}

	var commitment [48]byte
	copy(commitment[:], input[96:144])
	var proof [48]byte
	copy(proof[:], input[144:192])

	commitHash := sha256.Sum256(commitment[:])
	commitHash[0] = versionedHashVersionKZG
	if !bytes.Equal(versionedHash, commitHash[:]) {
		return nil, errors.New("kzg: commitment does not match versioned hash")
	}

	verifier := c.Verifier
	if verifier == nil {
		verifier = DefaultKZGVerifier
	}
	var zArr, yArr [32]byte
	z.FillBytes(zArr[:])
	y.FillBytes(yArr[:])
	if err := verifier.VerifyKZGProof(commitment, zArr, yArr, proof); err != nil {
		return nil, errors.New("kzg: proof verification failed")
	}

	result := make([]byte, 64)
	fieldBytes := fieldElementsPerBlob.Bytes()
	copy(result[32-len(fieldBytes):32], fieldBytes)
	modBytes := blsModulus.Bytes()
	copy(result[64-len(modBytes):64], modBytes)
	return result, nil
}
