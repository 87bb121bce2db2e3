//go:build goethkzg

// Real go-eth-kzg-backed point evaluation for the 0x0a precompile.
//
// Build with: go build -tags goethkzg ./...
package precompiles

import (
	"fmt"
	"sync"

	goethkzg "github.com/crate-crypto/go-eth-kzg"
)

// goEthKZGVerifier wraps a go-eth-kzg Context loaded with the real
// Ethereum ceremony trusted setup.
type goEthKZGVerifier struct {
	ctx *goethkzg.Context
}

var _ KZGVerifier = (*goEthKZGVerifier)(nil)

var (
	goEthKZGOnce sync.Once
	goEthKZGErr  error
)

func init() {
	goEthKZGOnce.Do(func() {
		ctx, err := goethkzg.NewContext4096Secure()
		if err != nil {
			goEthKZGErr = fmt.Errorf("kzg: failed to initialize go-eth-kzg context: %w", err)
			return
		}
		verifier := &goEthKZGVerifier{ctx: ctx}
		DefaultKZGVerifier = verifier
		Registry[kzgAddress].(*kzgPointEvaluation).Verifier = verifier
	})
}

func (v *goEthKZGVerifier) VerifyKZGProof(commitment [48]byte, z, y [32]byte, proof [48]byte) error {
	if goEthKZGErr != nil {
		return goEthKZGErr
	}
	comm := goethkzg.KZGCommitment(commitment)
	zScalar := goethkzg.Scalar(z)
	yScalar := goethkzg.Scalar(y)
	p := goethkzg.KZGProof(proof)
	return v.ctx.VerifyKZGProof(comm, zScalar, yScalar, p)
}
