package precompiles

import (
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"
)

// --- ecrecover (address 0x01) ---

type ecrecover struct{}

func (c *ecrecover) RequiredGas(input []byte) uint64 {
	return 3000
}

func (c *ecrecover) Run(input []byte) ([]byte, error) {
	input = padRight(input, 128)

	hash := input[0:32]
	v := new(big.Int).SetBytes(input[32:64])
	r := new(big.Int).SetBytes(input[64:96])
	s := new(big.Int).SetBytes(input[96:128])

	if v.BitLen() > 8 {
		return nil, nil
	}
	vByte := byte(v.Uint64())
	if vByte != 27 && vByte != 28 {
		return nil, nil
	}

	if !crypto.ValidateSignatureValues(vByte-27, r, s, true) {
		return nil, nil
	}

	sig := make([]byte, 65)
	rBytes := r.Bytes()
	sBytes := s.Bytes()
	copy(sig[32-len(rBytes):32], rBytes)
	copy(sig[64-len(sBytes):64], sBytes)
	sig[64] = vByte - 27

	pub, err := crypto.Ecrecover(hash, sig)
	if err != nil {
		return nil, nil
	}

	addr := crypto.Keccak256(pub[1:])

	result := make([]byte, 32)
	copy(result[12:], addr[12:])
	return result, nil
}
