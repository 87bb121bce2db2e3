package precompiles

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/crypto/bn256/cloudflare"
)

func TestBn256AddGeneratorPlusItself(t *testing.T) {
	g := new(bn256.G1).ScalarBaseMult(big.NewInt(1))
	gBytes := g.Marshal()

	input := append(append([]byte{}, gBytes...), gBytes...)
	c := &bn256Add{}
	out, err := c.Run(input)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	want := new(bn256.G1).ScalarBaseMult(big.NewInt(2))
	if !bytes.Equal(out, want.Marshal()) {
		t.Errorf("G + G != 2G")
	}
}

func TestBn256ScalarMul(t *testing.T) {
	g := new(bn256.G1).ScalarBaseMult(big.NewInt(1))
	gBytes := g.Marshal()
	scalar := make([]byte, 32)
	scalar[31] = 3

	input := append(append([]byte{}, gBytes...), scalar...)
	c := &bn256ScalarMul{}
	out, err := c.Run(input)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	want := new(bn256.G1).ScalarBaseMult(big.NewInt(3))
	if !bytes.Equal(out, want.Marshal()) {
		t.Errorf("3*G mismatch")
	}
}

func TestBn256PairingInvalidLength(t *testing.T) {
	c := &bn256Pairing{}
	out, err := c.Run(make([]byte, 100))
	if err != nil {
		t.Fatalf("Run error: %v, want success with empty output", err)
	}
	if len(out) != 0 {
		t.Errorf("out = %x, want empty (input length not a multiple of 192)", out)
	}
}

func TestBn256AddInvalidPointReturnsEmptyOutput(t *testing.T) {
	// Correctly sized (64 bytes) but not a point on the curve: ecrecover's
	// nil,nil precedent and mythril's ec_add both report success with
	// empty output rather than an error.
	bad := bytes.Repeat([]byte{0xff}, 64)
	g := new(bn256.G1).ScalarBaseMult(big.NewInt(1))
	input := append(append([]byte{}, bad...), g.Marshal()...)

	c := &bn256Add{}
	out, err := c.Run(input)
	if err != nil {
		t.Fatalf("Run error: %v, want success with empty output", err)
	}
	if len(out) != 0 {
		t.Errorf("out = %x, want empty", out)
	}
}

func TestBn256ScalarMulInvalidPointReturnsEmptyOutput(t *testing.T) {
	bad := bytes.Repeat([]byte{0xff}, 64)
	scalar := make([]byte, 32)
	scalar[31] = 3
	input := append(append([]byte{}, bad...), scalar...)

	c := &bn256ScalarMul{}
	out, err := c.Run(input)
	if err != nil {
		t.Fatalf("Run error: %v, want success with empty output", err)
	}
	if len(out) != 0 {
		t.Errorf("out = %x, want empty", out)
	}
}

func TestBn256PairingInvalidPointReturnsEmptyOutput(t *testing.T) {
	bad := bytes.Repeat([]byte{0xff}, bn256PairingEltSize)

	c := &bn256Pairing{}
	out, err := c.Run(bad)
	if err != nil {
		t.Fatalf("Run error: %v, want success with empty output", err)
	}
	if len(out) != 0 {
		t.Errorf("out = %x, want empty", out)
	}
}

func TestBn256PairingGasScalesWithElementCount(t *testing.T) {
	c := &bn256Pairing{}
	if got := c.RequiredGas(make([]byte, 0)); got != bn256PairingBaseGas {
		t.Errorf("gas for 0 elements = %d, want %d", got, bn256PairingBaseGas)
	}
	if got := c.RequiredGas(make([]byte, bn256PairingEltSize)); got != bn256PairingBaseGas+bn256PairingPerGas {
		t.Errorf("gas for 1 element = %d, want %d", got, bn256PairingBaseGas+bn256PairingPerGas)
	}
}
