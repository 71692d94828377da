package derive

import (
	"golang.org/x/crypto/sha3"

	"github.com/kilianp07/walletfactory/core/model"
)

const create2Prefix = 0xff

var (
	// cloneCodePrefix and cloneCodeSuffix surround the implementation
	// address in the EIP-1167 minimal proxy creation code.
	cloneCodePrefix = []byte{
		0x3d, 0x60, 0x2d, 0x80, 0x60, 0x0a, 0x3d, 0x39, 0x81, 0xf3,
		0x36, 0x3d, 0x3d, 0x37, 0x3d, 0x3d, 0x3d, 0x36, 0x3d, 0x73,
	}
	cloneCodeSuffix = []byte{
		0x5a, 0xf4, 0x3d, 0x82, 0x80, 0x3e, 0x90, 0x3d, 0x91, 0x60,
		0x2b, 0x57, 0xfd, 0x5b, 0xf3,
	}
)

// Keccak256 hashes the concatenation of data with legacy Keccak-256.
func Keccak256(data ...[]byte) model.Hash {
	h := sha3.NewLegacyKeccak256()
	for _, b := range data {
		h.Write(b)
	}
	var out model.Hash
	h.Sum(out[:0])
	return out
}

// Address returns the CREATE2 address for factory, codeHash and salt.
func Address(factory model.Address, codeHash model.Hash, salt model.Salt) model.Address {
	digest := Keccak256([]byte{create2Prefix}, factory[:], salt[:], codeHash[:])
	var a model.Address
	copy(a[:], digest[model.HashLength-model.AddressLength:])
	return a
}

// CloneInitCode returns the minimal proxy creation code delegating to impl.
func CloneInitCode(impl model.Address) []byte {
	code := make([]byte, 0, len(cloneCodePrefix)+model.AddressLength+len(cloneCodeSuffix))
	code = append(code, cloneCodePrefix...)
	code = append(code, impl[:]...)
	return append(code, cloneCodeSuffix...)
}

// CloneCodeHash is keccak256(CloneInitCode(impl)).
func CloneCodeHash(impl model.Address) model.Hash {
	return Keccak256(CloneInitCode(impl))
}

// WalletAddress derives the address of a wallet cloned from impl.
func WalletAddress(factory, impl model.Address, salt model.Salt) model.Address {
	return Address(factory, CloneCodeHash(impl), salt)
}

// ImplementationAddress derives where version of the shared logic whose
// code is code will be deployed by factory.
func ImplementationAddress(factory model.Address, code []byte, version uint64) model.Address {
	return Address(factory, Keccak256(code), model.SaltFromUint64(version))
}
