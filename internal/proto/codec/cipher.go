package codec

import (
	"crypto/aes"
	"crypto/cipher"
	"io"

	mccipher "github.com/Tnze/go-mc/net/CFB8"
)

// newCFB8Block builds the AES-128 block cipher the protocol's CFB8 stream
// mode is layered on. The IV is the shared secret itself, as vanilla does.
// Stdlib's crypto/cipher only implements 128-bit-feedback CFB, which is wire
// incompatible here, so the 8-bit-feedback variant comes from go-mc.
func newCFB8Block(secret []byte) (cipher.Block, error) {
	return aes.NewCipher(secret)
}

// NewDecryptReader wraps r so every byte read from it is decrypted in place.
func NewDecryptReader(r io.Reader, secret []byte) (io.Reader, error) {
	block, err := newCFB8Block(secret)
	if err != nil {
		return nil, err
	}
	return &cipher.StreamReader{S: mccipher.NewCFB8Decrypt(block, secret), R: r}, nil
}

// NewEncryptWriter wraps w so every byte written to it is encrypted in place.
func NewEncryptWriter(w io.Writer, secret []byte) (io.Writer, error) {
	block, err := newCFB8Block(secret)
	if err != nil {
		return nil, err
	}
	return &cipher.StreamWriter{S: mccipher.NewCFB8Encrypt(block, secret), W: w}, nil
}
