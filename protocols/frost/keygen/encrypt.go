package keygen

import (
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/taurusgroup/frost-coordinator/pkg/math/curve"
	"github.com/taurusgroup/frost-coordinator/pkg/party"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const shareInfo = "frost-dkg-share"

// shareKey derives the symmetric key protecting the share sent from one party to another.
//
// shared is the Diffie-Hellman point between the two encryption keys, so
// both ends derive the same key.
func shareKey(shared *curve.Point, ctx []byte, from, to party.ID) ([]byte, error) {
	ikm, err := shared.MarshalBinary()
	if err != nil {
		return nil, err
	}
	info := make([]byte, 0, len(shareInfo)+4)
	info = append(info, shareInfo...)
	info = append(info, from.Bytes()...)
	info = append(info, to.Bytes()...)
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, ikm, ctx, info), key); err != nil {
		return nil, err
	}
	return key, nil
}

func shareAAD(from, to party.ID) []byte {
	return append(from.Bytes(), to.Bytes()...)
}

// encryptShare seals share for the holder of recipientKey.
//
// Each key is used for a single message, so the nonce is fixed.
func encryptShare(senderSecret *curve.Scalar, recipientKey *curve.Point, ctx []byte, from, to party.ID, share *curve.Scalar) ([]byte, error) {
	shared := curve.NewIdentityPoint().ScalarMult(senderSecret, recipientKey)
	key, err := shareKey(shared, ctx, from, to)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, chacha20poly1305.NonceSize)
	return aead.Seal(nil, nonce, share.Bytes(), shareAAD(from, to)), nil
}

// decryptShare opens a share sent to us by the holder of senderKey.
func decryptShare(recipientSecret *curve.Scalar, senderKey *curve.Point, ctx []byte, from, to party.ID, ciphertext []byte) (*curve.Scalar, error) {
	shared := curve.NewIdentityPoint().ScalarMult(recipientSecret, senderKey)
	key, err := shareKey(shared, ctx, from, to)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, chacha20poly1305.NonceSize)
	plaintext, err := aead.Open(nil, nonce, ciphertext, shareAAD(from, to))
	if err != nil {
		return nil, fmt.Errorf("keygen: failed to decrypt share from %s: %w", from, err)
	}
	share := curve.NewScalar()
	if err := share.UnmarshalBinary(plaintext); err != nil {
		return nil, fmt.Errorf("keygen: invalid share from %s: %w", from, err)
	}
	return share, nil
}
