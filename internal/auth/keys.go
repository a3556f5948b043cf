package auth

import (
	"crypto/ecdsa"
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"
)

// KeyPair holds the ECDSA keys used for ES256 token signing. Loaded once at
// process start and immutable for the process lifetime, so it is shared
// across requests without locking.
type KeyPair struct {
	Private *ecdsa.PrivateKey
	Public  *ecdsa.PublicKey
}

// LoadKeyPair reads a PEM-encoded EC private/public key pair from disk.
// Startup fails if either file is unreadable or not a valid EC key.
func LoadKeyPair(privateKeyPath, publicKeyPath string) (*KeyPair, error) {
	privPEM, err := os.ReadFile(privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read private key %s: %w", privateKeyPath, err)
	}
	priv, err := jwt.ParseECPrivateKeyFromPEM(privPEM)
	if err != nil {
		return nil, fmt.Errorf("parse private key %s: %w", privateKeyPath, err)
	}

	pubPEM, err := os.ReadFile(publicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read public key %s: %w", publicKeyPath, err)
	}
	pub, err := jwt.ParseECPublicKeyFromPEM(pubPEM)
	if err != nil {
		return nil, fmt.Errorf("parse public key %s: %w", publicKeyPath, err)
	}

	return &KeyPair{Private: priv, Public: pub}, nil
}
