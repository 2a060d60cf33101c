/*
Copyright the LC Project Authors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ca

import (
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha512"
	"crypto/x509"
	"encoding/asn1"
	"encoding/base64"
	"encoding/pem"
	"math/big"

	"github.com/ideasnpork/LC-project/pkg/errors"
)

type ecdsaSignature struct {
	R, S *big.Int
}

// createToken builds the authorization header for authenticated CA endpoints.
// The token is b64(cert) + "." + b64(sig) where sig is an ECDSA signature
// over b64(body) + "." + b64(cert), matching the fabric-ca server's
// verification.
func createToken(cert, key, body []byte) (string, error) {
	privKey, err := parseECPrivateKey(key)
	if err != nil {
		return "", err
	}

	b64body := base64.StdEncoding.EncodeToString(body)
	b64cert := base64.StdEncoding.EncodeToString(cert)

	hash := sha512.New384()
	hash.Write([]byte(b64body + "." + b64cert))

	r, s, err := ecdsa.Sign(rand.Reader, privKey, hash.Sum(nil))
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token")
	}
	sig, err := asn1.Marshal(ecdsaSignature{r, s})
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal token signature")
	}

	return b64cert + "." + base64.StdEncoding.EncodeToString(sig), nil
}

func parseECPrivateKey(keyPEM []byte) (*ecdsa.PrivateKey, error) {
	block, _ := pem.Decode(keyPEM)
	if block == nil {
		return nil, errors.New("failed to decode PEM private key")
	}
	if key, err := x509.ParseECPrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse private key")
	}
	ecKey, ok := key.(*ecdsa.PrivateKey)
	if !ok {
		return nil, errors.New("expecting an EC private key")
	}
	return ecKey, nil
}
