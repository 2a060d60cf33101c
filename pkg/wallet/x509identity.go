/*
Copyright the LC Project Authors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package wallet

import (
	"encoding/json"
	"time"
)

const x509Type = "X.509"

// Identity represents a specific identity format held in a wallet.
type Identity interface {
	idType() string
	mspID() string
	toJSON() ([]byte, error)
	fromJSON(data []byte) (Identity, error)
}

// X509Identity is an identity backed by an X509 certificate and private key.
// The JSON layout matches the wallet format used by Fabric client SDKs, with
// enrollment metadata added.
type X509Identity struct {
	Version     int         `json:"version"`
	MspID       string      `json:"mspId"`
	IDType      string      `json:"type"`
	Affiliation string      `json:"affiliation,omitempty"`
	EnrolledAt  time.Time   `json:"enrolledAt,omitempty"`
	Credentials credentials `json:"credentials"`
}

type credentials struct {
	Certificate string `json:"certificate"`
	Key         string `json:"privateKey"`
}

// NewX509Identity creates an X509 identity for storage in a wallet.
func NewX509Identity(mspid string, cert string, key string) *X509Identity {
	return &X509Identity{
		Version:     1,
		MspID:       mspid,
		IDType:      x509Type,
		Credentials: credentials{cert, key},
	}
}

func (x *X509Identity) idType() string {
	return x509Type
}

func (x *X509Identity) mspID() string {
	return x.MspID
}

// Certificate returns the X509 certificate PEM.
func (x *X509Identity) Certificate() string {
	return x.Credentials.Certificate
}

// Key returns the private key PEM.
func (x *X509Identity) Key() string {
	return x.Credentials.Key
}

func (x *X509Identity) toJSON() ([]byte, error) {
	return json.Marshal(x)
}

func (x *X509Identity) fromJSON(data []byte) (Identity, error) {
	err := json.Unmarshal(data, x)
	if err != nil {
		return nil, err
	}
	return x, nil
}
