/*
Copyright the LC Project Authors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package wallet is the gateway's credential store: a durable mapping from an
// identity label to the certificate and private key enrolled for it. The
// Wallet handles the identity format; persistence is behind the Store
// interface so the CA and ledger layers never touch the storage medium.
package wallet

import (
	"encoding/json"

	"github.com/ideasnpork/LC-project/pkg/errors"
)

// Store is the persistence contract the wallet is built on. Implementations
// must make Put atomic per label: a concurrent Get never observes a
// half-written record. Errors carry the NotFound or StorageUnavailable code.
type Store interface {
	Put(label string, content []byte) error
	Get(label string) ([]byte, error)
	Remove(label string) error
	Exists(label string) bool
	List() ([]string, error)
}

// A Wallet stores identity information used to connect to the ledger network.
// Instances are created using factory methods on the implementing stores.
type Wallet struct {
	store Store
}

// New creates a wallet backed by the given store.
func New(store Store) *Wallet {
	return &Wallet{store: store}
}

// Put an identity into the wallet. An existing record under the same label is
// replaced as a whole; records are never partially mutated.
func (w *Wallet) Put(label string, id Identity) error {
	content, err := id.toJSON()
	if err != nil {
		return errors.Wrap(err, "failed to serialize identity")
	}
	return w.store.Put(label, content)
}

// Get an identity from the wallet. Absence is reported with the NotFound
// code, distinct from storage faults.
func (w *Wallet) Get(label string) (Identity, error) {
	content, err := w.store.Get(label)
	if err != nil {
		return nil, err
	}

	var data map[string]interface{}
	if err := json.Unmarshal(content, &data); err != nil {
		return nil, errors.Wrap(err, "invalid identity format")
	}

	idType, ok := data["type"].(string)
	if !ok {
		return nil, errors.New("invalid identity format: missing type property")
	}

	var id Identity
	switch idType {
	case x509Type:
		id = &X509Identity{}
	default:
		return nil, errors.New("invalid identity format: unsupported identity type: " + idType)
	}

	return id.fromJSON(content)
}

// List returns the labels of all identities in the wallet, sorted
// lexicographically.
func (w *Wallet) List() ([]string, error) {
	return w.store.List()
}

// Exists tests whether the wallet contains an identity for the given label.
func (w *Wallet) Exists(label string) bool {
	return w.store.Exists(label)
}

// Remove an identity from the wallet. If the identity does not exist, this
// method does nothing.
func (w *Wallet) Remove(label string) error {
	return w.store.Remove(label)
}
