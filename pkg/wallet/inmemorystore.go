/*
Copyright the LC Project Authors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package wallet

import (
	"sort"
	"sync"

	"github.com/ideasnpork/LC-project/pkg/errors"
)

// inMemoryStore holds records in a map. Not persistent; used by tests and by
// the production connector for scratch wallets.
type inMemoryStore struct {
	mutex   sync.RWMutex
	storage map[string][]byte
}

// NewInMemoryWallet creates a wallet held in memory, safe for concurrent use.
func NewInMemoryWallet() *Wallet {
	return New(&inMemoryStore{storage: make(map[string][]byte)})
}

func (m *inMemoryStore) Put(label string, content []byte) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	record := make([]byte, len(content))
	copy(record, content)
	m.storage[label] = record
	return nil
}

func (m *inMemoryStore) Get(label string) ([]byte, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if content, ok := m.storage[label]; ok {
		return content, nil
	}
	return nil, errors.Codef(errors.NotFound, "identity not found: %s", label)
}

func (m *inMemoryStore) Remove(label string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.storage, label)
	return nil
}

func (m *inMemoryStore) Exists(label string) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	_, ok := m.storage[label]
	return ok
}

func (m *inMemoryStore) List() ([]string, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	labels := make([]string, 0, len(m.storage))
	for label := range m.storage {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels, nil
}
