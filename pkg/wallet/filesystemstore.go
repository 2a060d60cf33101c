/*
Copyright the LC Project Authors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package wallet

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/ideasnpork/LC-project/pkg/errors"
)

const dataFileExtension string = ".id"

// fileSystemStore keeps one file per label under a directory. Writes go to a
// temp file and are renamed into place, so a reader never sees a half-written
// record.
type fileSystemStore struct {
	path string
}

// NewFileSystemWallet creates a wallet persisted in the given directory, one
// file per identity label.
func NewFileSystemWallet(path string) (*Wallet, error) {
	cleanPath := filepath.Clean(path)
	if err := os.MkdirAll(cleanPath, 0750); err != nil {
		return nil, errors.WithCode(errors.Wrap(err, "failed to create wallet directory"), errors.StorageUnavailable)
	}
	return New(&fileSystemStore{cleanPath}), nil
}

func (fsw *fileSystemStore) pathname(label string) string {
	return filepath.Clean(filepath.Join(fsw.path, label) + dataFileExtension)
}

// Put writes the record atomically.
func (fsw *fileSystemStore) Put(label string, content []byte) error {
	pathname := fsw.pathname(label)

	tmp, err := os.CreateTemp(fsw.path, label+".tmp*")
	if err != nil {
		return errors.WithCode(err, errors.StorageUnavailable)
	}
	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return errors.WithCode(err, errors.StorageUnavailable)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return errors.WithCode(err, errors.StorageUnavailable)
	}
	if err := os.Chmod(tmp.Name(), 0600); err != nil {
		_ = os.Remove(tmp.Name())
		return errors.WithCode(err, errors.StorageUnavailable)
	}
	if err := os.Rename(tmp.Name(), pathname); err != nil {
		_ = os.Remove(tmp.Name())
		return errors.WithCode(err, errors.StorageUnavailable)
	}
	return nil
}

// Get reads the record for a label, distinguishing absence from I/O faults.
func (fsw *fileSystemStore) Get(label string) ([]byte, error) {
	content, err := os.ReadFile(fsw.pathname(label))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Codef(errors.NotFound, "identity not found: %s", label)
		}
		return nil, errors.WithCode(err, errors.StorageUnavailable)
	}
	return content, nil
}

// Remove deletes the record for a label. Removing an absent label is not an
// error.
func (fsw *fileSystemStore) Remove(label string) error {
	err := os.Remove(fsw.pathname(label))
	if err != nil && !os.IsNotExist(err) {
		return errors.WithCode(err, errors.StorageUnavailable)
	}
	return nil
}

// Exists tests the existence of a record for a label.
func (fsw *fileSystemStore) Exists(label string) bool {
	_, err := os.Stat(fsw.pathname(label))
	return err == nil
}

// List returns all stored labels, sorted.
func (fsw *fileSystemStore) List() ([]string, error) {
	files, err := os.ReadDir(fsw.path)
	if err != nil {
		return nil, errors.WithCode(err, errors.StorageUnavailable)
	}

	var labels []string
	for _, file := range files {
		name := file.Name()
		if filepath.Ext(name) == dataFileExtension {
			labels = append(labels, name[:len(name)-len(dataFileExtension)])
		}
	}
	sort.Strings(labels)
	return labels, nil
}
