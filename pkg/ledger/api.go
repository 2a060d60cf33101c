/*
Copyright the LC Project Authors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package ledger manages the per-operation session against the distributed
// ledger network: connect with a wallet identity, resolve channel and
// contract, invoke the transaction and release the connection on every exit
// path.
package ledger

import (
	"context"

	"github.com/ideasnpork/LC-project/pkg/wallet"
)

// Kind selects the transaction semantics of an invocation. Submit goes
// through endorsement and ordering and only completes once the network
// commits it; Evaluate runs against one peer's current state. Using Evaluate
// for a state-changing function silently loses the state change, so the kind
// is part of the request, never inferred.
type Kind int

// Invocation kinds.
const (
	Submit Kind = iota
	Evaluate
)

func (k Kind) String() string {
	if k == Submit {
		return "submit"
	}
	return "evaluate"
}

// Request describes one ledger operation.
type Request struct {
	Label    string
	Channel  string
	Contract string
	Kind     Kind
	Function string
	Args     []string
}

// Connector opens authenticated connections to the ledger network. The
// production implementation lives in the fabconnect subpackage; tests use a
// counting fake.
type Connector interface {
	Connect(ctx context.Context, identity *wallet.X509Identity) (Connection, error)
}

// Connection is an authenticated session with the network. It is valid
// between Connect and Close and must not be shared across callers acting
// under different identities.
type Connection interface {
	Channel(name string) (Channel, error)
	Close() error
}

// Channel is a resolved ledger channel.
type Channel interface {
	Contract(name string) (Contract, error)
}

// Contract is a resolved smart contract within a channel. Function names and
// arguments are opaque pass-throughs; their business meaning lives on the
// ledger side.
type Contract interface {
	Submit(ctx context.Context, fn string, args ...string) ([]byte, error)
	Evaluate(ctx context.Context, fn string, args ...string) ([]byte, error)
}
