/*
Copyright the LC Project Authors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package mocks provides an in-memory ledger network for session tests.
// Every connection and teardown is counted so tests can assert that each
// invocation releases exactly what it acquired.
package mocks

import (
	"context"
	"sync"

	"github.com/ideasnpork/LC-project/pkg/errors"
	"github.com/ideasnpork/LC-project/pkg/ledger"
	"github.com/ideasnpork/LC-project/pkg/wallet"
)

// FakeNetwork implements ledger.Connector. Faults are injected per step by
// setting the corresponding error field before invoking.
type FakeNetwork struct {
	lock sync.Mutex

	// fault injection, in lifecycle order
	ConnectErr  error
	ChannelErr  error
	ContractErr error
	SubmitErr   error
	EvaluateErr error

	// canned results
	SubmitResult   []byte
	EvaluateResult []byte

	// known names; empty means everything resolves
	Channels  []string
	Contracts []string

	connectCalls        int
	disconnectCalls     int
	orderingInvocations int
	submittedFunctions  []string
	evaluatedFunctions  []string
	connectedAs         []string
}

// NewFakeNetwork returns a network where every channel and contract resolves
// and both invocation kinds return empty payloads.
func NewFakeNetwork() *FakeNetwork {
	return &FakeNetwork{}
}

// Connect implements ledger.Connector.
func (n *FakeNetwork) Connect(ctx context.Context, identity *wallet.X509Identity) (ledger.Connection, error) {
	n.lock.Lock()
	defer n.lock.Unlock()
	if n.ConnectErr != nil {
		return nil, n.ConnectErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n.connectCalls++
	n.connectedAs = append(n.connectedAs, identity.MspID)
	return &fakeConnection{network: n}, nil
}

// ConnectCalls reports how many connections were handed out.
func (n *FakeNetwork) ConnectCalls() int {
	n.lock.Lock()
	defer n.lock.Unlock()
	return n.connectCalls
}

// DisconnectCalls reports how many connections were released.
func (n *FakeNetwork) DisconnectCalls() int {
	n.lock.Lock()
	defer n.lock.Unlock()
	return n.disconnectCalls
}

// OrderingInvocations reports how many invocations went through the ordering
// path, i.e. how many submits reached the network.
func (n *FakeNetwork) OrderingInvocations() int {
	n.lock.Lock()
	defer n.lock.Unlock()
	return n.orderingInvocations
}

// SubmittedFunctions returns the functions submitted so far, in order.
func (n *FakeNetwork) SubmittedFunctions() []string {
	n.lock.Lock()
	defer n.lock.Unlock()
	return append([]string(nil), n.submittedFunctions...)
}

// EvaluatedFunctions returns the functions evaluated so far, in order.
func (n *FakeNetwork) EvaluatedFunctions() []string {
	n.lock.Lock()
	defer n.lock.Unlock()
	return append([]string(nil), n.evaluatedFunctions...)
}

type fakeConnection struct {
	network *FakeNetwork
	closed  bool
}

func (c *fakeConnection) Channel(name string) (ledger.Channel, error) {
	n := c.network
	n.lock.Lock()
	defer n.lock.Unlock()
	if n.ChannelErr != nil {
		return nil, n.ChannelErr
	}
	if !known(n.Channels, name) {
		return nil, errors.Errorf("channel %s does not exist", name)
	}
	return &fakeChannel{network: n}, nil
}

func (c *fakeConnection) Close() error {
	n := c.network
	n.lock.Lock()
	defer n.lock.Unlock()
	if c.closed {
		return errors.New("connection already released")
	}
	c.closed = true
	n.disconnectCalls++
	return nil
}

type fakeChannel struct {
	network *FakeNetwork
}

func (ch *fakeChannel) Contract(name string) (ledger.Contract, error) {
	n := ch.network
	n.lock.Lock()
	defer n.lock.Unlock()
	if n.ContractErr != nil {
		return nil, n.ContractErr
	}
	if !known(n.Contracts, name) {
		return nil, errors.Errorf("contract %s is not deployed", name)
	}
	return &fakeContract{network: n}, nil
}

type fakeContract struct {
	network *FakeNetwork
}

func (c *fakeContract) Submit(ctx context.Context, fn string, args ...string) ([]byte, error) {
	n := c.network
	n.lock.Lock()
	defer n.lock.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if n.SubmitErr != nil {
		return nil, n.SubmitErr
	}
	n.orderingInvocations++
	n.submittedFunctions = append(n.submittedFunctions, fn)
	return n.SubmitResult, nil
}

func (c *fakeContract) Evaluate(ctx context.Context, fn string, args ...string) ([]byte, error) {
	n := c.network
	n.lock.Lock()
	defer n.lock.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if n.EvaluateErr != nil {
		return nil, n.EvaluateErr
	}
	n.evaluatedFunctions = append(n.evaluatedFunctions, fn)
	return n.EvaluateResult, nil
}

func known(names []string, name string) bool {
	if len(names) == 0 {
		return true
	}
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
