/*
Copyright the LC Project Authors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package fabconnect adapts the Fabric gateway client to the session
// interfaces. Each Connect builds a throwaway in-memory wallet holding only
// the invoking identity, so credentials never touch the SDK's own stores.
package fabconnect

import (
	"context"
	"os"
	"path/filepath"

	"github.com/hyperledger/fabric-sdk-go/pkg/core/config"
	"github.com/hyperledger/fabric-sdk-go/pkg/gateway"

	gwconfig "github.com/ideasnpork/LC-project/pkg/config"
	"github.com/ideasnpork/LC-project/pkg/errors"
	"github.com/ideasnpork/LC-project/pkg/ledger"
	"github.com/ideasnpork/LC-project/pkg/wallet"
)

// sessionLabel is the label the invoking identity is stored under in the
// per-connection wallet. It never leaves the process.
const sessionLabel = "session"

// Connector dials a Fabric network described by a connection profile.
type Connector struct {
	cfg *gwconfig.LedgerConfig
}

// New returns a connector for the given ledger configuration.
func New(cfg *gwconfig.LedgerConfig) *Connector {
	return &Connector{cfg: cfg}
}

// Connect opens a gateway connection authenticated as the given identity.
func (c *Connector) Connect(ctx context.Context, identity *wallet.X509Identity) (ledger.Connection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.cfg.AsLocalhost {
		// service discovery rewrites peer addresses when the network runs in
		// local containers
		if err := os.Setenv("DISCOVERY_AS_LOCALHOST", "true"); err != nil {
			return nil, errors.Wrap(err, "failed to enable localhost discovery")
		}
	}

	sdkWallet := gateway.NewInMemoryWallet()
	sdkIdentity := gateway.NewX509Identity(identity.MspID, identity.Credentials.Certificate, identity.Credentials.Key)
	if err := sdkWallet.Put(sessionLabel, sdkIdentity); err != nil {
		return nil, errors.Wrap(err, "failed to stage identity for connection")
	}

	gw, err := gateway.Connect(
		gateway.WithConfig(config.FromFile(filepath.Clean(c.cfg.ConnectionProfile))),
		gateway.WithIdentity(sdkWallet, sessionLabel),
		gateway.WithTimeout(c.cfg.SubmitTimeout),
	)
	if err != nil {
		return nil, errors.WithCode(errors.Wrap(err, "failed to connect to gateway"), errors.ConnectionFailed)
	}
	return &connection{gw: gw}, nil
}

type connection struct {
	gw *gateway.Gateway
}

func (c *connection) Channel(name string) (ledger.Channel, error) {
	network, err := c.gw.GetNetwork(name)
	if err != nil {
		return nil, errors.WithCode(errors.Wrapf(err, "failed to get network for channel %s", name), errors.ChannelNotFound)
	}
	return &channel{network: network}, nil
}

func (c *connection) Close() error {
	c.gw.Close()
	return nil
}

type channel struct {
	network *gateway.Network
}

// Contract resolves lazily: the SDK does not verify deployment here, so a
// missing contract surfaces when the first invocation fails.
func (ch *channel) Contract(name string) (ledger.Contract, error) {
	return &contract{contract: ch.network.GetContract(name)}, nil
}

type contract struct {
	contract *gateway.Contract
}

func (c *contract) Submit(ctx context.Context, fn string, args ...string) ([]byte, error) {
	return c.run(ctx, func() ([]byte, error) {
		return c.contract.SubmitTransaction(fn, args...)
	})
}

func (c *contract) Evaluate(ctx context.Context, fn string, args ...string) ([]byte, error) {
	return c.run(ctx, func() ([]byte, error) {
		return c.contract.EvaluateTransaction(fn, args...)
	})
}

type invokeResult struct {
	payload []byte
	err     error
}

// run bridges the SDK's blocking transaction calls to context cancellation.
// A call that outlives the context keeps running in the background; its
// result is discarded.
func (c *contract) run(ctx context.Context, call func() ([]byte, error)) ([]byte, error) {
	done := make(chan invokeResult, 1)
	go func() {
		payload, err := call()
		done <- invokeResult{payload: payload, err: err}
	}()
	select {
	case res := <-done:
		return res.payload, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
