/*
Copyright the LC Project Authors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package gateway is the caller-facing surface of the subsystem. It composes
// the enrollment service, the credential wallet and the ledger session
// manager, and reports every outcome as a typed Result instead of raising
// transport errors to the caller.
package gateway

import (
	"context"

	logging "github.com/op/go-logging"

	"github.com/ideasnpork/LC-project/pkg/config"
	"github.com/ideasnpork/LC-project/pkg/enroll"
	"github.com/ideasnpork/LC-project/pkg/errors"
	"github.com/ideasnpork/LC-project/pkg/ledger"
	"github.com/ideasnpork/LC-project/pkg/metrics"
	"github.com/ideasnpork/LC-project/pkg/wallet"
)

var logger = logging.MustGetLogger("lcgateway/gateway")

// Enroller obtains identities from the certificate authority.
type Enroller interface {
	EnrollAdmin(ctx context.Context) error
	RegisterAndEnroll(ctx context.Context, label, affiliation string) error
}

// Invoker runs a single ledger operation.
type Invoker interface {
	Invoke(ctx context.Context, req ledger.Request) ([]byte, error)
}

// Gateway exposes the subsystem's operations to the transport layer above.
type Gateway struct {
	enroller Enroller
	invoker  Invoker
	wallet   *wallet.Wallet
	metrics  *metrics.ClientMetrics

	defaultChannel  string
	defaultContract string
}

// New wires a gateway from configuration and the two external collaborators:
// the CA client and the ledger connector.
func New(cfg *config.Config, w *wallet.Wallet, caClient enroll.CAClient, connector ledger.Connector, m *metrics.ClientMetrics) (*Gateway, error) {
	caConfig, err := cfg.CA()
	if err != nil {
		return nil, err
	}
	ledgerConfig, err := cfg.Ledger()
	if err != nil {
		return nil, err
	}
	if m == nil {
		m = metrics.Disabled()
	}
	return &Gateway{
		enroller:        enroll.New(caClient, w, cfg.MSPID(), cfg.AdminLabel(), caConfig.Registrar),
		invoker:         ledger.NewSessionManager(w, connector, ledgerConfig, m),
		wallet:          w,
		metrics:         m,
		defaultChannel:  cfg.DefaultChannel(),
		defaultContract: cfg.DefaultContract(),
	}, nil
}

// EnrollAdmin enrolls the administrator identity with the CA's pre-shared
// registrar credentials.
func (g *Gateway) EnrollAdmin(ctx context.Context) Result {
	g.metrics.EnrollmentsReceived.With("kind", "admin").Add(1)
	if err := g.enroller.EnrollAdmin(ctx); err != nil {
		g.metrics.EnrollmentsFailed.With("kind", "admin").Add(1)
		logger.Warningf("Admin enrollment failed: %s", err)
		return fail(err)
	}
	return ok(nil)
}

// Enroll registers and enrolls a new identity under the given label.
func (g *Gateway) Enroll(ctx context.Context, label, affiliation string) Result {
	g.metrics.EnrollmentsReceived.With("kind", "user").Add(1)
	if err := g.enroller.RegisterAndEnroll(ctx, label, affiliation); err != nil {
		g.metrics.EnrollmentsFailed.With("kind", "user").Add(1)
		logger.Warningf("Enrollment of %q failed: %s", label, err)
		return fail(err)
	}
	return ok(nil)
}

// ListIdentities enumerates the labels stored in the wallet.
func (g *Gateway) ListIdentities() Result {
	labels, err := g.wallet.List()
	if err != nil {
		return fail(err)
	}
	return okLabels(labels)
}

// InvokeLedger runs one ledger operation under the given identity.
func (g *Gateway) InvokeLedger(ctx context.Context, label, channel, contract string, kind ledger.Kind, function string, args ...string) Result {
	result, err := g.invoker.Invoke(ctx, ledger.Request{
		Label:    label,
		Channel:  channel,
		Contract: contract,
		Kind:     kind,
		Function: function,
		Args:     args,
	})
	if err != nil {
		logger.Warningf("%s of %s on %s/%s failed: %s", kind, function, channel, contract, err)
		return fail(err)
	}
	return ok(result)
}

// RegisterCredit records a new letter of credit on the default contract.
func (g *Gateway) RegisterCredit(ctx context.Context, label string, args ...string) Result {
	return g.InvokeLedger(ctx, label, g.defaultChannel, g.defaultContract, ledger.Submit, "RegisterCredit", args...)
}

// TransferCredit transfers an existing credit between parties.
func (g *Gateway) TransferCredit(ctx context.Context, label string, args ...string) Result {
	return g.InvokeLedger(ctx, label, g.defaultChannel, g.defaultContract, ledger.Submit, "TransferCredit", args...)
}

// ReadCredit returns the current state of a credit.
func (g *Gateway) ReadCredit(ctx context.Context, label, creditID string) Result {
	return g.InvokeLedger(ctx, label, g.defaultChannel, g.defaultContract, ledger.Evaluate, "ReadCredit", creditID)
}

// CreditHistory returns the transaction history of a credit.
func (g *Gateway) CreditHistory(ctx context.Context, label, creditID string) Result {
	return g.InvokeLedger(ctx, label, g.defaultChannel, g.defaultContract, ledger.Evaluate, "GetCreditHistory", creditID)
}

// Result is the discriminated outcome of a gateway operation. A failure
// carries a stable reason code for programmatic branching and a free-text
// diagnostic for operators; payloads are never rebuilt from error strings.
type Result struct {
	OK         bool
	Payload    []byte
	Labels     []string
	Reason     errors.Code
	Retryable  bool
	Diagnostic string
}

func ok(payload []byte) Result {
	return Result{OK: true, Payload: payload}
}

func okLabels(labels []string) Result {
	return Result{OK: true, Labels: labels}
}

func fail(err error) Result {
	code := errors.CodeOf(err)
	return Result{
		Reason:     code,
		Retryable:  errors.Retryable(code),
		Diagnostic: err.Error(),
	}
}
