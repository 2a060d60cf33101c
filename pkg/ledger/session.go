/*
Copyright the LC Project Authors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ledger

import (
	"context"
	"time"

	logging "github.com/op/go-logging"

	"github.com/ideasnpork/LC-project/pkg/config"
	"github.com/ideasnpork/LC-project/pkg/errors"
	"github.com/ideasnpork/LC-project/pkg/metrics"
	"github.com/ideasnpork/LC-project/pkg/wallet"
)

var logger = logging.MustGetLogger("lcgateway/ledger")

// SessionManager runs ledger operations. Each invocation acquires its own
// connection and releases it before returning; connections are never pooled
// or shared between requests.
type SessionManager struct {
	wallet    *wallet.Wallet
	connector Connector
	metrics   *metrics.ClientMetrics

	connectTimeout  time.Duration
	submitTimeout   time.Duration
	evaluateTimeout time.Duration
}

// NewSessionManager creates a session manager over the given wallet and
// connector. A nil metrics bundle disables instrumentation.
func NewSessionManager(w *wallet.Wallet, connector Connector, cfg *config.LedgerConfig, m *metrics.ClientMetrics) *SessionManager {
	if m == nil {
		m = metrics.Disabled()
	}
	return &SessionManager{
		wallet:          w,
		connector:       connector,
		metrics:         m,
		connectTimeout:  cfg.ConnectTimeout,
		submitTimeout:   cfg.SubmitTimeout,
		evaluateTimeout: cfg.EvaluateTimeout,
	}
}

// Invoke performs one ledger operation end to end: identity lookup, connect,
// channel and contract resolution, submit or evaluate. The connection opened
// for the operation is released exactly once on every exit path.
func (m *SessionManager) Invoke(ctx context.Context, req Request) ([]byte, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	identity, err := m.identity(req.Label)
	if err != nil {
		return nil, err
	}

	connectCtx, cancel := context.WithTimeout(ctx, m.connectTimeout)
	conn, err := m.connector.Connect(connectCtx, identity)
	cancel()
	if err != nil {
		return nil, ensureCode(errors.WithMessage(err, "failed to connect to the ledger network"), errors.ConnectionFailed)
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil {
			logger.Warningf("Failed to release ledger connection for %q: %s", req.Label, closeErr)
		}
	}()

	channel, err := conn.Channel(req.Channel)
	if err != nil {
		return nil, ensureCode(errors.Wrapf(err, "failed to resolve channel %q", req.Channel), errors.ChannelNotFound)
	}
	contract, err := channel.Contract(req.Contract)
	if err != nil {
		return nil, ensureCode(errors.Wrapf(err, "failed to resolve contract %q", req.Contract), errors.ContractNotFound)
	}

	return m.invoke(ctx, contract, req)
}

func (m *SessionManager) invoke(ctx context.Context, contract Contract, req Request) ([]byte, error) {
	started := time.Now()

	switch req.Kind {
	case Submit:
		m.metrics.ExecutionsReceived.With("contract", req.Contract, "fn", req.Function).Add(1)
		invokeCtx, cancel := context.WithTimeout(ctx, m.submitTimeout)
		defer cancel()

		result, err := contract.Submit(invokeCtx, req.Function, req.Args...)
		m.metrics.ExecutionDuration.With("contract", req.Contract, "fn", req.Function).Observe(time.Since(started).Seconds())
		if err != nil {
			if errors.Cause(err) == context.DeadlineExceeded {
				m.metrics.ExecutionTimeouts.With("contract", req.Contract, "fn", req.Function).Add(1)
				return nil, errors.Codef(errors.CommitTimeout, "commit of %s did not complete in %s", req.Function, m.submitTimeout)
			}
			m.metrics.ExecutionsFailed.With("contract", req.Contract, "fn", req.Function).Add(1)
			return nil, ensureCode(errors.Wrapf(err, "submit of %s failed", req.Function), errors.EndorsementFailed)
		}
		return result, nil

	case Evaluate:
		m.metrics.QueriesReceived.With("contract", req.Contract, "fn", req.Function).Add(1)
		invokeCtx, cancel := context.WithTimeout(ctx, m.evaluateTimeout)
		defer cancel()

		result, err := contract.Evaluate(invokeCtx, req.Function, req.Args...)
		m.metrics.QueryDuration.With("contract", req.Contract, "fn", req.Function).Observe(time.Since(started).Seconds())
		if err != nil {
			if errors.Cause(err) == context.DeadlineExceeded {
				m.metrics.QueryTimeouts.With("contract", req.Contract, "fn", req.Function).Add(1)
				return nil, errors.Codef(errors.PeerUnavailable, "evaluation of %s did not complete in %s", req.Function, m.evaluateTimeout)
			}
			m.metrics.QueriesFailed.With("contract", req.Contract, "fn", req.Function).Add(1)
			return nil, ensureCode(errors.Wrapf(err, "evaluation of %s failed", req.Function), errors.EvaluationFailed)
		}
		return result, nil

	default:
		return nil, errors.Errorf("unknown invocation kind %d", req.Kind)
	}
}

// identity loads the wallet record for a label, mapping absence to
// UnknownIdentity. No connection attempt is made for an unknown label.
func (m *SessionManager) identity(label string) (*wallet.X509Identity, error) {
	id, err := m.wallet.Get(label)
	if err != nil {
		if errors.CodeOf(err) == errors.NotFound {
			return nil, errors.Codef(errors.UnknownIdentity, "identity %q is not enrolled", label)
		}
		return nil, err
	}
	x509, ok := id.(*wallet.X509Identity)
	if !ok {
		return nil, errors.Errorf("identity %q has an unsupported type", label)
	}
	return x509, nil
}

func validate(req Request) error {
	switch {
	case req.Label == "":
		return errors.New("identity label is required")
	case req.Channel == "":
		return errors.New("channel name is required")
	case req.Contract == "":
		return errors.New("contract name is required")
	case req.Function == "":
		return errors.New("function name is required")
	}
	return nil
}

// ensureCode keeps codes assigned deeper in the stack and assigns the given
// default to uncoded errors.
func ensureCode(err error, code errors.Code) error {
	if errors.CodeOf(err) != errors.Unspecified {
		return err
	}
	return errors.WithCode(err, code)
}
