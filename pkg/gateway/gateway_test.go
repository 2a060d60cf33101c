/*
Copyright the LC Project Authors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package gateway_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ideasnpork/LC-project/pkg/ca"
	camocks "github.com/ideasnpork/LC-project/pkg/ca/mocks"
	"github.com/ideasnpork/LC-project/pkg/config"
	"github.com/ideasnpork/LC-project/pkg/errors"
	"github.com/ideasnpork/LC-project/pkg/gateway"
	"github.com/ideasnpork/LC-project/pkg/ledger"
	ledgermocks "github.com/ideasnpork/LC-project/pkg/ledger/mocks"
	"github.com/ideasnpork/LC-project/pkg/wallet"
)

const configTemplate = `logging:
  level: warning
certificateAuthority:
  url: %s
  caName: ca-org1
  registrar:
    enrollId: admin
    enrollSecret: adminpw
ledger:
  mspId: Org1MSP
  defaultChannel: mychannel
  defaultContract: lc
  connectTimeout: 5s
  submitTimeout: 5s
  evaluateTimeout: 5s
`

type fixture struct {
	gateway *gateway.Gateway
	wallet  *wallet.Wallet
	ca      *camocks.CAServer
	network *ledgermocks.FakeNetwork
}

func newFixture(t *testing.T) *fixture {
	server := camocks.NewCAServer()
	server.Secrets = map[string]string{
		"admin": "adminpw",
		"alice": server.RegisterSecret,
		"bob":   server.RegisterSecret,
	}
	t.Cleanup(server.Close)

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	content := fmt.Sprintf(configTemplate, server.URL())
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))
	cfg, err := config.FromFile(configPath)
	require.NoError(t, err)

	caConfig, err := cfg.CA()
	require.NoError(t, err)
	caClient, err := ca.New(caConfig)
	require.NoError(t, err)

	w := wallet.NewInMemoryWallet()
	network := ledgermocks.NewFakeNetwork()
	gw, err := gateway.New(cfg, w, caClient, network, nil)
	require.NoError(t, err)

	return &fixture{gateway: gw, wallet: w, ca: server, network: network}
}

func (f *fixture) enrollAdminAndAlice(t *testing.T) {
	require.True(t, f.gateway.EnrollAdmin(context.Background()).OK)
	require.True(t, f.gateway.Enroll(context.Background(), "alice", "finance").OK)
}

func TestEnrollAdminThenList(t *testing.T) {
	f := newFixture(t)

	result := f.gateway.EnrollAdmin(context.Background())
	require.True(t, result.OK, result.Diagnostic)

	listed := f.gateway.ListIdentities()
	require.True(t, listed.OK)
	require.Contains(t, listed.Labels, "admin")
}

func TestEnrollWithoutAdmin(t *testing.T) {
	f := newFixture(t)

	result := f.gateway.Enroll(context.Background(), "alice", "finance")
	require.False(t, result.OK)
	require.Equal(t, errors.CallerNotEnrolled, result.Reason)
	require.False(t, result.Retryable)
	require.NotEmpty(t, result.Diagnostic)
}

func TestEnrollTwice(t *testing.T) {
	f := newFixture(t)
	f.enrollAdminAndAlice(t)

	result := f.gateway.Enroll(context.Background(), "alice", "finance")
	require.False(t, result.OK)
	require.Equal(t, errors.AlreadyEnrolled, result.Reason)
	require.False(t, result.Retryable)
}

func TestEnrollRecordsAffiliation(t *testing.T) {
	f := newFixture(t)
	f.enrollAdminAndAlice(t)

	require.Equal(t, "finance", f.ca.RegisteredAffiliation("alice"))
	id, err := f.wallet.Get("alice")
	require.NoError(t, err)
	x509, ok := id.(*wallet.X509Identity)
	require.True(t, ok)
	require.Equal(t, "Org1MSP", x509.MspID)
	require.Equal(t, "finance", x509.Affiliation)
}

func TestSubmitThroughGateway(t *testing.T) {
	f := newFixture(t)
	f.enrollAdminAndAlice(t)
	f.network.SubmitResult = []byte(`{"id":"C1"}`)

	result := f.gateway.InvokeLedger(context.Background(), "alice", "mychannel", "lc",
		ledger.Submit, "RegisterCredit", "C1", "alice", "F100", "500", "1000")
	require.True(t, result.OK, result.Diagnostic)
	require.Equal(t, []byte(`{"id":"C1"}`), result.Payload)
	require.Equal(t, 1, f.network.OrderingInvocations())
	require.Equal(t, 1, f.network.ConnectCalls())
	require.Equal(t, 1, f.network.DisconnectCalls())
}

func TestEvaluateThroughGateway(t *testing.T) {
	f := newFixture(t)
	f.enrollAdminAndAlice(t)
	fixed := []byte(`{"id":"C1","state":"ISSUED","amount":"500"}`)
	f.network.EvaluateResult = fixed

	result := f.gateway.InvokeLedger(context.Background(), "alice", "mychannel", "lc",
		ledger.Evaluate, "ReadCredit", "C1")
	require.True(t, result.OK, result.Diagnostic)
	require.Equal(t, fixed, result.Payload)
	require.Equal(t, 0, f.network.OrderingInvocations())
}

func TestConnectFaultThroughGateway(t *testing.T) {
	f := newFixture(t)
	f.enrollAdminAndAlice(t)
	f.network.ConnectErr = errors.New("transport fault")

	result := f.gateway.InvokeLedger(context.Background(), "alice", "mychannel", "lc",
		ledger.Submit, "RegisterCredit", "C1")
	require.False(t, result.OK)
	require.Equal(t, errors.ConnectionFailed, result.Reason)
	require.True(t, result.Retryable)
	require.Equal(t, 0, f.network.DisconnectCalls())

	f.network.ConnectErr = nil
	f.network.SubmitErr = errors.New("endorsement fault")
	result = f.gateway.InvokeLedger(context.Background(), "alice", "mychannel", "lc",
		ledger.Submit, "RegisterCredit", "C1")
	require.False(t, result.OK)
	require.Equal(t, errors.EndorsementFailed, result.Reason)
	require.False(t, result.Retryable)
	require.Equal(t, 1, f.network.DisconnectCalls())
}

func TestInvokeWithUnknownIdentity(t *testing.T) {
	f := newFixture(t)

	result := f.gateway.InvokeLedger(context.Background(), "mallory", "mychannel", "lc",
		ledger.Evaluate, "ReadCredit", "C1")
	require.False(t, result.OK)
	require.Equal(t, errors.UnknownIdentity, result.Reason)
	require.Equal(t, 0, f.network.ConnectCalls())
}

func TestCreditOperations(t *testing.T) {
	f := newFixture(t)
	f.enrollAdminAndAlice(t)
	f.network.EvaluateResult = []byte(`{}`)

	ctx := context.Background()
	require.True(t, f.gateway.RegisterCredit(ctx, "alice", "C1", "alice", "F100", "500", "1000").OK)
	require.True(t, f.gateway.TransferCredit(ctx, "alice", "C1", "bob").OK)
	require.True(t, f.gateway.ReadCredit(ctx, "alice", "C1").OK)
	require.True(t, f.gateway.CreditHistory(ctx, "alice", "C1").OK)

	require.Equal(t, []string{"RegisterCredit", "TransferCredit"}, f.network.SubmittedFunctions())
	require.Equal(t, []string{"ReadCredit", "GetCreditHistory"}, f.network.EvaluatedFunctions())
	require.Equal(t, f.network.ConnectCalls(), f.network.DisconnectCalls())
}
