/*
Copyright the LC Project Authors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFromFile(t *testing.T) {
	cfg, err := FromFile("testdata/config_test.yaml")
	require.NoError(t, err)

	caConfig, err := cfg.CA()
	require.NoError(t, err)
	require.Equal(t, "https://localhost:7054", caConfig.URL)
	require.Equal(t, "ca.org1.example.com", caConfig.CAName)
	require.Equal(t, "admin", caConfig.Registrar.EnrollID)
	require.Equal(t, "adminpw", caConfig.Registrar.EnrollSecret)
	require.Equal(t, 15*time.Second, caConfig.Timeout)

	ledgerConfig, err := cfg.Ledger()
	require.NoError(t, err)
	require.Equal(t, "Org1MSP", ledgerConfig.MSPID)
	require.True(t, ledgerConfig.AsLocalhost)
	require.Equal(t, 20*time.Second, ledgerConfig.ConnectTimeout)
	require.Equal(t, 90*time.Second, ledgerConfig.SubmitTimeout)
	require.Equal(t, 5*time.Second, ledgerConfig.EvaluateTimeout)

	require.Equal(t, "Org1MSP", cfg.MSPID())
	require.Equal(t, "testdata/wallet", cfg.WalletPath())
	require.Equal(t, "admin", cfg.AdminLabel())
	require.Equal(t, "mychannel", cfg.DefaultChannel())
	require.Equal(t, "lc", cfg.DefaultContract())
}

func TestMissingFile(t *testing.T) {
	_, err := FromFile("testdata/no-such-file.yaml")
	require.Error(t, err)
}

func TestDefaults(t *testing.T) {
	cfg, err := FromFile("")
	require.NoError(t, err)

	_, err = cfg.CA()
	require.Error(t, err, "CA config without a URL must be rejected")

	ledgerConfig, err := cfg.Ledger()
	require.NoError(t, err)
	require.Equal(t, defaultConnectTimeout, ledgerConfig.ConnectTimeout)
	require.Equal(t, defaultSubmitTimeout, ledgerConfig.SubmitTimeout)
	require.Equal(t, defaultEvaluateTimeout, ledgerConfig.EvaluateTimeout)

	require.Equal(t, "wallet", cfg.WalletPath())
	require.Equal(t, "admin", cfg.AdminLabel())
}

func TestOperationTimeout(t *testing.T) {
	cfg, err := FromFile("testdata/config_test.yaml")
	require.NoError(t, err)

	require.Equal(t, 45*time.Second, cfg.OperationTimeout("enroll", time.Second))
	require.Equal(t, time.Second, cfg.OperationTimeout("unknown", time.Second))
}
