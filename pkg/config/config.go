/*
Copyright the LC Project Authors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package config reads the gateway configuration file and exposes typed views
// of it to the other packages. Values can be overridden through LCGW_-prefixed
// environment variables.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	logging "github.com/op/go-logging"
	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/ideasnpork/LC-project/pkg/errors"
)

var log = logging.MustGetLogger("lcgateway/config")

var format = logging.MustStringFormatter(
	`%{color}%{time:15:04:05.000} [%{module}] %{level:.4s} : %{color:reset} %{message}`,
)

const cmdRoot = "lcgw"

const (
	defaultCATimeout       = 30 * time.Second
	defaultConnectTimeout  = 30 * time.Second
	defaultSubmitTimeout   = 60 * time.Second
	defaultEvaluateTimeout = 10 * time.Second
)

// EnrollCredentials holds the pre-shared enrollment credentials of the CA
// registrar (the administrator identity).
type EnrollCredentials struct {
	EnrollID     string `mapstructure:"enrollId"`
	EnrollSecret string `mapstructure:"enrollSecret"`
}

// CAConfig describes the certificate authority endpoint.
type CAConfig struct {
	URL         string            `mapstructure:"url"`
	CAName      string            `mapstructure:"caName"`
	TLSCertPath string            `mapstructure:"tlsCACertPath"`
	Registrar   EnrollCredentials `mapstructure:"registrar"`
	Timeout     time.Duration     `mapstructure:"timeout"`
}

// LedgerConfig describes how to reach the ledger network.
type LedgerConfig struct {
	ConnectionProfile string        `mapstructure:"connectionProfile"`
	Organization      string        `mapstructure:"organization"`
	MSPID             string        `mapstructure:"mspId"`
	AsLocalhost       bool          `mapstructure:"asLocalhost"`
	ConnectTimeout    time.Duration `mapstructure:"connectTimeout"`
	SubmitTimeout     time.Duration `mapstructure:"submitTimeout"`
	EvaluateTimeout   time.Duration `mapstructure:"evaluateTimeout"`
}

// Config represents the configuration for the gateway.
type Config struct {
	v *viper.Viper
}

// FromFile reads the config file and initializes the logging backend from its
// logging section.
func FromFile(configFile string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(cmdRoot)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", configFile)
		}
		log.Infof("Using config file: %s", v.ConfigFileUsed())
	}

	c := &Config{v: v}
	c.initLogging()
	return c, nil
}

func (c *Config) initLogging() {
	backend := logging.NewLogBackend(os.Stderr, "", 0)
	backendFormatter := logging.NewBackendFormatter(backend, format)

	logLevel := logging.INFO
	if levelString := c.v.GetString("logging.level"); levelString != "" {
		parsed, err := logging.LogLevel(levelString)
		if err != nil {
			log.Warningf("Unknown logging level %q, keeping INFO", levelString)
		} else {
			logLevel = parsed
		}
	}
	logging.SetBackend(backendFormatter).SetLevel(logLevel, "")
}

// CA returns the certificate authority configuration.
func (c *Config) CA() (*CAConfig, error) {
	caConfig := &CAConfig{}
	if err := c.unmarshalKey("certificateAuthority", caConfig); err != nil {
		return nil, errors.Wrap(err, "invalid certificateAuthority config")
	}
	if caConfig.URL == "" {
		return nil, errors.New("certificateAuthority.url is required")
	}
	if caConfig.Timeout == 0 {
		caConfig.Timeout = defaultCATimeout
	}
	return caConfig, nil
}

// Ledger returns the ledger network configuration.
func (c *Config) Ledger() (*LedgerConfig, error) {
	ledgerConfig := &LedgerConfig{}
	if err := c.unmarshalKey("ledger", ledgerConfig); err != nil {
		return nil, errors.Wrap(err, "invalid ledger config")
	}
	if ledgerConfig.ConnectTimeout == 0 {
		ledgerConfig.ConnectTimeout = defaultConnectTimeout
	}
	if ledgerConfig.SubmitTimeout == 0 {
		ledgerConfig.SubmitTimeout = defaultSubmitTimeout
	}
	if ledgerConfig.EvaluateTimeout == 0 {
		ledgerConfig.EvaluateTimeout = defaultEvaluateTimeout
	}
	return ledgerConfig, nil
}

func (c *Config) unmarshalKey(key string, rawVal interface{}) error {
	return c.v.UnmarshalKey(key, rawVal, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
	)))
}

// MSPID returns the membership service provider ID enrolled identities are
// tagged with.
func (c *Config) MSPID() string {
	return c.v.GetString("ledger.mspId")
}

// WalletPath returns the directory backing the file system wallet.
func (c *Config) WalletPath() string {
	if path := c.v.GetString("wallet.path"); path != "" {
		return path
	}
	return "wallet"
}

// AdminLabel returns the wallet label the administrator identity is stored
// under.
func (c *Config) AdminLabel() string {
	if label := c.v.GetString("certificateAuthority.registrar.label"); label != "" {
		return label
	}
	return "admin"
}

// DefaultChannel returns the channel used when a request does not name one.
func (c *Config) DefaultChannel() string {
	return c.v.GetString("ledger.defaultChannel")
}

// DefaultContract returns the contract used when a request does not name one.
func (c *Config) DefaultContract() string {
	return c.v.GetString("ledger.defaultContract")
}

// OperationTimeout returns a per-operation deadline from the timeouts
// section, falling back to the given default.
func (c *Config) OperationTimeout(name string, fallback time.Duration) time.Duration {
	raw := c.v.Get("timeouts." + name)
	if raw == nil {
		return fallback
	}
	d := cast.ToDuration(raw)
	if d == 0 {
		return fallback
	}
	return d
}
