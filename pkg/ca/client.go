/*
Copyright the LC Project Authors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package ca implements the client side of the certificate authority's REST
// protocol: direct enrollment with a shared secret and registrar-signed
// registration of new identities. No credential ever leaves this process; the
// private key is generated locally and only the CSR travels to the CA.
package ca

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cloudflare/cfssl/csr"
	logging "github.com/op/go-logging"

	"github.com/ideasnpork/LC-project/pkg/config"
	"github.com/ideasnpork/LC-project/pkg/errors"
)

var logger = logging.MustGetLogger("lcgateway/ca")

const apiPrefix = "/api/v1/"

// Client talks to one fabric-ca style server.
type Client struct {
	url        string
	caName     string
	httpClient *http.Client
}

// New creates a CA client for the configured endpoint. When the endpoint is
// TLS-enabled, the server certificate is verified against the configured CA
// cert.
func New(cfg *config.CAConfig) (*Client, error) {
	if cfg == nil || cfg.URL == "" {
		return nil, errors.New("CA URL is required")
	}

	transport := &http.Transport{}
	if strings.HasPrefix(cfg.URL, "https") && cfg.TLSCertPath != "" {
		certPool := x509.NewCertPool()
		pemBytes, err := os.ReadFile(cfg.TLSCertPath)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read CA TLS certificate %s", cfg.TLSCertPath)
		}
		if !certPool.AppendCertsFromPEM(pemBytes) {
			return nil, errors.Errorf("no certificates found in %s", cfg.TLSCertPath)
		}
		transport.TLSClientConfig = &tls.Config{RootCAs: certPool, MinVersion: tls.VersionTLS12}
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		url:    strings.TrimRight(cfg.URL, "/"),
		caName: cfg.CAName,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
	}, nil
}

// Enroll exchanges an enrollment secret for a signed certificate. A new EC
// key pair is generated locally and the CSR is sent to the CA with basic
// auth.
func (c *Client) Enroll(ctx context.Context, name, secret string) (*Enrollment, error) {
	if name == "" {
		return nil, errors.New("enrollmentID is required")
	}
	if secret == "" {
		return nil, errors.New("enrollmentSecret is required")
	}

	csrPEM, keyPEM, err := genCSR(name)
	if err != nil {
		return nil, errors.WithMessage(err, "failure generating CSR")
	}

	reqNet := &enrollmentRequestNet{
		Request: string(csrPEM),
		CAName:  c.caName,
	}
	body, err := json.Marshal(reqNet)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal enrollment request")
	}

	post, err := c.newPost(ctx, "enroll", body)
	if err != nil {
		return nil, err
	}
	post.SetBasicAuth(name, secret)

	var result enrollmentResponseNet
	if err := c.sendReq(post, &result); err != nil {
		return nil, err
	}

	certPEM, err := base64.StdEncoding.DecodeString(result.Cert)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode enrollment certificate")
	}
	logger.Debugf("Enrolled %s", name)

	return &Enrollment{CertPEM: certPEM, KeyPEM: keyPEM}, nil
}

// Register asks the CA to create a registration for a new identity, signing
// the request with the registrar's credentials. It returns the one-time
// enrollment secret for the new identity.
func (c *Client) Register(ctx context.Context, registrar Credentials, req *RegistrationRequest) (string, error) {
	if req == nil {
		return "", errors.New("registration request is required")
	}
	if req.Name == "" {
		return "", errors.New("registration name is required")
	}
	if req.Affiliation == "" {
		return "", errors.New("registration affiliation is required")
	}
	if len(registrar.CertPEM) == 0 || len(registrar.KeyPEM) == 0 {
		return "", errors.New("registrar credentials are required")
	}

	if req.Type == "" {
		req.Type = "client"
	}
	if req.CAName == "" {
		req.CAName = c.caName
	}
	body, err := json.Marshal(req)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal registration request")
	}

	post, err := c.newPost(ctx, "register", body)
	if err != nil {
		return "", err
	}
	token, err := createToken(registrar.CertPEM, registrar.KeyPEM, body)
	if err != nil {
		return "", errors.WithMessage(err, "failed to build authorization token")
	}
	post.Header.Set("Authorization", token)

	var result registrationResponseNet
	if err := c.sendReq(post, &result); err != nil {
		return "", err
	}
	logger.Debugf("Registered %s under affiliation %s", req.Name, req.Affiliation)

	return result.Secret, nil
}

// genCSR generates a key pair and a certificate signing request for it.
func genCSR(name string) (csrPEM, keyPEM []byte, err error) {
	cr := &csr.CertificateRequest{
		CN:         name,
		KeyRequest: csr.NewKeyRequest(),
	}
	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		cr.Hosts = []string{hostname}
	}
	return csr.ParseRequest(cr)
}

func (c *Client) newPost(ctx context.Context, endpoint string, body []byte) (*http.Request, error) {
	url := c.url + apiPrefix + endpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create request for %s", url)
	}
	return req, nil
}

// sendReq posts the request and decodes the CA response envelope into result.
// Transport faults surface as CAUnreachable, rejected credentials as
// AuthenticationFailed, duplicate registrations as AlreadyRegistered.
func (c *Client) sendReq(req *http.Request, result interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.WithCode(errors.Wrap(err, "CA request failed"), errors.CAUnreachable)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.WithCode(errors.Wrap(err, "failed to read CA response"), errors.CAUnreachable)
	}

	var envelope response
	if jsonErr := json.Unmarshal(respBody, &envelope); jsonErr != nil {
		if resp.StatusCode >= 400 {
			return c.statusError(resp.StatusCode, string(respBody))
		}
		return errors.Wrap(jsonErr, "malformed CA response")
	}

	if resp.StatusCode >= 400 || !envelope.Success {
		msg := envelopeMessage(&envelope)
		if strings.Contains(strings.ToLower(msg), "already registered") {
			return errors.Codef(errors.AlreadyRegistered, "CA rejected registration: %s", msg)
		}
		if msg == "" {
			return c.statusError(resp.StatusCode, string(respBody))
		}
		return c.statusError(resp.StatusCode, msg)
	}

	if result != nil && len(envelope.Result) > 0 {
		if err := json.Unmarshal(envelope.Result, result); err != nil {
			return errors.Wrap(err, "malformed CA result")
		}
	}
	return nil
}

func (c *Client) statusError(status int, msg string) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return errors.Codef(errors.AuthenticationFailed, "CA rejected credentials: %s", msg)
	case status >= 400 && status < 500:
		return errors.Codef(errors.AuthenticationFailed, "CA rejected request: %s", msg)
	default:
		return errors.Codef(errors.CAUnreachable, "CA error response: %s", msg)
	}
}

func envelopeMessage(envelope *response) string {
	if len(envelope.Errors) == 0 {
		return ""
	}
	parts := make([]string, 0, len(envelope.Errors))
	for _, e := range envelope.Errors {
		parts = append(parts, e.Message)
	}
	return strings.Join(parts, "; ")
}
