/*
Copyright the LC Project Authors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package enroll orchestrates identity enrollment: the direct admin
// enrollment with a pre-shared secret and the register-then-enroll flow for
// ordinary identities. The wallet is only written once a flow has fully
// succeeded, so it never holds a partial record.
package enroll

import (
	"context"
	"sync"
	"time"

	logging "github.com/op/go-logging"

	"github.com/ideasnpork/LC-project/pkg/ca"
	"github.com/ideasnpork/LC-project/pkg/config"
	"github.com/ideasnpork/LC-project/pkg/errors"
	"github.com/ideasnpork/LC-project/pkg/wallet"
)

var logger = logging.MustGetLogger("lcgateway/enroll")

// CAClient is the slice of the certificate authority protocol this service
// depends on.
type CAClient interface {
	Enroll(ctx context.Context, name, secret string) (*ca.Enrollment, error)
	Register(ctx context.Context, registrar ca.Credentials, req *ca.RegistrationRequest) (string, error)
}

// Service performs enrollments against one CA and one wallet.
type Service struct {
	caClient   CAClient
	wallet     *wallet.Wallet
	mspID      string
	adminLabel string
	registrar  config.EnrollCredentials

	mutex    sync.Mutex
	inflight map[string]struct{}
}

// New creates an enrollment service. The registrar credentials are the CA's
// pre-shared admin enrollment ID and secret; adminLabel is the wallet label
// the admin identity is stored under.
func New(caClient CAClient, w *wallet.Wallet, mspID, adminLabel string, registrar config.EnrollCredentials) *Service {
	return &Service{
		caClient:   caClient,
		wallet:     w,
		mspID:      mspID,
		adminLabel: adminLabel,
		registrar:  registrar,
		inflight:   make(map[string]struct{}),
	}
}

// EnrollAdmin enrolls the administrator identity directly with the
// registrar's pre-shared secret and stores it in the wallet. An existing
// admin record short-circuits with AlreadyEnrolled before any network call.
func (s *Service) EnrollAdmin(ctx context.Context) error {
	if err := s.begin(s.adminLabel); err != nil {
		return err
	}
	defer s.end(s.adminLabel)

	enrollment, err := s.caClient.Enroll(ctx, s.registrar.EnrollID, s.registrar.EnrollSecret)
	if err != nil {
		return errors.WithMessage(err, "admin enrollment failed")
	}

	if err := s.store(s.adminLabel, "", enrollment); err != nil {
		return err
	}
	logger.Infof("Enrolled administrator identity %q", s.adminLabel)
	return nil
}

// RegisterAndEnroll registers a new identity with the CA using the stored
// admin identity as registrar, enrolls it with the returned one-time secret
// and stores the result under label. The two protocol steps are one logical
// unit: a failure in either leaves the wallet untouched.
func (s *Service) RegisterAndEnroll(ctx context.Context, label, affiliation string) error {
	if err := s.begin(label); err != nil {
		return err
	}
	defer s.end(label)

	registrar, err := s.registrarCredentials()
	if err != nil {
		return err
	}

	secret, err := s.caClient.Register(ctx, registrar, &ca.RegistrationRequest{
		Name:        label,
		Affiliation: affiliation,
	})
	if err != nil {
		return errors.WithMessage(err, "registration failed")
	}

	enrollment, err := s.caClient.Enroll(ctx, label, secret)
	if err != nil {
		// The CA-side registration is consumed at this point; the caller
		// must not assume an identity exists.
		return errors.WithMessage(err, "enrollment failed after registration")
	}

	if err := s.store(label, affiliation, enrollment); err != nil {
		return err
	}
	logger.Infof("Enrolled identity %q with affiliation %q", label, affiliation)
	return nil
}

// begin reserves a label for the duration of one enrollment flow. It fails
// with AlreadyEnrolled when the wallet already has the label or another
// enrollment for it is in flight.
func (s *Service) begin(label string) error {
	if label == "" {
		return errors.New("identity label is required")
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.wallet.Exists(label) {
		return errors.Codef(errors.AlreadyEnrolled, "an identity for %q already exists", label)
	}
	if _, ok := s.inflight[label]; ok {
		return errors.Codef(errors.AlreadyEnrolled, "an enrollment for %q is already in progress", label)
	}
	s.inflight[label] = struct{}{}
	return nil
}

func (s *Service) end(label string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.inflight, label)
}

func (s *Service) store(label, affiliation string, enrollment *ca.Enrollment) error {
	id := wallet.NewX509Identity(s.mspID, string(enrollment.CertPEM), string(enrollment.KeyPEM))
	id.Affiliation = affiliation
	id.EnrolledAt = time.Now().UTC()
	if err := s.wallet.Put(label, id); err != nil {
		return errors.WithMessage(err, "failed to store enrolled identity")
	}
	return nil
}

// registrarCredentials loads the admin identity and maps its absence to
// CallerNotEnrolled.
func (s *Service) registrarCredentials() (ca.Credentials, error) {
	id, err := s.wallet.Get(s.adminLabel)
	if err != nil {
		if errors.CodeOf(err) == errors.NotFound {
			return ca.Credentials{}, errors.Codef(errors.CallerNotEnrolled,
				"registrar identity %q is not enrolled", s.adminLabel)
		}
		return ca.Credentials{}, err
	}
	x509, ok := id.(*wallet.X509Identity)
	if !ok {
		return ca.Credentials{}, errors.Errorf("registrar identity %q has an unsupported type", s.adminLabel)
	}
	return ca.Credentials{
		CertPEM: []byte(x509.Certificate()),
		KeyPEM:  []byte(x509.Key()),
	}, nil
}
