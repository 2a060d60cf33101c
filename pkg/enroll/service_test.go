/*
Copyright the LC Project Authors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package enroll

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ideasnpork/LC-project/pkg/ca"
	"github.com/ideasnpork/LC-project/pkg/config"
	"github.com/ideasnpork/LC-project/pkg/errors"
	"github.com/ideasnpork/LC-project/pkg/wallet"
)

// fakeCAClient counts protocol calls and injects faults per step.
type fakeCAClient struct {
	enrollCalls   int32
	registerCalls int32

	enrollErr   error
	registerErr error

	secret string
}

func (f *fakeCAClient) Enroll(ctx context.Context, name, secret string) (*ca.Enrollment, error) {
	atomic.AddInt32(&f.enrollCalls, 1)
	if f.enrollErr != nil {
		return nil, f.enrollErr
	}
	return &ca.Enrollment{
		CertPEM: []byte("cert-" + name),
		KeyPEM:  []byte("key-" + name),
	}, nil
}

func (f *fakeCAClient) Register(ctx context.Context, registrar ca.Credentials, req *ca.RegistrationRequest) (string, error) {
	atomic.AddInt32(&f.registerCalls, 1)
	if f.registerErr != nil {
		return "", f.registerErr
	}
	if len(registrar.CertPEM) == 0 {
		return "", errors.New("registrar credentials missing")
	}
	secret := f.secret
	if secret == "" {
		secret = "one-time-secret"
	}
	return secret, nil
}

func newTestService(caClient CAClient) (*Service, *wallet.Wallet) {
	w := wallet.NewInMemoryWallet()
	registrar := config.EnrollCredentials{EnrollID: "admin", EnrollSecret: "adminpw"}
	return New(caClient, w, "Org1MSP", "admin", registrar), w
}

func enrollAdmin(t *testing.T, s *Service) {
	if err := s.EnrollAdmin(context.Background()); err != nil {
		t.Fatalf("EnrollAdmin failed: %s", err)
	}
}

func TestEnrollAdmin(t *testing.T) {
	fake := &fakeCAClient{}
	s, w := newTestService(fake)

	enrollAdmin(t, s)

	id, err := w.Get("admin")
	if err != nil {
		t.Fatalf("Admin identity not stored: %s", err)
	}
	x509 := id.(*wallet.X509Identity)
	if x509.Certificate() != "cert-admin" {
		t.Fatalf("Wrong certificate stored: %s", x509.Certificate())
	}
	if x509.EnrolledAt.IsZero() {
		t.Fatal("EnrolledAt not recorded")
	}
}

func TestEnrollAdminAlreadyEnrolled(t *testing.T) {
	fake := &fakeCAClient{}
	s, _ := newTestService(fake)
	enrollAdmin(t, s)

	err := s.EnrollAdmin(context.Background())
	if errors.CodeOf(err) != errors.AlreadyEnrolled {
		t.Fatalf("Expected AlreadyEnrolled, got %v", err)
	}
	if atomic.LoadInt32(&fake.enrollCalls) != 1 {
		t.Fatalf("Second EnrollAdmin must not contact the CA, saw %d calls", fake.enrollCalls)
	}
}

func TestRegisterAndEnroll(t *testing.T) {
	fake := &fakeCAClient{}
	s, w := newTestService(fake)
	enrollAdmin(t, s)

	if err := s.RegisterAndEnroll(context.Background(), "alice", "org1.finance"); err != nil {
		t.Fatalf("RegisterAndEnroll failed: %s", err)
	}

	id, err := w.Get("alice")
	if err != nil {
		t.Fatalf("Identity not stored: %s", err)
	}
	x509 := id.(*wallet.X509Identity)
	if x509.Affiliation != "org1.finance" {
		t.Fatalf("Affiliation not stored: %s", x509.Affiliation)
	}
	if x509.MspID != "Org1MSP" {
		t.Fatalf("MSP ID not stored: %s", x509.MspID)
	}
}

func TestRegisterAndEnrollWithoutAdmin(t *testing.T) {
	fake := &fakeCAClient{}
	s, _ := newTestService(fake)

	err := s.RegisterAndEnroll(context.Background(), "alice", "org1.finance")
	if errors.CodeOf(err) != errors.CallerNotEnrolled {
		t.Fatalf("Expected CallerNotEnrolled, got %v", err)
	}
	if atomic.LoadInt32(&fake.registerCalls) != 0 {
		t.Fatal("CA must not be contacted when the registrar is missing")
	}
}

func TestRegisterAndEnrollAlreadyEnrolled(t *testing.T) {
	fake := &fakeCAClient{}
	s, w := newTestService(fake)
	enrollAdmin(t, s)

	if err := s.RegisterAndEnroll(context.Background(), "alice", "org1"); err != nil {
		t.Fatalf("First enrollment failed: %s", err)
	}
	before, _ := w.Get("alice")
	callsBefore := atomic.LoadInt32(&fake.registerCalls)

	err := s.RegisterAndEnroll(context.Background(), "alice", "org1")
	if errors.CodeOf(err) != errors.AlreadyEnrolled {
		t.Fatalf("Expected AlreadyEnrolled, got %v", err)
	}
	if atomic.LoadInt32(&fake.registerCalls) != callsBefore {
		t.Fatal("Precondition violation must not reach the CA")
	}

	after, _ := w.Get("alice")
	if before.(*wallet.X509Identity).Certificate() != after.(*wallet.X509Identity).Certificate() {
		t.Fatal("Existing record was overwritten")
	}
}

func TestRegisterFailureLeavesNoRecord(t *testing.T) {
	fake := &fakeCAClient{registerErr: errors.Codef(errors.CAUnreachable, "ca offline")}
	s, w := newTestService(fake)
	enrollAdmin(t, s)

	err := s.RegisterAndEnroll(context.Background(), "alice", "org1")
	if errors.CodeOf(err) != errors.CAUnreachable {
		t.Fatalf("Expected CAUnreachable, got %v", err)
	}
	if w.Exists("alice") {
		t.Fatal("Failed registration must not leave a wallet record")
	}
}

func TestEnrollFailureAfterRegistrationLeavesNoRecord(t *testing.T) {
	fake := &fakeCAClient{enrollErr: errors.Codef(errors.AuthenticationFailed, "secret rejected")}
	s, w := newTestService(fake)

	// seed the admin identity directly so only the user enrollment step fails
	admin := wallet.NewX509Identity("Org1MSP", "cert-admin", "key-admin")
	if err := w.Put("admin", admin); err != nil {
		t.Fatalf("Seeding admin failed: %s", err)
	}

	err := s.RegisterAndEnroll(context.Background(), "alice", "org1")
	if err == nil {
		t.Fatal("Expected the enroll step failure to propagate")
	}
	if atomic.LoadInt32(&fake.registerCalls) != 1 {
		t.Fatal("Register step should have run")
	}
	if w.Exists("alice") {
		t.Fatal("Wallet must not hold a record when enrollment failed after registration")
	}
}

func TestConcurrentEnrollDistinctLabels(t *testing.T) {
	fake := &fakeCAClient{}
	s, w := newTestService(fake)
	enrollAdmin(t, s)

	const n = 12
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			label := fmt.Sprintf("user%02d", i)
			if err := s.RegisterAndEnroll(context.Background(), label, "org1"); err != nil {
				t.Errorf("Enroll %s failed: %s", label, err)
			}
		}(i)
	}
	wg.Wait()

	labels, err := w.List()
	if err != nil {
		t.Fatalf("List failed: %s", err)
	}
	// n users plus the admin
	if len(labels) != n+1 {
		t.Fatalf("Expected %d identities, got %d", n+1, len(labels))
	}
}

func TestConcurrentEnrollSameLabel(t *testing.T) {
	fake := &fakeCAClient{}
	s, w := newTestService(fake)
	enrollAdmin(t, s)

	const n = 8
	var successes int32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.RegisterAndEnroll(context.Background(), "carol", "org1")
			if err == nil {
				atomic.AddInt32(&successes, 1)
			} else if errors.CodeOf(err) != errors.AlreadyEnrolled {
				t.Errorf("Unexpected failure code: %v", err)
			}
		}()
	}
	wg.Wait()

	if successes > 1 {
		t.Fatalf("Expected at most one success, got %d", successes)
	}
	if successes == 1 && !w.Exists("carol") {
		t.Fatal("Successful enrollment left no record")
	}
}
