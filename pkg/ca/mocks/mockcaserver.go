/*
Copyright the LC Project Authors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package mocks provides an in-process CA server for tests. It speaks just
// enough of the fabric-ca REST protocol for the enrollment flows: the JSON
// response envelope, basic auth on /enroll and the token header on /register.
package mocks

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
)

// ECertPEM is the fixed certificate the mock CA issues on every enrollment.
const ECertPEM = `-----BEGIN CERTIFICATE-----
MIICEjCCAbigAwIBAgIQPjb63mDL4e062MPjtcA1CDAKBggqhkjOPQQDAjBgMQsw
CQYDVQQGEwJVUzETMBEGA1UECBMKQ2FsaWZvcm5pYTEWMBQGA1UEBxMNU2FuIEZy
YW5jaXNjbzERMA8GA1UEChMIcGVlck9yZzExETAPBgNVBAMTCHBlZXJPcmcxMB4X
DTE3MDMwMTE3MzY0MVoXDTI3MDIyNzE3MzY0MVowUjELMAkGA1UEBhMCVVMxEzAR
BgNVBAgTCkNhbGlmb3JuaWExFjAUBgNVBAcTDVNhbiBGcmFuY2lzY28xFjAUBgNV
BAMTDXBlZXJPcmcxUGVlcjEwWTATBgcqhkjOPQIBBggqhkjOPQMBBwNCAAS0hO8C
8ph+PiFkYikdVAK/zCd2ckxb6m5bTOq54VtWR7wbdPuu9djICTaROTUmfeoAHF60
ol/Z/penR/G6chqKo2IwYDAOBgNVHQ8BAf8EBAMCBaAwEwYDVR0lBAwwCgYIKwYB
BQUHAwEwDAYDVR0TAQH/BAIwADArBgNVHSMEJDAigCDYpbPKwbgh9uS0h86vH9I5
zc/DEIlBUJCLkPBekXlVajAKBggqhkjOPQQDAgNIADBFAiEAmGS3LTaqCkWV+myl
lhg9ovtLJABuxQLnajMJYQOXURgCIHLVNrDbEF0KpEmFwXIBYMFdsKGRAF0kC43M
bpq87UJq
-----END CERTIFICATE-----
`

type responseMessage struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type envelope struct {
	Success  bool              `json:"success"`
	Result   interface{}       `json:"result"`
	Errors   []responseMessage `json:"errors"`
	Messages []responseMessage `json:"messages"`
}

type registerRecord struct {
	Name        string `json:"id"`
	Type        string `json:"type"`
	Affiliation string `json:"affiliation"`
	CAName      string `json:"caname"`
}

// CAServer is a mock certificate authority.
type CAServer struct {
	httpServer *httptest.Server

	// Secrets maps enrollment IDs to the secrets the mock accepts. An empty
	// map accepts any credentials.
	Secrets map[string]string

	// RegisterSecret is returned from /register.
	RegisterSecret string

	// FailEnroll and FailRegister force 500 responses.
	FailEnroll   bool
	FailRegister bool

	mutex       sync.Mutex
	registered  map[string]registerRecord
	enrollCount int
}

// NewCAServer starts a mock CA listening on a local port. Callers must Close
// it.
func NewCAServer() *CAServer {
	s := &CAServer{
		RegisterSecret: "mockSecretValue",
		registered:     make(map[string]registerRecord),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/enroll", s.enroll)
	mux.HandleFunc("/api/v1/register", s.register)
	s.httpServer = httptest.NewServer(mux)
	return s
}

// URL returns the base URL of the mock CA.
func (s *CAServer) URL() string {
	return s.httpServer.URL
}

// Close shuts the mock down.
func (s *CAServer) Close() {
	s.httpServer.Close()
}

// EnrollCount reports how many successful enrollments the mock served.
func (s *CAServer) EnrollCount() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.enrollCount
}

// Registered reports whether an ID has been registered with the mock.
func (s *CAServer) Registered(name string) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	_, ok := s.registered[name]
	return ok
}

// RegisteredAffiliation returns the affiliation recorded for an ID.
func (s *CAServer) RegisteredAffiliation(name string) string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.registered[name].Affiliation
}

func (s *CAServer) enroll(w http.ResponseWriter, req *http.Request) {
	if s.FailEnroll {
		sendEnvelope(w, http.StatusInternalServerError, &envelope{
			Errors: []responseMessage{{Message: "enrollment processing failure"}},
		})
		return
	}

	name, secret, ok := req.BasicAuth()
	if !ok || !s.credentialsValid(name, secret) {
		sendEnvelope(w, http.StatusUnauthorized, &envelope{
			Errors: []responseMessage{{Message: "Failed to get user: user not found"}},
		})
		return
	}

	s.mutex.Lock()
	s.enrollCount++
	s.mutex.Unlock()

	sendEnvelope(w, http.StatusCreated, &envelope{
		Success: true,
		Result: map[string]string{
			"Cert": base64.StdEncoding.EncodeToString([]byte(ECertPEM)),
		},
	})
}

func (s *CAServer) register(w http.ResponseWriter, req *http.Request) {
	if s.FailRegister {
		sendEnvelope(w, http.StatusInternalServerError, &envelope{
			Errors: []responseMessage{{Message: "registration processing failure"}},
		})
		return
	}

	if req.Header.Get("Authorization") == "" {
		sendEnvelope(w, http.StatusUnauthorized, &envelope{
			Errors: []responseMessage{{Message: "No authorization header"}},
		})
		return
	}

	var record registerRecord
	if err := json.NewDecoder(req.Body).Decode(&record); err != nil || record.Name == "" {
		sendEnvelope(w, http.StatusBadRequest, &envelope{
			Errors: []responseMessage{{Message: "Invalid registration request"}},
		})
		return
	}

	s.mutex.Lock()
	_, duplicate := s.registered[record.Name]
	if !duplicate {
		s.registered[record.Name] = record
	}
	s.mutex.Unlock()

	if duplicate {
		sendEnvelope(w, http.StatusInternalServerError, &envelope{
			Errors: []responseMessage{{Message: "Identity '" + record.Name + "' is already registered"}},
		})
		return
	}

	sendEnvelope(w, http.StatusCreated, &envelope{
		Success: true,
		Result:  map[string]string{"secret": s.RegisterSecret},
	})
}

func (s *CAServer) credentialsValid(name, secret string) bool {
	if len(s.Secrets) == 0 {
		return true
	}
	expected, ok := s.Secrets[name]
	return ok && expected == secret
}

func sendEnvelope(w http.ResponseWriter, status int, body *envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
