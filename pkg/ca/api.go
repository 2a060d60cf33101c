/*
Copyright the LC Project Authors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ca

import "encoding/json"

// Attribute is a name/value pair attached to a registered identity.
type Attribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	ECert bool   `json:"ecert,omitempty"`
}

// RegistrationRequest asks the CA to create a registration for a new
// identity and to issue its one-time enrollment secret.
type RegistrationRequest struct {
	Name           string      `json:"id"`
	Type           string      `json:"type"`
	Secret         string      `json:"secret,omitempty"`
	MaxEnrollments int         `json:"max_enrollments,omitempty"`
	Affiliation    string      `json:"affiliation"`
	Attributes     []Attribute `json:"attrs,omitempty"`
	CAName         string      `json:"caname,omitempty"`
}

// Credentials is the PEM material an already-enrolled identity signs CA
// requests with.
type Credentials struct {
	CertPEM []byte
	KeyPEM  []byte
}

// Enrollment is the certificate and key pair issued for an identity.
type Enrollment struct {
	CertPEM []byte
	KeyPEM  []byte
}

// enrollmentRequestNet is the body of the POST /enroll request. The inner
// fields follow the cfssl sign request the fabric-ca server expects.
type enrollmentRequestNet struct {
	Request string   `json:"certificate_request"`
	Hosts   []string `json:"hosts,omitempty"`
	Profile string   `json:"profile,omitempty"`
	Label   string   `json:"label,omitempty"`
	CAName  string   `json:"caname,omitempty"`
}

// responseMessage is one entry of the errors/messages lists in a CA response
// envelope.
type responseMessage struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// response is the JSON envelope every CA endpoint replies with.
type response struct {
	Success  bool              `json:"success"`
	Result   json.RawMessage   `json:"result"`
	Errors   []responseMessage `json:"errors"`
	Messages []responseMessage `json:"messages"`
}

// enrollmentResponseNet is the result payload of the /enroll endpoint.
type enrollmentResponseNet struct {
	// Cert is the base64 encoding of the PEM-encoded enrollment certificate.
	Cert string `json:"Cert"`
}

// registrationResponseNet is the result payload of the /register endpoint.
type registrationResponseNet struct {
	Secret string `json:"secret"`
}
