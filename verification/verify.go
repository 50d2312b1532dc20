package verification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrRejected is returned when the verifier refuses a request outright.
// Retrying the same proof will not change the answer.
var ErrRejected = errors.New("verification request rejected")

// Verifier checks an identity proof and its public signals. Both are opaque
// JSON blobs produced by the prover.
type Verifier interface {
	Verify(ctx context.Context, proof, signals []byte) (*VerificationResult, error)
}

// CredentialSubject holds the attributes disclosed by a proof
type CredentialSubject struct {
	Name           string `json:"name,omitempty"`
	Nationality    string `json:"nationality,omitempty"`
	DateOfBirth    string `json:"dateOfBirth,omitempty"`
	OlderThan      string `json:"olderThan,omitempty"`
	PassportNoOFAC bool   `json:"passportNoOfac"`
	NameAndDOBOFAC bool   `json:"nameAndDobOfac"`
	NameAndYOBOFAC bool   `json:"nameAndYobOfac"`
}

// VerificationResult is the outcome of verifying one proof
type VerificationResult struct {
	IsValid           bool              `json:"isValid"`
	UserID            string            `json:"userId"`
	CredentialSubject CredentialSubject `json:"credentialSubject"`
}

// HTTPConfig configures HTTPVerifier.
type HTTPConfig struct {
	URL     string
	Scope   string
	Timeout time.Duration
}

// HTTPVerifier posts proofs to a remote verifier service.
type HTTPVerifier struct {
	url        string
	scope      string
	httpClient *http.Client
}

// NewHTTPVerifier creates a verifier for the service at cfg.URL
func NewHTTPVerifier(cfg HTTPConfig) (*HTTPVerifier, error) {
	url := strings.TrimSpace(cfg.URL)
	if url == "" {
		return nil, fmt.Errorf("verification: url required")
	}
	if strings.TrimSpace(cfg.Scope) == "" {
		return nil, fmt.Errorf("verification: app scope required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPVerifier{
		url:        url,
		scope:      cfg.Scope,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type verifyRequest struct {
	Proof         json.RawMessage `json:"proof"`
	PublicSignals json.RawMessage `json:"publicSignals"`
	Scope         string          `json:"scope"`
}

// verifyResponse is the wire form of the remote verifier.
type verifyResponse struct {
	IsValid           bool   `json:"isValid"`
	UserID            string `json:"userId"`
	CredentialSubject struct {
		Name           string `json:"name"`
		Nationality    string `json:"nationality"`
		DateOfBirth    string `json:"date_of_birth"`
		OlderThan      string `json:"older_than"`
		PassportNoOFAC bool   `json:"passport_no_ofac"`
		NameAndDOBOFAC bool   `json:"name_and_dob_ofac"`
		NameAndYOBOFAC bool   `json:"name_and_yob_ofac"`
	} `json:"credentialSubject"`
}

func (v *HTTPVerifier) Verify(ctx context.Context, proof, signals []byte) (*VerificationResult, error) {
	body, err := json.Marshal(verifyRequest{
		Proof:         proof,
		PublicSignals: signals,
		Scope:         v.scope,
	})
	if err != nil {
		return nil, fmt.Errorf("verification: encode: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("verification: request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("verification: call: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("verification: unexpected status %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("verification: decode: %w", err)
	}
	return &VerificationResult{
		IsValid: out.IsValid,
		UserID:  out.UserID,
		CredentialSubject: CredentialSubject{
			Name:           out.CredentialSubject.Name,
			Nationality:    out.CredentialSubject.Nationality,
			DateOfBirth:    out.CredentialSubject.DateOfBirth,
			OlderThan:      out.CredentialSubject.OlderThan,
			PassportNoOFAC: out.CredentialSubject.PassportNoOFAC,
			NameAndDOBOFAC: out.CredentialSubject.NameAndDOBOFAC,
			NameAndYOBOFAC: out.CredentialSubject.NameAndYOBOFAC,
		},
	}, nil
}
