package verification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/zest-protocol/dashboard/logger"
	"github.com/zest-protocol/dashboard/metrics"
	"github.com/zest-protocol/dashboard/queue"
	"github.com/zest-protocol/dashboard/storage"
	"github.com/zest-protocol/dashboard/types"
)

// JobVerify is the queue kind of identity verifications.
const JobVerify = "kyc.verify"

var userIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Store persists verification outcomes.
type Store interface {
	UpsertKYCVerification(ctx context.Context, v *storage.KYCVerification) error
	GetKYCVerification(ctx context.Context, userID string) (*storage.KYCVerification, error)
}

// Enqueuer hands work to the background queue.
type Enqueuer interface {
	Enqueue(kind string, payload any) (string, error)
}

// SubmitRequest carries a proof to verify
type SubmitRequest struct {
	Proof         json.RawMessage `json:"proof"`
	PublicSignals json.RawMessage `json:"publicSignals"`
}

// Submission acknowledges a queued verification
type Submission struct {
	Status string `json:"status"`
	JobID  string `json:"jobId"`
}

// Status is the verification state of a user
type Status struct {
	UserID     string          `json:"userId"`
	Status     types.KYCStatus `json:"status"`
	VerifiedAt *time.Time      `json:"verifiedAt,omitempty"`
}

// Service queues proofs for verification and reports user status.
type Service struct {
	verifier Verifier
	store    Store
	jobs     Enqueuer
	log      logger.Logger
	metrics  metrics.Recorder
}

// NewService creates a new verification service
func NewService(verifier Verifier, store Store, jobs Enqueuer, log logger.Logger, rec metrics.Recorder) *Service {
	return &Service{
		verifier: verifier,
		store:    store,
		jobs:     jobs,
		log:      logger.OrNoop(log),
		metrics:  metrics.OrNoop(rec),
	}
}

// Submit validates the blobs are present and queues their verification.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*Submission, error) {
	if isEmpty(req.Proof) {
		return nil, types.NewError(types.ErrValidation, "proof is required", nil)
	}
	if isEmpty(req.PublicSignals) {
		return nil, types.NewError(types.ErrValidation, "publicSignals is required", nil)
	}
	if s.verifier == nil || s.jobs == nil {
		return nil, types.NewError(types.ErrUnavailable, "identity verification is not configured", nil)
	}

	id, err := s.jobs.Enqueue(JobVerify, req)
	if err != nil {
		return nil, err
	}
	s.log.Info("verification queued", map[string]any{"job_id": id})
	return &Submission{Status: "queued", JobID: id}, nil
}

// HandleVerify is the queue handler for JobVerify. Invalid proofs are
// logged and dropped without retry.
func (s *Service) HandleVerify(ctx context.Context, job queue.Job) error {
	var req SubmitRequest
	if err := job.Decode(&req); err != nil {
		return err
	}

	start := time.Now()
	result, err := s.verifier.Verify(ctx, req.Proof, req.PublicSignals)
	metrics.Since(s.metrics, "kyc_verify", start, metrics.StatusOf(err))
	if err != nil {
		if errors.Is(err, ErrRejected) {
			return queue.Permanent(err)
		}
		return err
	}

	if !result.IsValid {
		s.metrics.IncCounter("kyc", map[string]string{"status": "invalid"})
		s.log.Warn("proof failed verification", map[string]any{"job_id": job.ID, "user_id": result.UserID})
		return nil
	}
	if !userIDPattern.MatchString(result.UserID) {
		return queue.Permanent(fmt.Errorf("verifier returned malformed user id %q", result.UserID))
	}

	if err := s.store.UpsertKYCVerification(ctx, &storage.KYCVerification{
		UserID:      result.UserID,
		Name:        result.CredentialSubject.Name,
		Nationality: result.CredentialSubject.Nationality,
		DateOfBirth: result.CredentialSubject.DateOfBirth,
		Status:      string(types.KYCVerified),
	}); err != nil {
		return err
	}

	s.metrics.IncCounter("kyc", map[string]string{"status": "verified"})
	s.log.Info("user verified", map[string]any{"user_id": result.UserID})
	return nil
}

// Status reports whether userID has been verified.
func (s *Service) Status(ctx context.Context, userID string) (*Status, error) {
	if !userIDPattern.MatchString(userID) {
		return nil, types.NewError(types.ErrValidation, "userId may only contain letters, digits, _ and -", nil)
	}

	row, err := s.store.GetKYCVerification(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return &Status{UserID: userID, Status: types.KYCNotVerified}, nil
	}
	if err != nil {
		return nil, err
	}

	verifiedAt := row.UpdatedAt
	return &Status{
		UserID:     userID,
		Status:     types.KYCStatus(row.Status),
		VerifiedAt: &verifiedAt,
	}, nil
}

func isEmpty(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
