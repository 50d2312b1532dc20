package naming

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/zest-protocol/dashboard/clients"
	"github.com/zest-protocol/dashboard/logger"
	"github.com/zest-protocol/dashboard/metrics"
	"github.com/zest-protocol/dashboard/queue"
	"github.com/zest-protocol/dashboard/storage"
	"github.com/zest-protocol/dashboard/types"
	"github.com/zest-protocol/dashboard/utils"
)

// JobRegister is the queue kind of name registrations.
const JobRegister = "ens.register"

var labelPattern = regexp.MustCompile(`^[a-z0-9-]{1,63}$`)

// Directory reads records from ENS.
type Directory interface {
	NameResolver
	Text(ctx context.Context, name, key string) (string, error)
}

// Store is the persistence the naming service needs.
type Store interface {
	FindENSNameByOwner(ctx context.Context, owner string) (*storage.ENSName, error)
	CreateENSName(ctx context.Context, name *storage.ENSName) error
	AppendTransaction(ctx context.Context, tx *storage.Transaction) error
}

// Enqueuer hands work to the background queue.
type Enqueuer interface {
	Enqueue(kind string, payload any) (string, error)
}

// NameRecord is the answer to a forward lookup.
type NameRecord struct {
	Name    string  `json:"name"`
	Address *string `json:"address"`
}

// Registration is returned when a registration is queued.
type Registration struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Name    string `json:"name"`
	JobID   string `json:"jobId"`
}

type registerJob struct {
	Label string `json:"label"`
	Owner string `json:"owner"`
	Name  string `json:"name"`
}

// Service answers name lookups and registers names.
type Service struct {
	directory Directory
	resolver  *Resolver
	store     Store
	registrar Registrar
	jobs      Enqueuer
	log       logger.Logger
	metrics   metrics.Recorder
}

// Config carries the collaborators of Service. Registrar and Jobs may be
// nil, which disables registration.
type Config struct {
	Directory Directory
	Store     Store
	Registrar Registrar
	Jobs      Enqueuer
	Timeout   time.Duration
	Logger    logger.Logger
	Metrics   metrics.Recorder
}

func NewService(cfg Config) *Service {
	if cfg.Store == nil {
		panic("naming: store required")
	}
	log := logger.OrNoop(cfg.Logger)
	return &Service{
		directory: cfg.Directory,
		resolver:  NewResolver(cfg.Directory, cfg.Timeout, log),
		store:     cfg.Store,
		registrar: cfg.Registrar,
		jobs:      cfg.Jobs,
		log:       log,
		metrics:   metrics.OrNoop(cfg.Metrics),
	}
}

// Resolve implements the identifier resolution used across the dashboard.
func (s *Service) Resolve(ctx context.Context, identifier string) (common.Address, error) {
	start := time.Now()
	addr, err := s.resolver.Resolve(ctx, identifier)
	metrics.Since(s.metrics, "resolve_identifier", start, metrics.StatusOf(err))
	return addr, err
}

// FullName maps user input to the ENS name. Bare labels get FullSuffix.
func FullName(name string) string {
	if full, ok := QualifyName(name); ok {
		return full
	}
	return strings.ToLower(strings.TrimSpace(name)) + FullSuffix
}

// ResolveName looks name up on ENS. An unset record yields a nil address.
func (s *Service) ResolveName(ctx context.Context, name string) (*NameRecord, error) {
	if strings.TrimSpace(name) == "" {
		return nil, types.NewError(types.ErrValidation, "name is required", nil)
	}
	full := FullName(name)
	rec := &NameRecord{Name: full}
	if s.directory == nil {
		return rec, nil
	}

	addr, err := s.directory.Resolve(ctx, full)
	switch {
	case errors.Is(err, clients.ErrNameNotFound):
		return rec, nil
	case err != nil:
		return nil, types.NewError(types.ErrChain, "failed to resolve name", err)
	}
	hex := addr.Hex()
	rec.Address = &hex
	return rec, nil
}

// LookupAddress returns the name registered to address, or "" if none.
func (s *Service) LookupAddress(ctx context.Context, address string) (string, error) {
	addr, err := utils.ValidateAddress(address)
	if err != nil {
		return "", types.NewError(types.ErrValidation, "invalid address", err)
	}
	rec, err := s.store.FindENSNameByOwner(ctx, addr.Hex())
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return rec.Name, nil
}

// TextRecord reads text record key of name. Unset records yield "".
func (s *Service) TextRecord(ctx context.Context, name, key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", types.NewError(types.ErrValidation, "key is required", nil)
	}
	if s.directory == nil {
		return "", nil
	}
	value, err := s.directory.Text(ctx, FullName(name), key)
	if err != nil {
		return "", types.NewError(types.ErrChain, "failed to read text record", err)
	}
	return value, nil
}

// Avatar returns the avatar record of a name, or of the name an address
// registered through the dashboard.
func (s *Service) Avatar(ctx context.Context, nameOrAddress string) (string, error) {
	name := nameOrAddress
	if utils.IsAddress(nameOrAddress) {
		found, err := s.LookupAddress(ctx, nameOrAddress)
		if err != nil {
			return "", err
		}
		if found == "" {
			return "", nil
		}
		name = found
	}
	return s.TextRecord(ctx, name, "avatar")
}

// Register checks availability and queues the registration of label for owner.
func (s *Service) Register(ctx context.Context, label, owner string) (*Registration, error) {
	label = strings.ToLower(strings.TrimSpace(label))
	if !labelPattern.MatchString(label) {
		return nil, types.NewError(types.ErrValidation, "label must be 1-63 characters of a-z, 0-9 or -", nil)
	}
	ownerAddr, err := utils.ValidateAddress(owner)
	if err != nil {
		return nil, types.NewError(types.ErrValidation, "invalid owner address", err)
	}
	if s.registrar == nil || s.jobs == nil {
		return nil, types.NewError(types.ErrUnavailable, "name registration is not configured", nil)
	}

	available, err := s.registrar.Available(ctx, label)
	if err != nil {
		return nil, types.NewError(types.ErrChain, "failed to check name availability", err)
	}
	if !available {
		return nil, types.NewError(types.ErrInvalidState, "name is not available", nil)
	}

	name := label + ShortSuffix
	jobID, err := s.jobs.Enqueue(JobRegister, registerJob{
		Label: label,
		Owner: ownerAddr.Hex(),
		Name:  name,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("name registration queued", map[string]any{"name": name, "owner": ownerAddr.Hex(), "job_id": jobID})
	return &Registration{
		Status:  "queued",
		Message: "Name registration has been queued",
		Name:    name,
		JobID:   jobID,
	}, nil
}

// HandleRegister is the queue handler for JobRegister.
func (s *Service) HandleRegister(ctx context.Context, job queue.Job) error {
	var p registerJob
	if err := job.Decode(&p); err != nil {
		return err
	}
	if s.registrar == nil {
		return queue.Permanent(clients.ErrNoSigner)
	}

	// A previous attempt may have minted the name before failing later.
	if job.Attempt > 1 {
		available, err := s.registrar.Available(ctx, p.Label)
		if err != nil {
			return err
		}
		if !available {
			holder, err := s.registrar.Owner(ctx, p.Label)
			if err != nil {
				return err
			}
			if holder != common.HexToAddress(p.Owner) {
				return queue.Permanent(fmt.Errorf("name %s was taken before registration completed", p.Name))
			}
			s.log.Warn("name already minted to owner, recording it", map[string]any{"name": p.Name, "owner": p.Owner})
			return s.recordRegistration(ctx, p, "")
		}
	}

	hash, err := s.registrar.Register(ctx, p.Label, common.HexToAddress(p.Owner))
	if err != nil {
		if errors.Is(err, clients.ErrTxReverted) || errors.Is(err, clients.ErrNoSigner) {
			return queue.Permanent(err)
		}
		return err
	}
	return s.recordRegistration(ctx, p, hash.Hex())
}

// recordRegistration stores the minted name and its ledger entry. txHash
// is empty when the minting transaction is not known.
func (s *Service) recordRegistration(ctx context.Context, p registerJob, txHash string) error {
	if err := s.store.CreateENSName(ctx, &storage.ENSName{
		Name:   p.Name,
		Owner:  p.Owner,
		TxHash: txHash,
	}); err != nil {
		return queue.Permanent(fmt.Errorf("store registered name %s: %w", p.Name, err))
	}

	if err := s.store.AppendTransaction(ctx, &storage.Transaction{
		Type:   string(types.TxENSRegister),
		From:   p.Owner,
		To:     p.Name,
		Amount: "0",
		TxHash: txHash,
		Status: string(types.TxStatusCompleted),
	}); err != nil {
		s.log.Error("failed to record registration in ledger", map[string]any{"name": p.Name, "error": err})
	}

	s.log.Info("name registered", map[string]any{"name": p.Name, "owner": p.Owner, "tx_hash": txHash})
	return nil
}
