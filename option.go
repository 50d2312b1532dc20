package dashboard

import (
	"time"

	"github.com/zest-protocol/dashboard/clients"
	"github.com/zest-protocol/dashboard/logger"
	"github.com/zest-protocol/dashboard/metrics"
	"github.com/zest-protocol/dashboard/naming"
	"github.com/zest-protocol/dashboard/storage"
	"github.com/zest-protocol/dashboard/verification"
)

type Option func(*Dashboard)

func WithLogger(l logger.Logger) Option {
	return func(d *Dashboard) {
		d.logger = l
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(d *Dashboard) {
		d.metrics = r
	}
}

func WithTimeout(t time.Duration) Option {
	return func(d *Dashboard) {
		d.timeout = t
	}
}

// WithStore uses s instead of opening the configured database.
func WithStore(s *storage.Store) Option {
	return func(d *Dashboard) {
		d.store = s
	}
}

// WithChain uses c instead of dialling the configured Citrea RPC.
func WithChain(c clients.Client) Option {
	return func(d *Dashboard) {
		d.chain = c
	}
}

// WithDirectory uses dir for ENS lookups.
func WithDirectory(dir naming.Directory) Option {
	return func(d *Dashboard) {
		d.directory = dir
	}
}

// WithRegistrar uses r for name registration.
func WithRegistrar(r naming.Registrar) Option {
	return func(d *Dashboard) {
		d.registrar = r
	}
}

// WithVerifier uses v for identity verification.
func WithVerifier(v verification.Verifier) Option {
	return func(d *Dashboard) {
		d.verifier = v
	}
}
