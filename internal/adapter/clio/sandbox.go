package clio

import (
	"context"
	"log/slog"
	"slices"

	"clio-sync/internal/domain"
)

// SandboxEntryID is the placeholder ID the sandbox assigns to every created
// time entry.
const SandboxEntryID = "mock-id"

// Sandbox implements ports.PracticeClient without any network I/O. It exists
// so the rest of the pipeline can run against placeholder responses; input
// validation still applies, so sync behavior matches the real client.
type Sandbox struct {
	matters []domain.Matter
	log     *slog.Logger
}

// NewSandbox builds a sandbox client serving the given matter fixtures.
func NewSandbox(matters []domain.Matter, log *slog.Logger) *Sandbox {
	return &Sandbox{matters: matters, log: log}
}

// Authenticate always fails: the sandbox has no authentication flow.
func (s *Sandbox) Authenticate(ctx context.Context) error {
	return domain.ErrNotSupported
}

// ListMatters returns the fixture set regardless of auth state.
func (s *Sandbox) ListMatters(ctx context.Context) ([]domain.Matter, error) {
	return slices.Clone(s.matters), nil
}

// CreateTimeEntry echoes the entry back with the placeholder ID.
func (s *Sandbox) CreateTimeEntry(ctx context.Context, entry domain.TimeEntry) (domain.TimeEntry, error) {
	if err := entry.Validate(); err != nil {
		return domain.TimeEntry{}, err
	}
	entry.ID = SandboxEntryID
	s.log.Debug("sandbox created time entry", slog.String("matter_id", entry.MatterID))
	return entry, nil
}
