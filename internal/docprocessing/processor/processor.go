package processor

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/motorlog/motorlog-backend/internal/docprocessing/domain"
)

// Processor defines the four-stage pipeline for one document kind:
// extract a draft record from raw vision output, validate it, enrich it
// with derived or looked-up fields, and format it for display.
// Implementations must be safe for concurrent use.
type Processor interface {
	// Kind returns the document kind this processor handles.
	Kind() domain.DocumentKind

	// Metadata returns the static processor description, including the
	// vision prompt and model hints used when capturing from an image.
	Metadata() domain.Metadata

	// Extract parses raw vision output into a draft record. It fails hard
	// when no plausible value can be located; all downstream stages only
	// run on a successful draft.
	Extract(raw string) (domain.Record, error)

	// Validate checks a draft record. Errors block, warnings do not.
	// Validate never fails: implausible input yields an invalid result.
	Validate(rec domain.Record) *domain.ValidationResult

	// Enrich adds derived fields to a draft record. Enrichment degrades
	// gracefully: lookup failures are recorded on the returned record,
	// never returned as errors.
	Enrich(ctx context.Context, rec domain.Record) domain.Record

	// Format renders a record as a one-line human-readable summary.
	Format(rec domain.Record) string
}

// Registry maps document kinds to processors. Registration tracks a
// version string per kind; re-registering a kind replaces the previous
// processor (last wins).
type Registry struct {
	mu         sync.RWMutex
	processors map[domain.DocumentKind]Processor
	versions   map[domain.DocumentKind]string
}

// NewRegistry creates an empty processor registry.
func NewRegistry() *Registry {
	return &Registry{
		processors: make(map[domain.DocumentKind]Processor),
		versions:   make(map[domain.DocumentKind]string),
	}
}

// Register adds a processor under its kind and returns the version it
// replaced, or the empty string if the kind was not yet registered.
func (r *Registry) Register(p Processor, version string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	kind := p.Kind()
	previous := r.versions[kind]
	r.processors[kind] = p
	r.versions[kind] = version
	return previous
}

// Resolve returns the processor registered for the given kind.
func (r *Registry) Resolve(kind domain.DocumentKind) (Processor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.processors[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownKind, kind)
	}
	return p, nil
}

// Version returns the registered version for a kind, or "" if unregistered.
func (r *Registry) Version(kind domain.DocumentKind) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.versions[kind]
}

// Kinds returns all registered kinds in sorted order.
func (r *Registry) Kinds() []domain.DocumentKind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]domain.DocumentKind, 0, len(r.processors))
	for k := range r.processors {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// NewDefaultRegistry creates a registry with all five built-in processors.
// The decoder is shared by the VIN and insurance processors; it may be nil,
// in which case VIN enrichment is skipped.
func NewDefaultRegistry(decoder Decoder) *Registry {
	r := NewRegistry()
	r.Register(NewVINProcessor(decoder), "1.0.0")
	r.Register(NewPlateProcessor(), "1.0.0")
	r.Register(NewDriversLicenseProcessor(), "1.0.0")
	r.Register(NewInsuranceProcessor(decoder), "1.0.0")
	r.Register(NewOdometerProcessor(), "1.0.0")
	return r
}
