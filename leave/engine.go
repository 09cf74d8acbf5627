package leave

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// =============================================================================
// OPTIONS
// =============================================================================

// Options tunes workflow rules. Zero lengths and a nil clock are replaced by
// DefaultOptions; start from DefaultOptions to keep non-working days excluded.
type Options struct {
	// MinReasonLength is the minimum trimmed length of a request reason.
	MinReasonLength int
	// MaxReasonLength caps the reason length.
	MaxReasonLength int
	// ExcludeNonWorkingDays skips weekends and national/regional holidays
	// when computing request durations.
	ExcludeNonWorkingDays bool
	// Now is the clock. Defaults to time.Now.
	Now func() time.Time
}

func DefaultOptions() Options {
	return Options{
		MinReasonLength:       10,
		MaxReasonLength:       500,
		ExcludeNonWorkingDays: true,
		Now:                   time.Now,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MinReasonLength <= 0 {
		o.MinReasonLength = d.MinReasonLength
	}
	if o.MaxReasonLength <= 0 {
		o.MaxReasonLength = d.MaxReasonLength
	}
	if o.Now == nil {
		o.Now = d.Now
	}
	return o
}

// =============================================================================
// ENGINE - Composition root
// =============================================================================

// Engine wires the components over one Store.
type Engine struct {
	Store     Store
	Audit     *AuditLog
	Policies  *Policies
	Calendar  *Calendar
	Directory *Directory
	Ledger    *Ledger
	Workflow  *Workflow
	Reports   *Reports
}

// NewEngine builds all components over store.
func NewEngine(store Store, opts Options) *Engine {
	c := &core{store: store, opts: opts.withDefaults()}

	audit := &AuditLog{core: c}
	ledger := &Ledger{core: c, audit: audit}
	calendar := &Calendar{core: c, audit: audit}

	return &Engine{
		Store:     store,
		Audit:     audit,
		Ledger:    ledger,
		Calendar:  calendar,
		Policies:  &Policies{core: c, audit: audit, ledger: ledger},
		Directory: &Directory{core: c, audit: audit, ledger: ledger},
		Workflow:  &Workflow{core: c, audit: audit, ledger: ledger, calendar: calendar},
		Reports:   &Reports{core: c},
	}
}

// core is shared by every component.
type core struct {
	store Store
	opts  Options
}

func (c *core) now() time.Time { return c.opts.Now().UTC() }

func (c *core) log(ctx context.Context) *zerolog.Logger { return zerolog.Ctx(ctx) }

// newID returns a time-ordered identifier with a readable prefix.
func newID(prefix string) string {
	return prefix + "-" + uuid.Must(uuid.NewV7()).String()
}
