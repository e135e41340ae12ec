package navigator

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gabisonia/go-clausenav/clause"
)

var ErrMisconfigured = errors.New("navigator: misconfigured translator")

// Recorder receives translation outcomes. metrics.Metrics satisfies it.
type Recorder interface {
	ObserveConversion(translator, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveConversion(string, string) {}

const (
	outcomeFit     = "fit"
	outcomeLossy   = "lossy"
	outcomeNotFit  = "not_fit"
	outcomeNoMatch = "no_match"
	outcomeError   = "error"
)

// Options configures translators.
type Options struct {
	Logger  *slog.Logger
	Metrics Recorder
	// Policy controls where terminals for the translated field may appear
	// for the structure checks of the date translator and FitsNavigator.
	Policy  clause.Policy
	Layouts DateLayouts
}

// DefaultOptions returns the strict placement policy and ISO display layouts.
func DefaultOptions() Options {
	return Options{
		Layouts: DefaultDateLayouts(),
	}
}

func (o Options) withDefaults(component string) Options {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	o.Logger = o.Logger.With("component", component)
	if o.Metrics == nil {
		o.Metrics = nopRecorder{}
	}
	o.Layouts = o.Layouts.withDefaults()
	return o
}

// ClauseNames is the set of names a field may be referenced by in a clause.
type ClauseNames struct {
	Primary string
	Aliases []string
}

// NewClauseNames builds clause names from a primary name and aliases.
func NewClauseNames(primary string, aliases ...string) ClauseNames {
	cp := make([]string, len(aliases))
	copy(cp, aliases)
	return ClauseNames{Primary: primary, Aliases: cp}
}

// All returns the primary name followed by the aliases.
func (c ClauseNames) All() []string {
	out := make([]string, 0, 1+len(c.Aliases))
	out = append(out, c.Primary)
	return append(out, c.Aliases...)
}

func (c ClauseNames) validate() error {
	if strings.TrimSpace(c.Primary) == "" {
		return fmt.Errorf("%w: primary clause name is empty", ErrMisconfigured)
	}
	return nil
}

// DateSearcherConfig identifies a date field. ID keys the navigator
// parameters, ClauseNames select terminals and FieldName is the indexed
// field the searcher backs.
type DateSearcherConfig struct {
	ID          string
	ClauseNames ClauseNames
	FieldName   string
}

func (c DateSearcherConfig) validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("%w: date searcher id is empty", ErrMisconfigured)
	}
	return c.ClauseNames.validate()
}
