package factory

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/warp/leave-engine/leave"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// PARSING
// =============================================================================

// Parse decodes a YAML or JSON seed document. Unknown keys are rejected.
func Parse(data []byte) (*Document, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return &doc, nil
		}
		return nil, fmt.Errorf("failed to parse seed document: %w", err)
	}
	return &doc, nil
}

func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return Parse(data)
}

// =============================================================================
// APPLY
// =============================================================================

// Summary counts what Apply did. Skipped records already existed.
type Summary struct {
	PoliciesAdded  int
	HolidaysAdded  int
	EmployeesAdded int
	Skipped        int
}

// Apply seeds policies, then holidays, then employees, through the engine.
// Records that already exist are skipped, so applying the same document on
// every start is safe. Employees are added managers first.
func Apply(ctx context.Context, eng *leave.Engine, actor leave.Actor, doc *Document) (*Summary, error) {
	sum := &Summary{}
	log := zerolog.Ctx(ctx)

	for _, spec := range doc.Policies {
		p, err := spec.Policy()
		if err != nil {
			return sum, err
		}
		if _, err := eng.Policies.Add(ctx, actor, p); err != nil {
			if leave.IsConflict(err) {
				sum.Skipped++
				continue
			}
			return sum, fmt.Errorf("policy %s: %w", spec.LeaveType, err)
		}
		sum.PoliciesAdded++
	}

	for _, spec := range doc.Holidays {
		h, err := spec.Holiday()
		if err != nil {
			return sum, err
		}
		if _, err := eng.Calendar.Add(ctx, actor, h); err != nil {
			if leave.IsConflict(err) {
				sum.Skipped++
				continue
			}
			return sum, fmt.Errorf("holiday %s %q: %w", spec.Date, spec.Name, err)
		}
		sum.HolidaysAdded++
	}

	ordered, err := managersFirst(doc.Employees)
	if err != nil {
		return sum, err
	}
	for _, spec := range ordered {
		if _, err := eng.Directory.Add(ctx, actor, spec.NewEmployee()); err != nil {
			if leave.IsConflict(err) {
				sum.Skipped++
				continue
			}
			return sum, fmt.Errorf("employee %s: %w", spec.ID, err)
		}
		sum.EmployeesAdded++
	}

	log.Info().
		Int("policies", sum.PoliciesAdded).
		Int("holidays", sum.HolidaysAdded).
		Int("employees", sum.EmployeesAdded).
		Int("skipped", sum.Skipped).
		Msg("seed applied")
	return sum, nil
}

// ApplyDefaults adds the stock policies whose leave type is not defined yet
// and returns how many were added.
func ApplyDefaults(ctx context.Context, eng *leave.Engine, actor leave.Actor) (int, error) {
	added := 0
	for _, p := range DefaultPolicies() {
		if _, err := eng.Policies.Add(ctx, actor, p); err != nil {
			if leave.IsConflict(err) {
				continue
			}
			return added, fmt.Errorf("default policy %s: %w", p.LeaveType, err)
		}
		added++
	}
	if added > 0 {
		zerolog.Ctx(ctx).Info().Int("policies", added).Msg("default policies installed")
	}
	return added, nil
}

// managersFirst orders employees so that every manager and team lead
// referenced inside the document precedes its reports. References to ids
// outside the document are left for the directory to resolve.
func managersFirst(specs []EmployeeSpec) ([]EmployeeSpec, error) {
	inDoc := make(map[string]bool, len(specs))
	for _, s := range specs {
		if s.ID == "" {
			return nil, fmt.Errorf("employee %q: id is required in seed documents", s.Name)
		}
		inDoc[s.ID] = true
	}

	placed := make(map[string]bool, len(specs))
	ready := func(ref string) bool { return ref == "" || !inDoc[ref] || placed[ref] }

	out := make([]EmployeeSpec, 0, len(specs))
	pending := specs
	for len(pending) > 0 {
		var next []EmployeeSpec
		for _, s := range pending {
			if ready(s.ManagerID) && ready(s.TeamLeadID) {
				out = append(out, s)
				placed[s.ID] = true
				continue
			}
			next = append(next, s)
		}
		if len(next) == len(pending) {
			ids := make([]string, len(next))
			for i, s := range next {
				ids[i] = s.ID
			}
			return nil, fmt.Errorf("reporting cycle among employees: %s", strings.Join(ids, ", "))
		}
		pending = next
	}
	return out, nil
}
