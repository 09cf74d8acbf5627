package leave

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// HOLIDAY CALENDAR
// =============================================================================

// Calendar holds company holidays and computes request durations.
type Calendar struct {
	*core
	audit *AuditLog
}

func (c *Calendar) Add(ctx context.Context, actor Actor, in Holiday) (*Holiday, error) {
	if err := actor.requireHR("add holiday"); err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := validateHoliday(&in); err != nil {
		return nil, err
	}
	h := in
	h.ID = newID("hol")
	h.CreatedAt = c.now()

	err := c.store.WithTx(ctx, func(repo Repository) error {
		if err := ensureUniqueHoliday(ctx, repo, h); err != nil {
			return err
		}
		if err := repo.InsertHoliday(ctx, &h); err != nil {
			return err
		}
		_, err := c.audit.Record(ctx, repo, AuditRecord{
			Action:      AuditHolidayAdd,
			EntityType:  EntityHoliday,
			EntityID:    h.ID,
			ActorID:     actor.ID,
			After:       h,
			Description: fmt.Sprintf("Holiday added: %s (%s)", h.Name, h.Date.Format(DateLayout)),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return &h, nil
}

type HolidayUpdate struct {
	Date *time.Time
	Name *string
	Kind *HolidayKind
}

func (c *Calendar) Update(ctx context.Context, actor Actor, id string, upd HolidayUpdate) (*Holiday, error) {
	if err := actor.requireHR("update holiday"); err != nil {
		return nil, err
	}
	var updated Holiday
	err := c.store.WithTx(ctx, func(repo Repository) error {
		current, err := repo.GetHoliday(ctx, id)
		if err != nil {
			return err
		}
		next := *current
		if upd.Date != nil {
			next.Date = *upd.Date
		}
		if upd.Name != nil {
			next.Name = strings.TrimSpace(*upd.Name)
		}
		if upd.Kind != nil {
			next.Kind = *upd.Kind
		}
		if err := validateHoliday(&next); err != nil {
			return err
		}
		if err := ensureUniqueHoliday(ctx, repo, next); err != nil {
			return err
		}
		if err := repo.UpdateHoliday(ctx, &next); err != nil {
			return err
		}
		updated = next
		_, err = c.audit.Record(ctx, repo, AuditRecord{
			Action:      AuditHolidayUpdate,
			EntityType:  EntityHoliday,
			EntityID:    id,
			ActorID:     actor.ID,
			Before:      current,
			After:       next,
			Description: "Holiday updated: " + next.Name,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *Calendar) Delete(ctx context.Context, actor Actor, id string) error {
	if err := actor.requireHR("delete holiday"); err != nil {
		return err
	}
	return c.store.WithTx(ctx, func(repo Repository) error {
		h, err := repo.GetHoliday(ctx, id)
		if err != nil {
			return err
		}
		if err := repo.DeleteHoliday(ctx, id); err != nil {
			return err
		}
		_, err = c.audit.Record(ctx, repo, AuditRecord{
			Action:      AuditHolidayDelete,
			EntityType:  EntityHoliday,
			EntityID:    id,
			ActorID:     actor.ID,
			Before:      h,
			Description: "Holiday deleted: " + h.Name,
		})
		return err
	})
}

func (c *Calendar) Get(ctx context.Context, id string) (*Holiday, error) {
	return c.store.GetHoliday(ctx, id)
}

// List returns holidays between from and to (zero = unbounded), sorted by date.
func (c *Calendar) List(ctx context.Context, from, to time.Time) ([]Holiday, error) {
	return c.store.ListHolidays(ctx, from, to)
}

// Year returns the holidays of one calendar year.
func (c *Calendar) Year(ctx context.Context, year int) ([]Holiday, error) {
	return c.List(ctx, time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(year, 12, 31, 0, 0, 0, 0, time.UTC))
}

func validateHoliday(h *Holiday) error {
	if h.Date.IsZero() {
		return &ValidationError{Field: "date", Message: "is required"}
	}
	h.Date = DateOf(h.Date)
	if h.Name == "" {
		return &ValidationError{Field: "name", Message: "is required"}
	}
	if h.Kind == "" {
		h.Kind = HolidayNational
	}
	if !h.Kind.Valid() {
		return &ValidationError{Field: "type", Message: fmt.Sprintf("%q is not national, regional or optional", h.Kind)}
	}
	return nil
}

func ensureUniqueHoliday(ctx context.Context, repo Reader, h Holiday) error {
	same, err := repo.ListHolidays(ctx, h.Date, h.Date)
	if err != nil {
		return err
	}
	for _, o := range same {
		if o.ID != h.ID && strings.EqualFold(o.Name, h.Name) {
			return &ConflictError{Entity: "holiday", ID: o.ID, Reason: "already defined on " + h.Date.Format(DateLayout)}
		}
	}
	return nil
}

// =============================================================================
// DURATION
// =============================================================================

// DurationInput describes the days of a request. Breakdown overrides DayType
// for individual dates.
type DurationInput struct {
	Start     time.Time
	End       time.Time
	DayType   DayType
	Breakdown []DayPortion
}

// Duration returns the leave consumed by in.
func (c *Calendar) Duration(ctx context.Context, in DurationInput) (Days, error) {
	return c.duration(ctx, c.store, in)
}

func (c *Calendar) duration(ctx context.Context, repo Reader, in DurationInput) (Days, error) {
	start, end := DateOf(in.Start), DateOf(in.End)
	if in.Start.IsZero() || in.End.IsZero() {
		return 0, &ValidationError{Field: "dates", Message: "start and end are required"}
	}
	if end.Before(start) {
		return 0, &InvalidDateRangeError{Start: start.Format(DateLayout), End: end.Format(DateLayout)}
	}
	dayType := in.DayType
	if dayType == "" {
		dayType = DayFull
	}
	if !dayType.Valid() {
		return 0, &ValidationError{Field: "day_type", Message: fmt.Sprintf("%q is not a valid day type", dayType)}
	}

	overrides := make(map[time.Time]DayType, len(in.Breakdown))
	for _, p := range in.Breakdown {
		d := DateOf(p.Date)
		if d.Before(start) || d.After(end) {
			return 0, &ValidationError{Field: "breakdown", Message: d.Format(DateLayout) + " is outside the requested range"}
		}
		if !p.DayType.Valid() {
			return 0, &ValidationError{Field: "breakdown", Message: fmt.Sprintf("%q is not a valid day type", p.DayType)}
		}
		overrides[d] = p.DayType
	}

	closed := map[time.Time]bool{}
	if c.opts.ExcludeNonWorkingDays {
		holidays, err := repo.ListHolidays(ctx, start, end)
		if err != nil {
			return 0, err
		}
		for _, h := range holidays {
			if h.Kind.Excludes() {
				closed[DateOf(h.Date)] = true
			}
		}
	}

	var total Days
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if c.opts.ExcludeNonWorkingDays && (isWeekend(d) || closed[d]) {
			continue
		}
		dt := dayType
		if o, ok := overrides[d]; ok {
			dt = o
		}
		total += dt.Units()
	}
	return total, nil
}
