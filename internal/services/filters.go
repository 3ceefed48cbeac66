package services

import (
	"context"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/NaguKun/Analyseur-de-CV/internal/models"
	"github.com/NaguKun/Analyseur-de-CV/internal/repositories"
)

const daysPerYear = 365.25

// Criteria holds the structural constraints of a search. Zero values mean
// the constraint is not active.
type Criteria struct {
	Location           string
	EducationLevel     string
	Skills             []string
	MinExperienceYears *float64
}

// Filter produces the set of candidate ids satisfying one predicate.
type Filter struct {
	Name  string
	Apply func(ctx context.Context, store repositories.SearchRepository) (IDSet, error)
}

// Filters returns the active filters of c, cheapest first.
func (c Criteria) Filters(foldCase bool, now func() time.Time) []Filter {
	var filters []Filter
	if degree := strings.TrimSpace(c.EducationLevel); degree != "" {
		filters = append(filters, EducationFilter(degree, foldCase))
	}
	if location := strings.TrimSpace(c.Location); location != "" {
		filters = append(filters, LocationFilter(location))
	}
	if skills := requiredSkills(c.Skills, foldCase); len(skills) > 0 {
		filters = append(filters, SkillsFilter(skills, foldCase))
	}
	if c.MinExperienceYears != nil && *c.MinExperienceYears > 0 {
		filters = append(filters, ExperienceFilter(*c.MinExperienceYears, now))
	}
	return filters
}

// LocationFilter keeps candidates whose location contains location,
// ignoring case. Candidates without a location never match.
func LocationFilter(location string) Filter {
	needle := strings.ToLower(location)
	return Filter{
		Name: "location",
		Apply: func(ctx context.Context, store repositories.SearchRepository) (IDSet, error) {
			rows, err := store.LocationRows(ctx, location)
			if err != nil {
				return nil, err
			}
			ids := make(IDSet, len(rows))
			for _, row := range rows {
				if row.Location != nil && strings.Contains(strings.ToLower(*row.Location), needle) {
					ids.Add(row.ID)
				}
			}
			return ids, nil
		},
	}
}

// EducationFilter keeps candidates holding at least one education record
// whose degree equals degree.
func EducationFilter(degree string, foldCase bool) Filter {
	return Filter{
		Name: "education",
		Apply: func(ctx context.Context, store repositories.SearchRepository) (IDSet, error) {
			rows, err := store.EducationRows(ctx, degree, foldCase)
			if err != nil {
				return nil, err
			}
			ids := make(IDSet, len(rows))
			for _, row := range rows {
				if row.Degree == degree || (foldCase && strings.EqualFold(row.Degree, degree)) {
					ids.Add(row.CandidateID)
				}
			}
			return ids, nil
		},
	}
}

// SkillsFilter keeps candidates linked to every named skill. A name with no
// skill row makes the result empty.
func SkillsFilter(names []string, foldCase bool) Filter {
	key := func(name string) string {
		if foldCase {
			return models.NormalizeSkillName(name)
		}
		return name
	}

	return Filter{
		Name: "skills",
		Apply: func(ctx context.Context, store repositories.SearchRepository) (IDSet, error) {
			skills, err := store.SkillsByNames(ctx, names, foldCase)
			if err != nil {
				return nil, err
			}

			resolved := make(map[string]uint, len(skills))
			for _, s := range skills {
				if foldCase {
					resolved[s.NormalizedName] = s.ID
				} else {
					resolved[s.Name] = s.ID
				}
			}

			required := make([]uint, 0, len(names))
			for _, name := range names {
				id, ok := resolved[key(name)]
				if !ok {
					return IDSet{}, nil
				}
				required = append(required, id)
			}

			links, err := store.CandidateSkillRows(ctx, required)
			if err != nil {
				return nil, err
			}
			return candidatesWithAllSkills(links, required), nil
		},
	}
}

// ExperienceFilter keeps candidates whose summed employment spans reach
// minYears. A missing end date counts as ongoing until now; records with
// no start date are skipped.
func ExperienceFilter(minYears float64, now func() time.Time) Filter {
	if now == nil {
		now = time.Now
	}
	return Filter{
		Name: "experience",
		Apply: func(ctx context.Context, store repositories.SearchRepository) (IDSet, error) {
			rows, err := store.WorkPeriodRows(ctx)
			if err != nil {
				return nil, err
			}
			ids := make(IDSet)
			for id, years := range experienceYears(rows, now()) {
				if years >= minYears {
					ids.Add(id)
				}
			}
			return ids, nil
		},
	}
}

func requiredSkills(names []string, foldCase bool) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		k := name
		if foldCase {
			k = models.NormalizeSkillName(name)
		}
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, name)
	}
	return out
}

func candidatesWithAllSkills(links []models.CandidateSkill, required []uint) IDSet {
	want := NewIDSet(required...)
	held := make(map[uint]IDSet)
	for _, link := range links {
		if !want.Contains(link.SkillID) {
			continue
		}
		if held[link.CandidateID] == nil {
			held[link.CandidateID] = make(IDSet)
		}
		held[link.CandidateID].Add(link.SkillID)
	}

	ids := make(IDSet)
	for candidateID, skills := range held {
		if len(skills) == len(want) {
			ids.Add(candidateID)
		}
	}
	return ids
}

func experienceYears(rows []models.WorkPeriodRow, now time.Time) map[uint]float64 {
	totals := make(map[uint]float64)
	for _, row := range rows {
		if row.StartDate == nil || row.StartDate.IsZero() || row.EndDateInvalid {
			continue
		}
		end := now
		if row.EndDate != nil && !row.EndDate.IsZero() {
			end = *row.EndDate
		}
		days := math.Floor(end.Sub(*row.StartDate).Hours() / 24)
		totals[row.CandidateID] += math.Max(0, days/daysPerYear)
	}
	return totals
}

// filterRun evaluates a set of filters concurrently. The first filter to
// come back empty cancels the others.
type filterRun struct {
	filters []Filter
	results []IDSet
	errs    []error
	emptied atomic.Bool
}

func newFilterRun(filters []Filter) *filterRun {
	return &filterRun{
		filters: filters,
		results: make([]IDSet, len(filters)),
		errs:    make([]error, len(filters)),
	}
}

func (r *filterRun) tasks(ctx context.Context, store repositories.SearchRepository, cancel context.CancelFunc) []func() {
	tasks := make([]func(), len(r.filters))
	for i, f := range r.filters {
		tasks[i] = func() {
			ids, err := f.Apply(ctx, store)
			if err != nil {
				r.errs[i] = err
				return
			}
			r.results[i] = ids
			if len(ids) == 0 {
				r.emptied.Store(true)
				cancel()
			}
		}
	}
	return tasks
}

// eligible intersects the filter results once every task has finished.
func (r *filterRun) eligible() (Eligible, error) {
	if len(r.filters) == 0 {
		return Eligible{All: true}, nil
	}
	if r.emptied.Load() {
		return Eligible{IDs: IDSet{}}, nil
	}
	for i, err := range r.errs {
		if err != nil {
			return Eligible{}, &FilterError{Filter: r.filters[i].Name, Err: external(ServiceStore, err)}
		}
	}

	ids := r.results[0]
	for _, next := range r.results[1:] {
		ids = ids.Intersect(next)
		if len(ids) == 0 {
			break
		}
	}
	return Eligible{IDs: ids}, nil
}

// runTasks runs tasks on pool and waits for them. Tasks the pool refuses
// run on the calling goroutine.
func runTasks(pool *ants.Pool, tasks []func()) {
	if pool == nil || len(tasks) == 1 {
		for _, task := range tasks {
			task()
		}
		return
	}

	var wg sync.WaitGroup
	for _, task := range tasks {
		wg.Add(1)
		run := func() {
			defer wg.Done()
			task()
		}
		if err := pool.Submit(run); err != nil {
			run()
		}
	}
	wg.Wait()
}
