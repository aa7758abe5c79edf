// Package dashboard owns the five entity collections shown by the internal
// dashboard and the actions a user can take on them.
package dashboard

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"brandenbed/internal/collection"
	"brandenbed/internal/domain"
)

// FetchFailed is the single notice shown for every failed store call.
const FetchFailed = "❌ Failed to fetch data. Is JSON server running?"

// Section is the sidebar entry currently shown. Any section can follow any
// other.
type Section string

const (
	SectionDashboard  Section = "dashboard"
	SectionProperties Section = "properties"
	SectionTasks      Section = "tasks"
	SectionQueries    Section = "queries"
	SectionRent       Section = "rent"
	SectionEmployees  Section = "employees"
	SectionSettings   Section = "settings"
)

var Sections = []Section{
	SectionDashboard, SectionProperties, SectionTasks, SectionQueries,
	SectionRent, SectionEmployees, SectionSettings,
}

func ParseSection(s string) (Section, error) {
	for _, v := range Sections {
		if string(v) == strings.ToLower(strings.TrimSpace(s)) {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: section %q", domain.ErrInvalid, s)
}

// Form defaults.
func blankProperty() domain.Property {
	return domain.Property{District: "Mitte", Rooms: 1, Rent: 1000}
}

func blankPayment() domain.Payment {
	return domain.Payment{Property: "Apt #05, Mitte", Type: domain.PaymentBankTransfer}
}

func blankQuery() domain.Query { return domain.Query{Status: domain.StatusPending} }

func blankEmployee() domain.Employee { return domain.Employee{Permissions: []domain.Permission{}} }

type Dashboard struct {
	Properties *collection.Collection[domain.Property]
	Employees  *collection.Collection[domain.Employee]
	Payments   *collection.Collection[domain.Payment]
	Queries    *collection.Collection[domain.Query]
	Tasks      *collection.Collection[domain.Task]

	mu      sync.Mutex
	section Section
	banner  string
}

func New(remote domain.StoreClient) *Dashboard {
	return &Dashboard{
		Properties: collection.New(domain.CollProperties, remote, blankProperty),
		Employees:  collection.New(domain.CollEmployees, remote, blankEmployee),
		Payments:   collection.New(domain.CollPayments, remote, blankPayment),
		Queries:    collection.New(domain.CollQueries, remote, blankQuery),
		Tasks:      collection.New[domain.Task](domain.CollTasks, remote, nil),
		section:    SectionDashboard,
	}
}

func (d *Dashboard) Section() Section {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.section
}

func (d *Dashboard) SetSection(s Section) {
	d.mu.Lock()
	d.section = s
	d.mu.Unlock()
}

// Banner returns the current error notice, empty when the last load worked.
func (d *Dashboard) Banner() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.banner
}

func (d *Dashboard) setBanner(s string) {
	d.mu.Lock()
	d.banner = s
	d.mu.Unlock()
}

// fail records err behind the generic banner and hands it back.
func (d *Dashboard) fail(err error) error {
	if err != nil {
		log.Warn().Err(err).Msg("store call failed")
		d.setBanner(FetchFailed)
	}
	return err
}

// Load fetches all five collections in parallel. Nothing is replaced unless
// every fetch succeeds.
func (d *Dashboard) Load(ctx context.Context) error {
	var (
		props []domain.Property
		emps  []domain.Employee
		pays  []domain.Payment
		qs    []domain.Query
		tasks []domain.Task
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { props, err = d.Properties.Fetch(gctx); return })
	g.Go(func() (err error) { emps, err = d.Employees.Fetch(gctx); return })
	g.Go(func() (err error) { pays, err = d.Payments.Fetch(gctx); return })
	g.Go(func() (err error) { qs, err = d.Queries.Fetch(gctx); return })
	g.Go(func() (err error) { tasks, err = d.Tasks.Fetch(gctx); return })
	if err := g.Wait(); err != nil {
		return d.fail(err)
	}

	d.Properties.Set(props)
	d.Employees.Set(emps)
	d.Payments.Set(pays)
	d.Queries.Set(qs)
	d.Tasks.Set(tasks)
	d.setBanner("")
	return nil
}

func (d *Dashboard) AddProperty(ctx context.Context) (domain.Property, error) {
	p, err := d.Properties.Create(ctx)
	return p, d.fail(err)
}

// EditProperty replaces the whole property record.
func (d *Dashboard) EditProperty(ctx context.Context, p domain.Property) (domain.Property, error) {
	out, err := d.Properties.Save(ctx, p)
	return out, d.fail(err)
}

func (d *Dashboard) DeleteProperty(ctx context.Context, id domain.ID) error {
	return d.fail(d.Properties.Delete(ctx, id))
}

// BumpRent raises the rent of property id by 100.
func (d *Dashboard) BumpRent(ctx context.Context, id domain.ID) (domain.Property, error) {
	p, ok := d.Properties.Find(id)
	if !ok {
		return p, d.fail(fmt.Errorf("bump rent %s: %w", id, domain.ErrNotFound))
	}
	rent := p.Rent + 100
	out, err := d.Properties.Update(ctx, id, domain.PropertyPatch{Rent: &rent})
	return out, d.fail(err)
}

func (d *Dashboard) AddPayment(ctx context.Context) (domain.Payment, error) {
	p, err := d.Payments.Create(ctx)
	return p, d.fail(err)
}

func (d *Dashboard) DeletePayment(ctx context.Context, id domain.ID) error {
	return d.fail(d.Payments.Delete(ctx, id))
}

func (d *Dashboard) ToggleReviewed(ctx context.Context, id domain.ID) (domain.Payment, error) {
	p, ok := d.Payments.Find(id)
	if !ok {
		return p, d.fail(fmt.Errorf("toggle reviewed %s: %w", id, domain.ErrNotFound))
	}
	next := !p.Reviewed
	out, err := d.Payments.Update(ctx, id, domain.PaymentPatch{Reviewed: &next})
	return out, d.fail(err)
}

func (d *Dashboard) AddQuery(ctx context.Context) (domain.Query, error) {
	q, err := d.Queries.Create(ctx)
	return q, d.fail(err)
}

func (d *Dashboard) DeleteQuery(ctx context.Context, id domain.ID) error {
	return d.fail(d.Queries.Delete(ctx, id))
}

// SetQueryStatus moves a query to any status, including the one it has.
func (d *Dashboard) SetQueryStatus(ctx context.Context, id domain.ID, s domain.QueryStatus) (domain.Query, error) {
	if !s.Valid() {
		var zero domain.Query
		return zero, d.fail(fmt.Errorf("set status %s: %w: %q", id, domain.ErrInvalid, string(s)))
	}
	out, err := d.Queries.Update(ctx, id, domain.QueryPatch{Status: &s})
	return out, d.fail(err)
}

func (d *Dashboard) AddTask(ctx context.Context) (domain.Task, error) {
	t, err := d.Tasks.Create(ctx)
	return t, d.fail(err)
}

func (d *Dashboard) DeleteTask(ctx context.Context, id domain.ID) error {
	return d.fail(d.Tasks.Delete(ctx, id))
}

func (d *Dashboard) ToggleTask(ctx context.Context, id domain.ID) (domain.Task, error) {
	t, ok := d.Tasks.Find(id)
	if !ok {
		return t, d.fail(fmt.Errorf("toggle task %s: %w", id, domain.ErrNotFound))
	}
	next := !t.Done
	out, err := d.Tasks.Update(ctx, id, domain.TaskPatch{Done: &next})
	return out, d.fail(err)
}

func (d *Dashboard) AddEmployee(ctx context.Context) (domain.Employee, error) {
	e, err := d.Employees.Create(ctx)
	return e, d.fail(err)
}

func (d *Dashboard) DeleteEmployee(ctx context.Context, id domain.ID) error {
	return d.fail(d.Employees.Delete(ctx, id))
}

// TogglePermission flips perm for employee id and persists the new list.
func (d *Dashboard) TogglePermission(ctx context.Context, id domain.ID, perm domain.Permission) (domain.Employee, error) {
	e, ok := d.Employees.Find(id)
	if !ok {
		return e, d.fail(fmt.Errorf("toggle permission %s: %w", id, domain.ErrNotFound))
	}
	if !perm.Valid() {
		return e, d.fail(fmt.Errorf("toggle permission %s: %w: %q", id, domain.ErrInvalid, string(perm)))
	}
	perms := e.Toggled(perm)
	out, err := d.Employees.Update(ctx, id, domain.EmployeePatch{Permissions: &perms})
	return out, d.fail(err)
}

func (d *Dashboard) UpdateRole(ctx context.Context, id domain.ID, role string) (domain.Employee, error) {
	if strings.TrimSpace(role) == "" {
		var zero domain.Employee
		return zero, d.fail(fmt.Errorf("update role %s: %w: empty role", id, domain.ErrInvalid))
	}
	out, err := d.Employees.Update(ctx, id, domain.EmployeePatch{Role: &role})
	return out, d.fail(err)
}

type Stats struct {
	TotalRent       float64
	Properties      int
	ResolvedQueries int
}

func (d *Dashboard) Stats() Stats {
	var s Stats
	for _, p := range d.Payments.Items() {
		s.TotalRent += p.Amount
	}
	s.Properties = d.Properties.Len()
	for _, q := range d.Queries.Items() {
		if q.Status == domain.StatusResolved {
			s.ResolvedQueries++
		}
	}
	return s
}

// FilterProperties keeps properties in district (empty = any) whose name
// followed directly by district contains search, ignoring case.
func (d *Dashboard) FilterProperties(district, search string) []domain.Property {
	search = strings.ToLower(strings.TrimSpace(search))
	out := []domain.Property{}
	for _, p := range d.Properties.Items() {
		if district != "" && p.District != district {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name+p.District), search) {
			continue
		}
		out = append(out, p)
	}
	return out
}
