// Command dashboard is a terminal front end for the property dashboard. Each
// invocation loads every collection from the record store, runs one action
// and prints the affected section.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rs/zerolog/log"

	"brandenbed/internal/adapters/observability"
	"brandenbed/internal/adapters/storeclient"
	"brandenbed/internal/dashboard"
	"brandenbed/internal/domain"
	"brandenbed/internal/shared"
)

const usage = `usage: dashboard [-store URL] <command> [flags] [args]

commands:
  show [section]                      print a section (dashboard, properties, tasks, queries, rent, employees, settings)
  properties [-district D] [-q TEXT]  list properties matching a filter
  add-property -name N [-district D] [-rooms R] [-rent X]
  edit-property ID -name N -district D -rooms R -rent X
  bump-rent ID                        raise rent by 100
  delete-property ID
  add-payment -tenant T -amount X [-id ID] [-property P] [-type T]
  toggle-reviewed ID
  delete-payment ID
  add-query -tenant T -issue I [-status S]
  set-status ID STATUS
  delete-query ID
  add-task -title T
  toggle-task ID
  delete-task ID
  add-employee -name N -role R [-perms read,write]
  toggle-perm ID PERM
  set-role ID ROLE
  delete-employee ID
`

func main() {
	cfg := shared.Load()
	log.Logger = observability.NewLogger(cfg.AppEnv)

	top := flag.NewFlagSet("dashboard", flag.ExitOnError)
	top.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	store := top.String("store", cfg.StoreURL, "record store base URL")
	_ = top.Parse(os.Args[1:])

	args := top.Args()
	if len(args) == 0 {
		args = []string{"show"}
	}

	client, err := storeclient.New(*store, cfg.ClientTimeout, cfg.ClientRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize store client")
	}
	d := dashboard.New(client)

	if err := run(context.Background(), d, os.Stdout, args[0], args[1:]); err != nil {
		if b := d.Banner(); b != "" {
			fmt.Fprintln(os.Stderr, b)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, d *dashboard.Dashboard, w io.Writer, cmd string, args []string) error {
	if err := d.Load(ctx); err != nil {
		return err
	}

	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	switch cmd {
	case "show":
		sec := dashboard.SectionDashboard
		if len(args) > 0 {
			s, err := dashboard.ParseSection(args[0])
			if err != nil {
				return err
			}
			sec = s
		}
		d.SetSection(sec)
		return render(w, d, sec)

	case "properties":
		district := fs.String("district", "", "district")
		q := fs.String("q", "", "search text")
		if err := fs.Parse(args); err != nil {
			return err
		}
		return table(w, dashboard.PropertyHeader, dashboard.PropertyRows(d.FilterProperties(*district, *q)))

	case "add-property", "edit-property":
		form := d.Properties.Form()
		name := fs.String("name", form.Name, "name")
		district := fs.String("district", form.District, "district")
		rooms := fs.Int("rooms", form.Rooms, "rooms")
		rent := fs.Float64("rent", form.Rent, "monthly rent")
		id, rest := leadingArg(args)
		if err := fs.Parse(rest); err != nil {
			return err
		}
		p := domain.Property{Name: *name, District: *district, Rooms: *rooms, Rent: *rent}
		if cmd == "edit-property" {
			if id == "" {
				return fmt.Errorf("%w: edit-property needs an id", domain.ErrInvalid)
			}
			p.ID = domain.ID(id)
			if _, err := d.EditProperty(ctx, p); err != nil {
				return err
			}
		} else {
			d.Properties.SetForm(p)
			if _, err := d.AddProperty(ctx); err != nil {
				return err
			}
		}
		return render(w, d, dashboard.SectionProperties)

	case "bump-rent":
		return withID(args, func(id domain.ID) error {
			_, err := d.BumpRent(ctx, id)
			return err
		}, func() error { return render(w, d, dashboard.SectionProperties) })

	case "delete-property":
		return withID(args, func(id domain.ID) error { return d.DeleteProperty(ctx, id) },
			func() error { return render(w, d, dashboard.SectionProperties) })

	case "add-payment":
		form := d.Payments.Form()
		id := fs.String("id", "", "payment id (store assigns one when empty)")
		property := fs.String("property", form.Property, "property label")
		tenant := fs.String("tenant", "", "tenant")
		amount := fs.Float64("amount", 0, "amount")
		typ := fs.String("type", form.Type, "Bank Transfer, Card or Cash")
		if err := fs.Parse(args); err != nil {
			return err
		}
		d.Payments.SetForm(domain.Payment{ID: domain.ID(*id), Property: *property, Tenant: *tenant, Amount: *amount, Type: *typ})
		if _, err := d.AddPayment(ctx); err != nil {
			return err
		}
		return render(w, d, dashboard.SectionRent)

	case "toggle-reviewed":
		return withID(args, func(id domain.ID) error {
			_, err := d.ToggleReviewed(ctx, id)
			return err
		}, func() error { return render(w, d, dashboard.SectionRent) })

	case "delete-payment":
		return withID(args, func(id domain.ID) error { return d.DeletePayment(ctx, id) },
			func() error { return render(w, d, dashboard.SectionRent) })

	case "add-query":
		tenant := fs.String("tenant", "", "tenant")
		issue := fs.String("issue", "", "issue")
		status := fs.String("status", string(domain.StatusPending), "Pending, In Progress or Resolved")
		if err := fs.Parse(args); err != nil {
			return err
		}
		d.Queries.SetForm(domain.Query{Tenant: *tenant, Issue: *issue, Status: domain.QueryStatus(*status)})
		if _, err := d.AddQuery(ctx); err != nil {
			return err
		}
		return render(w, d, dashboard.SectionQueries)

	case "set-status":
		if len(args) < 2 {
			return fmt.Errorf("%w: set-status needs an id and a status", domain.ErrInvalid)
		}
		if _, err := d.SetQueryStatus(ctx, domain.ID(args[0]), domain.QueryStatus(strings.Join(args[1:], " "))); err != nil {
			return err
		}
		return render(w, d, dashboard.SectionQueries)

	case "delete-query":
		return withID(args, func(id domain.ID) error { return d.DeleteQuery(ctx, id) },
			func() error { return render(w, d, dashboard.SectionQueries) })

	case "add-task":
		title := fs.String("title", "", "title")
		if err := fs.Parse(args); err != nil {
			return err
		}
		d.Tasks.SetForm(domain.Task{Title: *title})
		if _, err := d.AddTask(ctx); err != nil {
			return err
		}
		return render(w, d, dashboard.SectionTasks)

	case "toggle-task":
		return withID(args, func(id domain.ID) error {
			_, err := d.ToggleTask(ctx, id)
			return err
		}, func() error { return render(w, d, dashboard.SectionTasks) })

	case "delete-task":
		return withID(args, func(id domain.ID) error { return d.DeleteTask(ctx, id) },
			func() error { return render(w, d, dashboard.SectionTasks) })

	case "add-employee":
		name := fs.String("name", "", "name")
		role := fs.String("role", "", "role")
		perms := fs.String("perms", "", "comma separated permissions")
		if err := fs.Parse(args); err != nil {
			return err
		}
		e := domain.Employee{Name: *name, Role: *role, Permissions: []domain.Permission{}}
		for _, p := range strings.Split(*perms, ",") {
			if p = strings.TrimSpace(p); p != "" {
				e.Permissions = append(e.Permissions, domain.Permission(p))
			}
		}
		d.Employees.SetForm(e)
		if _, err := d.AddEmployee(ctx); err != nil {
			return err
		}
		return render(w, d, dashboard.SectionEmployees)

	case "toggle-perm", "set-role":
		if len(args) < 2 {
			return fmt.Errorf("%w: %s needs an id and a value", domain.ErrInvalid, cmd)
		}
		id, val := domain.ID(args[0]), strings.Join(args[1:], " ")
		var err error
		if cmd == "toggle-perm" {
			_, err = d.TogglePermission(ctx, id, domain.Permission(val))
		} else {
			_, err = d.UpdateRole(ctx, id, val)
		}
		if err != nil {
			return err
		}
		return render(w, d, dashboard.SectionEmployees)

	case "delete-employee":
		return withID(args, func(id domain.ID) error { return d.DeleteEmployee(ctx, id) },
			func() error { return render(w, d, dashboard.SectionEmployees) })
	}
	return fmt.Errorf("%w: unknown command %q", domain.ErrInvalid, cmd)
}

func leadingArg(args []string) (string, []string) {
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		return args[0], args[1:]
	}
	return "", args
}

func withID(args []string, act func(domain.ID) error, then func() error) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: missing id", domain.ErrInvalid)
	}
	if err := act(domain.ID(args[0])); err != nil {
		return err
	}
	return then()
}

func render(w io.Writer, d *dashboard.Dashboard, sec dashboard.Section) error {
	switch sec {
	case dashboard.SectionDashboard:
		s := d.Stats()
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintf(tw, "Total rent collected\t%s\n", dashboard.Euro(s.TotalRent))
		fmt.Fprintf(tw, "Properties\t%d\n", s.Properties)
		fmt.Fprintf(tw, "Resolved queries\t%d\n", s.ResolvedQueries)
		return tw.Flush()
	case dashboard.SectionProperties:
		return table(w, dashboard.PropertyHeader, dashboard.PropertyRows(d.Properties.Items()))
	case dashboard.SectionRent:
		return table(w, dashboard.PaymentHeader, dashboard.PaymentRows(d.Payments.Items()))
	case dashboard.SectionQueries:
		return table(w, dashboard.QueryHeader, dashboard.QueryRows(d.Queries.Items()))
	case dashboard.SectionTasks:
		return table(w, dashboard.TaskHeader, dashboard.TaskRows(d.Tasks.Items()))
	case dashboard.SectionEmployees, dashboard.SectionSettings:
		return table(w, dashboard.EmployeeHeader, dashboard.EmployeeRows(d.Employees.Items()))
	}
	return nil
}

func table(w io.Writer, header []string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	return tw.Flush()
}
