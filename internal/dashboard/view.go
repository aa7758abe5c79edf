package dashboard

import (
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"brandenbed/internal/domain"
)

type Tone string

const (
	ToneGreen  Tone = "green"
	ToneYellow Tone = "yellow"
	ToneBlue   Tone = "blue"
)

type Badge struct {
	Label string
	Tone  Tone
}

var printer = message.NewPrinter(language.English)

// Euro renders an amount the way the rent table shows it: €950, €1,200.
// Cents are only shown when present.
func Euro(amount float64) string {
	if amount == math.Trunc(amount) && math.Abs(amount) < 1e15 {
		return "€" + printer.Sprintf("%d", int64(amount))
	}
	return "€" + printer.Sprintf("%.2f", amount)
}

func PaymentBadge(p domain.Payment) Badge {
	if p.Reviewed {
		return Badge{Label: "Reviewed", Tone: ToneGreen}
	}
	return Badge{Label: "Pending", Tone: ToneYellow}
}

// ReviewAction is the label of the button that flips Reviewed.
func ReviewAction(p domain.Payment) string {
	if p.Reviewed {
		return "Unmark"
	}
	return "Mark Reviewed"
}

func QueryBadge(q domain.Query) Badge {
	switch q.Status {
	case domain.StatusResolved:
		return Badge{Label: string(q.Status), Tone: ToneGreen}
	case domain.StatusInProgress:
		return Badge{Label: string(q.Status), Tone: ToneBlue}
	default:
		return Badge{Label: string(domain.StatusPending), Tone: ToneYellow}
	}
}

func TaskBadge(t domain.Task) Badge {
	if t.Done {
		return Badge{Label: "Done", Tone: ToneGreen}
	}
	return Badge{Label: "Pending", Tone: ToneYellow}
}

func TaskAction(t domain.Task) string {
	if t.Done {
		return "Undo"
	}
	return "Mark Done"
}

// Rows are flat string tables, one cell per column.

var (
	PropertyHeader = []string{"ID", "NAME", "DISTRICT", "ROOMS", "RENT"}
	PaymentHeader  = []string{"ID", "PROPERTY", "TENANT", "AMOUNT", "TYPE", "STATUS", "ACTION"}
	QueryHeader    = []string{"ID", "TENANT", "ISSUE", "STATUS"}
	EmployeeHeader = []string{"ID", "NAME", "ROLE", "PERMISSIONS"}
	TaskHeader     = []string{"ID", "TITLE", "STATUS", "ACTION"}
)

func PropertyRows(ps []domain.Property) [][]string {
	out := make([][]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, []string{p.ID.String(), p.Name, p.District, printer.Sprintf("%d", p.Rooms), Euro(p.Rent)})
	}
	return out
}

func PaymentRows(ps []domain.Payment) [][]string {
	out := make([][]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, []string{p.ID.String(), p.Property, p.Tenant, Euro(p.Amount), p.Type, PaymentBadge(p).Label, ReviewAction(p)})
	}
	return out
}

func QueryRows(qs []domain.Query) [][]string {
	out := make([][]string, 0, len(qs))
	for _, q := range qs {
		out = append(out, []string{q.ID.String(), q.Tenant, q.Issue, QueryBadge(q).Label})
	}
	return out
}

func EmployeeRows(es []domain.Employee) [][]string {
	out := make([][]string, 0, len(es))
	for _, e := range es {
		perms := make([]string, 0, len(e.Permissions))
		for _, p := range e.Permissions {
			perms = append(perms, string(p))
		}
		out = append(out, []string{e.ID.String(), e.Name, e.Role, strings.Join(perms, ",")})
	}
	return out
}

func TaskRows(ts []domain.Task) [][]string {
	out := make([][]string, 0, len(ts))
	for _, t := range ts {
		out = append(out, []string{t.ID.String(), t.Title, TaskBadge(t).Label, TaskAction(t)})
	}
	return out
}
