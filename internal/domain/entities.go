package domain

// Collection paths on the record store.
const (
	CollProperties = "properties"
	CollEmployees  = "employees"
	CollPayments   = "payments"
	CollQueries    = "queries"
	CollTasks      = "tasks"
)

// Collections is the default set a fresh store database starts with.
var Collections = []string{CollProperties, CollEmployees, CollPayments, CollQueries, CollTasks}

type Property struct {
	ID       ID      `json:"id,omitempty"`
	Name     string  `json:"name" validate:"required"`
	District string  `json:"district"`
	Rooms    int     `json:"rooms" validate:"gte=0"`
	Rent     float64 `json:"rent" validate:"gte=0"`
}

func (p Property) RecordID() ID { return p.ID }

type Employee struct {
	ID          ID           `json:"id,omitempty"`
	Name        string       `json:"name" validate:"required"`
	Role        string       `json:"role" validate:"required"`
	Permissions []Permission `json:"permissions" validate:"dive,enum"`
}

func (e Employee) RecordID() ID { return e.ID }

// Has reports whether the employee holds perm.
func (e Employee) Has(perm Permission) bool {
	for _, p := range e.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// Toggled returns the permission list with perm added when absent or removed
// when present. The receiver is not modified.
func (e Employee) Toggled(perm Permission) []Permission {
	out := make([]Permission, 0, len(e.Permissions)+1)
	found := false
	for _, p := range e.Permissions {
		if p == perm {
			found = true
			continue
		}
		out = append(out, p)
	}
	if !found {
		out = append(out, perm)
	}
	return out
}

type Payment struct {
	ID       ID      `json:"id,omitempty"`
	Property string  `json:"property"`
	Tenant   string  `json:"tenant" validate:"required"`
	Amount   float64 `json:"amount" validate:"gt=0"`
	Type     string  `json:"type" validate:"omitempty,oneof='Bank Transfer' Card Cash"`
	Reviewed bool    `json:"reviewed"`
}

func (p Payment) RecordID() ID { return p.ID }

type Query struct {
	ID     ID          `json:"id,omitempty"`
	Tenant string      `json:"tenant" validate:"required"`
	Issue  string      `json:"issue" validate:"required"`
	Status QueryStatus `json:"status" validate:"enum"`
}

func (q Query) RecordID() ID { return q.ID }

type Task struct {
	ID    ID     `json:"id,omitempty"`
	Title string `json:"title" validate:"required"`
	Done  bool   `json:"done"`
}

func (t Task) RecordID() ID { return t.ID }

// Partial updates. Nil fields are left out of the PATCH body.

type PropertyPatch struct {
	Name     *string  `json:"name,omitempty"`
	District *string  `json:"district,omitempty"`
	Rooms    *int     `json:"rooms,omitempty"`
	Rent     *float64 `json:"rent,omitempty"`
}

type EmployeePatch struct {
	Name        *string      `json:"name,omitempty"`
	Role        *string      `json:"role,omitempty"`
	Permissions *[]Permission `json:"permissions,omitempty"`
}

type PaymentPatch struct {
	Reviewed *bool    `json:"reviewed,omitempty"`
	Amount   *float64 `json:"amount,omitempty"`
	Type     *string  `json:"type,omitempty"`
}

type QueryPatch struct {
	Status *QueryStatus `json:"status,omitempty"`
	Issue  *string      `json:"issue,omitempty"`
}

type TaskPatch struct {
	Title *string `json:"title,omitempty"`
	Done  *bool   `json:"done,omitempty"`
}
