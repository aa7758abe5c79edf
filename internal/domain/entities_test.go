package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brandenbed/internal/domain"
)

func TestIDJSON(t *testing.T) {
	var p domain.Payment
	require.NoError(t, json.Unmarshal([]byte(`{"id":"TX-1001","amount":950}`), &p))
	assert.Equal(t, domain.ID("TX-1001"), p.ID)

	var q domain.Property
	require.NoError(t, json.Unmarshal([]byte(`{"id":3,"name":"Loft"}`), &q))
	assert.Equal(t, domain.ID("3"), q.ID)

	b, err := json.Marshal(q)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"id":3`)

	b, err = json.Marshal(domain.Task{Title: "x"})
	require.NoError(t, err)
	assert.NotContains(t, string(b), `"id"`, "empty id is left for the store to assign")
}

func TestIDJSON_NonCanonicalIntegersStayStrings(t *testing.T) {
	for _, id := range []domain.ID{"007", "+5", "-0", "00"} {
		b, err := json.Marshal(domain.Payment{ID: id, Tenant: "Lena", Amount: 950})
		require.NoError(t, err, "id %q", id)
		assert.Contains(t, string(b), `"id":"`+string(id)+`"`)

		var back domain.Payment
		require.NoError(t, json.Unmarshal(b, &back))
		assert.Equal(t, id, back.ID)
	}

	b, err := json.Marshal(domain.Payment{ID: "-5"})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"id":-5`)
}

func TestClosedEnums(t *testing.T) {
	var q domain.Query
	require.NoError(t, json.Unmarshal([]byte(`{"status":"In Progress"}`), &q))
	assert.Equal(t, domain.StatusInProgress, q.Status)

	err := json.Unmarshal([]byte(`{"status":"Closed"}`), &q)
	require.Error(t, err)

	var e domain.Employee
	err = json.Unmarshal([]byte(`{"permissions":["read","root"]}`), &e)
	require.Error(t, err)

	_, err = json.Marshal(domain.Query{Tenant: "a", Issue: "b", Status: "Closed"})
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	require.NoError(t, domain.Validate(domain.Property{Name: "Loft", District: "Mitte", Rooms: 1, Rent: 1000}))
	assert.ErrorIs(t, domain.Validate(domain.Property{District: "Mitte"}), domain.ErrInvalid)

	require.NoError(t, domain.Validate(domain.Payment{Tenant: "Lena", Amount: 950, Type: domain.PaymentCash}))
	require.NoError(t, domain.Validate(domain.Payment{Tenant: "Lena", Amount: 950, Type: domain.PaymentBankTransfer}))
	assert.ErrorIs(t, domain.Validate(domain.Payment{Tenant: "Lena", Amount: 950, Type: "Cheque"}), domain.ErrInvalid)
	assert.ErrorIs(t, domain.Validate(domain.Payment{Tenant: "Lena"}), domain.ErrInvalid)

	assert.ErrorIs(t, domain.Validate(domain.Query{Tenant: "a", Issue: "b"}), domain.ErrInvalid, "status is required to be one of the three")
	require.NoError(t, domain.Validate(domain.Query{Tenant: "a", Issue: "b", Status: domain.StatusResolved}))

	assert.ErrorIs(t, domain.Validate(domain.Employee{Name: "a", Role: "b", Permissions: []domain.Permission{"root"}}), domain.ErrInvalid)
	require.NoError(t, domain.Validate(domain.Employee{Name: "a", Role: "b"}))
}

func TestEmployeeToggled(t *testing.T) {
	e := domain.Employee{Permissions: []domain.Permission{domain.PermRead, domain.PermWrite}}

	assert.Equal(t, []domain.Permission{domain.PermRead}, e.Toggled(domain.PermWrite))
	assert.Equal(t, []domain.Permission{domain.PermRead, domain.PermWrite, domain.PermAdmin}, e.Toggled(domain.PermAdmin))
	assert.Len(t, e.Permissions, 2, "receiver unchanged")

	empty := domain.Employee{Permissions: []domain.Permission{domain.PermRead}}.Toggled(domain.PermRead)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
	assert.True(t, e.Has(domain.PermWrite))
	assert.False(t, e.Has(domain.PermAdmin))
}
