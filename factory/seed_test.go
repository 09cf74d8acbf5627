package factory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/leave/store"
)

func TestParseFile_YAML(t *testing.T) {
	doc, err := ParseFile("testdata/seed.yaml")
	require.NoError(t, err)

	require.Len(t, doc.Policies, 3)
	assert.Equal(t, "12", doc.Policies[0].AnnualQuota)
	assert.True(t, doc.Policies[1].CarryForward)
	require.Len(t, doc.Holidays, 2)
	assert.Equal(t, "2026-01-26", doc.Holidays[0].Date)
	assert.Len(t, doc.Employees, 5)
}

func TestParse_JSON(t *testing.T) {
	doc, err := Parse([]byte(`{
		"policies": [{"leave_type": "wfh", "name": "Work From Home", "annual_quota": 24}],
		"holidays": [{"date": "2026-08-15", "name": "Independence Day", "kind": "national"}]
	}`))
	require.NoError(t, err)
	require.Len(t, doc.Policies, 1)

	p, err := doc.Policies[0].Policy()
	require.NoError(t, err)
	assert.Equal(t, leave.LeaveWorkFromHome, p.LeaveType)
	assert.Equal(t, leave.NewDays(24), p.AnnualQuota)
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte("policies:\n  - leave_type: casual\n    quota: 12\n"))
	assert.Error(t, err, "unknown keys are rejected")

	doc, err := Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, doc.Policies)

	_, err = PolicySpec{LeaveType: "casual", AnnualQuota: "1.25"}.Policy()
	assert.ErrorIs(t, err, leave.ErrValidation)

	_, err = HolidaySpec{Date: "26/01/2026", Name: "Republic Day"}.Holiday()
	assert.ErrorIs(t, err, leave.ErrValidation)
}

func TestApply(t *testing.T) {
	// GIVEN: A seed listing reports before their managers
	// WHEN: Applying it twice
	// THEN: Everything is added once, balances are opened, and the second
	//       run only skips

	ctx := context.Background()
	eng := leave.NewEngine(store.NewMemory(), leave.DefaultOptions())
	doc, err := ParseFile("testdata/seed.yaml")
	require.NoError(t, err)

	sum, err := Apply(ctx, eng, leave.SystemActor, doc)
	require.NoError(t, err)
	assert.Equal(t, Summary{PoliciesAdded: 3, HolidaysAdded: 2, EmployeesAdded: 5}, *sum)

	emp, err := eng.Directory.Get(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, "tl-1", emp.TeamLeadID)
	assert.Equal(t, leave.NewDays(12), emp.LeaveBalance[leave.LeaveCasual])
	assert.Equal(t, leave.NewDays(0), emp.LeaveBalance[leave.LeaveCompOff])

	holi, err := eng.Calendar.Year(ctx, 2026)
	require.NoError(t, err)
	require.Len(t, holi, 2)
	assert.Equal(t, leave.HolidayOptional, holi[1].Kind)

	again, err := Apply(ctx, eng, leave.SystemActor, doc)
	require.NoError(t, err)
	assert.Equal(t, Summary{Skipped: 10}, *again)
}

func TestManagersFirst(t *testing.T) {
	ordered, err := managersFirst([]EmployeeSpec{
		{ID: "a", ManagerID: "b"},
		{ID: "b", ManagerID: "c", TeamLeadID: "outside"},
		{ID: "c"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, []string{ordered[0].ID, ordered[1].ID, ordered[2].ID})

	_, err = managersFirst([]EmployeeSpec{{ID: "a", ManagerID: "b"}, {ID: "b", ManagerID: "a"}})
	assert.ErrorContains(t, err, "reporting cycle")

	_, err = managersFirst([]EmployeeSpec{{Name: "No Id"}})
	assert.Error(t, err)
}

func TestApplyDefaults(t *testing.T) {
	// GIVEN: A store that already defines casual leave
	// WHEN: Applying the defaults twice
	// THEN: The four missing types are added once and casual keeps its quota

	ctx := context.Background()
	eng := leave.NewEngine(store.NewMemory(), leave.DefaultOptions())
	_, err := eng.Policies.Add(ctx, leave.SystemActor, leave.Policy{LeaveType: leave.LeaveCasual, Name: "Casual", AnnualQuota: leave.NewDays(10)})
	require.NoError(t, err)

	added, err := ApplyDefaults(ctx, eng, leave.SystemActor)
	require.NoError(t, err)
	assert.Equal(t, 4, added)

	added, err = ApplyDefaults(ctx, eng, leave.SystemActor)
	require.NoError(t, err)
	assert.Zero(t, added)

	list, err := eng.Policies.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 5)
	casual, err := eng.Policies.GetByType(ctx, leave.LeaveCasual)
	require.NoError(t, err)
	assert.Equal(t, leave.NewDays(10), casual.AnnualQuota)
}
