package payload

import (
	"context"
	"errors"
	"testing"

	"github.com/phillip-england/payrollsync/internal/payroll"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCreator struct {
	sent []Timesheet
	fail map[string]error
}

func (f *fakeCreator) CreateTimesheet(_ context.Context, t Timesheet) (string, error) {
	if err := f.fail[t.EmployeeID]; err != nil {
		return "", err
	}
	f.sent = append(f.sent, t)
	return "ts-" + t.EmployeeID, nil
}

func submitData(t *testing.T) *payroll.PayrollData {
	t.Helper()
	bob, err := payroll.NewEmployeeTimesheet("Bob Builder", []payroll.DailyEntry{
		entry(t, march(6), payroll.UnknownRegion, 8, payroll.Regular, nil),
	}, march(10))
	require.NoError(t, err)
	carl, err := payroll.NewEmployeeTimesheet("Carl Jones", []payroll.DailyEntry{
		entry(t, march(6), "North", 8, payroll.Regular, nil),
	}, march(10))
	require.NoError(t, err)
	dana, err := payroll.NewEmployeeTimesheet("Dana Scully", []payroll.DailyEntry{
		entry(t, march(7), "North", 6, payroll.Regular, nil),
	}, march(10))
	require.NoError(t, err)

	data, err := payroll.NewPayrollData(march(10), []*payroll.EmployeeTimesheet{
		janeTimesheet(t),
		bob.WithIdentity("emp-2", ""),
		carl,
		dana.WithIdentity("emp-4", ""),
	})
	require.NoError(t, err)
	return data
}

func TestSubmitRecordsEveryOutcome(t *testing.T) {
	api := &fakeCreator{fail: map[string]error{"emp-4": errors.New("status 400: unknown employee")}}
	outcomes, err := NewBuilder().Submit(context.Background(), submitData(t), fullMappings(), api)
	require.NoError(t, err)

	require.Len(t, outcomes, 4)
	assert.Equal(t, Outcome{Employee: "Bob Builder", Status: OutcomeSkipped, Error: "every entry is in an unknown region"}, outcomes[0])
	assert.Equal(t, Outcome{Employee: "Jane Citizen", EmployeeID: "emp-1", TimesheetID: "ts-emp-1", Status: OutcomeCreated}, outcomes[1])
	assert.Equal(t, "Carl Jones", outcomes[2].Employee)
	assert.Equal(t, OutcomeFailed, outcomes[2].Status)
	assert.Contains(t, outcomes[2].Error, "missing an external employee ID")
	assert.Equal(t, OutcomeFailed, outcomes[3].Status)
	assert.Contains(t, outcomes[3].Error, "unknown employee")

	require.Len(t, api.sent, 1)
	assert.Equal(t, "emp-1", api.sent[0].EmployeeID)
	assert.Equal(t, map[string]int{OutcomeCreated: 1, OutcomeFailed: 2, OutcomeSkipped: 1}, Counts(outcomes))
}

func TestSubmitRejectsInvalidRequestsBeforeSending(t *testing.T) {
	api := &fakeCreator{}
	b := NewBuilder()
	b.StrictIDs = true
	outcomes, err := b.Submit(context.Background(), submitData(t), fullMappings(), api)
	require.NoError(t, err)
	assert.Empty(t, api.sent)
	assert.Contains(t, outcomes[1].Error, "EmployeeID must be a GUID")
}

func TestSubmitStopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	api := &fakeCreator{}
	outcomes, err := NewBuilder().Submit(ctx, submitData(t), fullMappings(), api)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, api.sent)
	require.Len(t, outcomes, 1)
	assert.Equal(t, OutcomeSkipped, outcomes[0].Status)
}
