package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in     string
		want   IssueStatus
		wantOK bool
	}{
		{in: "pending", want: StatusPending, wantOK: true},
		{in: "assigned", want: StatusAssigned, wantOK: true},
		{in: "in_progress", want: StatusInProgress, wantOK: true},
		{in: "In-Progress", want: StatusInProgress, wantOK: true},
		{in: "resolved", want: StatusResolved, wantOK: true},
		{in: "open", want: StatusPending, wantOK: true},
		{in: " CLOSED ", want: StatusResolved, wantOK: true},
		{in: "done", wantOK: false},
		{in: "", wantOK: false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.in, func(t *testing.T) {
			t.Parallel()
			got, ok := ParseStatus(tc.in)
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCanTransitionOnlyForward(t *testing.T) {
	t.Parallel()

	allowed := map[[2]IssueStatus]bool{
		{StatusPending, StatusAssigned}:    true,
		{StatusAssigned, StatusInProgress}: true,
		{StatusInProgress, StatusResolved}: true,
	}

	for _, from := range AllStatuses {
		for _, to := range AllStatuses {
			assert.Equal(t, allowed[[2]IssueStatus{from, to}], CanTransition(from, to), "%s -> %s", from, to)
		}
	}
	assert.Equal(t, IssueStatus(""), StatusResolved.Next())
}

func TestParseCategoryAndDefaultDepartment(t *testing.T) {
	t.Parallel()

	c, ok := ParseCategory("Pothole")
	assert.True(t, ok)
	assert.Equal(t, DeptPublicWorks, c.DefaultDepartment())

	c, ok = ParseCategory("traffic")
	assert.True(t, ok)
	assert.Equal(t, DeptTransport, c.DefaultDepartment())

	c, ok = ParseCategory("parks_and_recreation")
	assert.True(t, ok)
	assert.Equal(t, DeptParks, c.DefaultDepartment())

	_, ok = ParseCategory("noise")
	assert.False(t, ok)
}

func TestParsePriorityDefaultsToMedium(t *testing.T) {
	t.Parallel()

	p, ok := ParsePriority("")
	assert.True(t, ok)
	assert.Equal(t, PriorityMedium, p)

	p, ok = ParsePriority("HIGH")
	assert.True(t, ok)
	assert.Equal(t, PriorityHigh, p)

	_, ok = ParsePriority("urgent")
	assert.False(t, ok)
}

func TestParseCoordinates(t *testing.T) {
	t.Parallel()

	lat, lng, ok := ParseCoordinates("52.5200, 13.4050")
	assert.True(t, ok)
	assert.InDelta(t, 52.52, lat, 1e-9)
	assert.InDelta(t, 13.405, lng, 1e-9)

	_, _, ok = ParseCoordinates("Main St 12, Springfield")
	assert.False(t, ok)

	_, _, ok = ParseCoordinates("91,10")
	assert.False(t, ok)

	_, _, ok = ParseCoordinates("")
	assert.False(t, ok)

	for _, addr := range []string{"NaN,NaN", "nan, 10", "10, NaN", "Inf,0", "0,-inf"} {
		_, _, ok = ParseCoordinates(addr)
		assert.False(t, ok, addr)
	}
}

func TestStatusCountsAdd(t *testing.T) {
	t.Parallel()

	var sc StatusCounts
	sc.Add(StatusPending, 3)
	sc.Add(StatusResolved, 2)
	sc.Add(StatusInProgress, 1)

	assert.Equal(t, int64(6), sc.Total)
	assert.Equal(t, int64(3), sc.Pending)
	assert.Equal(t, int64(0), sc.Assigned)
	assert.Equal(t, int64(1), sc.InProgress)
	assert.Equal(t, int64(2), sc.Resolved)
}
