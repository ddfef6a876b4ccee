package attendance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttendanceMatrix(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()
	newCourse(t, svc, repo, "CS101", "A", "B")

	_, err := svc.AttendanceMatrix(ctx, "CS101")
	assert.True(t, IsNotFound(err), "no records, nothing to report")

	// Marked out of order to check date sorting.
	_, _, err = svc.Mark(ctx, "CS101", date(2024, 3, 2), []string{"A", "B"})
	require.NoError(t, err)
	_, _, err = svc.Mark(ctx, "CS101", date(2024, 3, 1), []string{"A"})
	require.NoError(t, err)

	m, err := svc.AttendanceMatrix(ctx, "CS101")
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-03-01", "2024-03-02"}, m.Dates)
	assert.Equal(t, []MatrixRow{
		{StudentID: "A", Present: []bool{true, true}, Percentage: 100},
		{StudentID: "B", Present: []bool{false, true}, Percentage: 50},
	}, m.Rows)

	assert.Equal(t, []string{"Student ID", "2024-03-01", "2024-03-02", "Attendance %"}, m.Header())
	assert.Equal(t, [][]string{
		{"A", "Y", "Y", "100.00%"},
		{"B", "N", "Y", "50.00%"},
	}, m.Values())
}

func TestAttendanceMatrix_AbsentStudentStillListed(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()
	newCourse(t, svc, repo, "CS101", "A", "B")
	_, _, err := svc.Mark(ctx, "CS101", date(2024, 1, 1), []string{"A"})
	require.NoError(t, err)

	m, err := svc.AttendanceMatrix(ctx, "CS101")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"A", "Y", "100.00%"}, {"B", "N", "0.00%"}}, m.Values())
}

func TestSummaryKeepsCreationOrder(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()
	newCourse(t, svc, repo, "CS101", "A", "B", "C")

	_, _, err := svc.Mark(ctx, "CS101", date(2024, 3, 5), []string{"A"})
	require.NoError(t, err)
	_, _, err = svc.Mark(ctx, "CS101", date(2024, 3, 1), []string{"A", "B", "C"})
	require.NoError(t, err)

	summary, err := svc.Summary(ctx, "CS101")
	require.NoError(t, err)
	assert.Equal(t, []DailyCount{
		{Date: "2024-03-05", Present: 1},
		{Date: "2024-03-01", Present: 3},
	}, summary)

	agg, err := svc.CourseAggregate(ctx, "CS101")
	require.NoError(t, err)
	assert.Equal(t, 2, agg.TotalDays)
	assert.Equal(t, 66.67, agg.AverageAttendancePercentage)
}

func TestAggregate(t *testing.T) {
	day1 := Record{Day: date(2024, 3, 1), Present: []string{"A"}}
	day2 := Record{Day: date(2024, 3, 2), Present: []string{"A", "B"}}

	tests := []struct {
		name    string
		course  Course
		records []Record
		want    Aggregate
	}{
		{"no records", Course{Students: []string{"A", "B"}}, nil, Aggregate{}},
		{"no students", Course{}, []Record{day1}, Aggregate{TotalDays: 1}},
		{"half then full", Course{Students: []string{"A", "B"}}, []Record{day1, day2}, Aggregate{AverageAttendancePercentage: 75, TotalDays: 2}},
		{"one of three", Course{Students: []string{"A", "B", "C"}}, []Record{day1}, Aggregate{AverageAttendancePercentage: 33.33, TotalDays: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, aggregate(tt.course, tt.records))
		})
	}
}

func TestDayAttendance(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()
	newCourse(t, svc, repo, "CS101", "A", "B")

	_, err := svc.DayAttendance(ctx, "CS101", date(2024, 3, 1))
	assert.True(t, IsNotFound(err))

	_, _, err = svc.Mark(ctx, "CS101", date(2024, 3, 1), []string{"B"})
	require.NoError(t, err)
	got, err := svc.DayAttendance(ctx, "CS101", date(2024, 3, 1))
	require.NoError(t, err)
	assert.Equal(t, []StudentPresence{{StudentID: "A"}, {StudentID: "B", Present: true}}, got)
}

func TestStudentHistory(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()
	newCourse(t, svc, repo, "CS101", "A", "B")

	h, err := svc.StudentHistory(ctx, "CS101", "A")
	require.NoError(t, err)
	assert.Empty(t, h.Entries)
	assert.Zero(t, h.Percentage)

	_, _, err = svc.Mark(ctx, "CS101", date(2024, 3, 3), []string{"A"})
	require.NoError(t, err)
	_, _, err = svc.Mark(ctx, "CS101", date(2024, 3, 1), []string{"B"})
	require.NoError(t, err)
	_, _, err = svc.Mark(ctx, "CS101", date(2024, 3, 2), []string{"A", "B"})
	require.NoError(t, err)

	h, err = svc.StudentHistory(ctx, "CS101", "A")
	require.NoError(t, err)
	assert.Equal(t, []HistoryEntry{
		{Date: "2024-03-01", Present: false},
		{Date: "2024-03-02", Present: true},
		{Date: "2024-03-03", Present: true},
	}, h.Entries)
	assert.Equal(t, 2, h.DaysPresent)
	assert.Equal(t, 66.67, h.Percentage)

	_, err = svc.StudentHistory(ctx, "CS101", "Z")
	assert.True(t, IsNotFound(err))
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "0.00%", FormatPercent(0))
	assert.Equal(t, "66.67%", FormatPercent(percent(2, 3)))
	assert.Equal(t, "100.00%", FormatPercent(100))
}
