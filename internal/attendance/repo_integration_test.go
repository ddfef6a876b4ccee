//go:build integration

package attendance_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"attendly/internal/attendance"
	"attendly/internal/store"
)

func startPostgres(t *testing.T) *attendance.PostgresRepository {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg, err := postgres.RunContainer(ctx,
		tc.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("attendly"),
		postgres.WithUsername("attendly"),
		postgres.WithPassword("attendly"),
		tc.WithWaitStrategy(wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).WithStartupTimeout(time.Minute)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = pg.Terminate(ctx)
	})

	uri, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	db, err := store.NewDB(ctx, uri, 10*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, store.Migrate(db.Client))

	return attendance.NewPostgresRepository(db.Client)
}

func day(d int) time.Time { return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC) }

func TestPostgresRepository(t *testing.T) {
	repo := startPostgres(t)
	svc := attendance.NewService(repo, attendance.Options{})
	ctx := context.Background()

	teacher, err := svc.RegisterTeacher(ctx, attendance.NewTeacher{Name: "Ada", Email: "ada@school.test", Password: "secret1"})
	require.NoError(t, err)
	_, err = svc.RegisterTeacher(ctx, attendance.NewTeacher{Name: "Ada", Email: "ADA@school.test", Password: "secret1"})
	assert.True(t, attendance.IsConflict(err))

	_, err = svc.CreateCourse(ctx, teacher.ID, "Intro", "CS101")
	require.NoError(t, err)
	course, err := svc.EnrollStudents(ctx, "CS101", []string{"S2", "S1", "S3"})
	require.NoError(t, err)
	assert.Equal(t, []string{"S1", "S2", "S3"}, course.Students)

	t.Run("mark unions", func(t *testing.T) {
		rec, created, err := svc.Mark(ctx, "CS101", day(1), []string{"S1", "S2"})
		require.NoError(t, err)
		assert.True(t, created)
		rec, created, err = svc.Mark(ctx, "CS101", day(1), []string{"S3", "X9"})
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, []string{"S1", "S2", "S3"}, rec.Present)
		assert.Equal(t, "2024-03-01", rec.Date())
	})

	t.Run("replace and delete", func(t *testing.T) {
		rec, err := svc.Replace(ctx, "CS101", day(1), []attendance.StudentStatus{
			{StudentID: "S1", Present: true},
			{StudentID: "S2", Present: false},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"S1"}, rec.Present)

		_, err = svc.Replace(ctx, "CS101", day(9), []attendance.StudentStatus{{StudentID: "S1", Present: true}})
		assert.True(t, attendance.IsNotFound(err))

		_, _, err = svc.Mark(ctx, "CS101", day(2), []string{"S1"})
		require.NoError(t, err)
		require.NoError(t, svc.Delete(ctx, "CS101", day(2)))
		require.NoError(t, svc.Delete(ctx, "CS101", day(2)))
		exists, err := svc.ExistsForDay(ctx, "CS101", day(2).Add(13*time.Hour))
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("concurrent marks on one day", func(t *testing.T) {
		var wg sync.WaitGroup
		for _, roll := range []string{"S1", "S2", "S3"} {
			for i := 0; i < 5; i++ {
				wg.Add(1)
				go func(roll string) {
					defer wg.Done()
					_, _, err := svc.Mark(ctx, "CS101", day(5), []string{roll})
					assert.NoError(t, err)
				}(roll)
			}
		}
		wg.Wait()

		students, err := svc.DayAttendance(ctx, "CS101", day(5))
		require.NoError(t, err)
		for _, s := range students {
			assert.True(t, s.Present, s.StudentID)
		}
	})

	t.Run("summary keeps creation order", func(t *testing.T) {
		summary, err := svc.Summary(ctx, "CS101")
		require.NoError(t, err)
		var dates []string
		for _, d := range summary {
			dates = append(dates, d.Date)
		}
		assert.Equal(t, []string{"2024-03-01", "2024-03-05"}, dates)
	})

	t.Run("student side of enrollment", func(t *testing.T) {
		st, err := svc.RegisterStudent(ctx, attendance.NewStudent{Roll: "S1", Password: "pass123"})
		require.NoError(t, err)
		assert.Equal(t, []string{"CS101"}, st.Courses)
		_, err = svc.RegisterStudent(ctx, attendance.NewStudent{Roll: "S1", Password: "pass123"})
		assert.True(t, attendance.IsConflict(err))

		courses, err := svc.CoursesForStudent(ctx, "S3")
		require.NoError(t, err)
		require.Len(t, courses, 1)
		assert.Equal(t, "CS101", courses[0].Code)
	})

	t.Run("unknown course", func(t *testing.T) {
		_, _, err := svc.Mark(ctx, "NOPE", day(1), []string{"S1"})
		assert.True(t, attendance.IsNotFound(err))
		_, err = svc.EnrollStudents(ctx, "NOPE", []string{"S1"})
		assert.True(t, attendance.IsNotFound(err), fmt.Sprint(err))
	})
}
