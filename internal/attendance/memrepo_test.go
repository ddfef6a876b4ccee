package attendance

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededRepo(t *testing.T) *MemoryRepository {
	t.Helper()
	ctx := context.Background()
	repo := NewMemoryRepository()
	_, err := repo.CreateTeacher(ctx, Teacher{ID: "t1", Email: "t1@school.test"})
	require.NoError(t, err)
	_, err = repo.CreateCourse(ctx, Course{Code: "CS101", Name: "Intro", TeacherID: "t1"})
	require.NoError(t, err)
	return repo
}

func TestMemoryRepository_MergeRecord(t *testing.T) {
	repo := seededRepo(t)
	ctx := context.Background()

	rec, created, err := repo.MergeRecord(ctx, "CS101", date(2024, 3, 1), []string{"B", "A"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, []string{"A", "B"}, rec.Present)
	assert.Equal(t, int64(1), rec.Seq)

	rec, created, err = repo.MergeRecord(ctx, "CS101", date(2024, 3, 1), []string{"C", "A"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, []string{"A", "B", "C"}, rec.Present)

	_, _, err = repo.MergeRecord(ctx, "NOPE", date(2024, 3, 1), []string{"A"})
	assert.True(t, IsNotFound(err))
}

func TestMemoryRepository_ReturnsCopies(t *testing.T) {
	repo := seededRepo(t)
	ctx := context.Background()

	rec, _, err := repo.MergeRecord(ctx, "CS101", date(2024, 3, 1), []string{"A"})
	require.NoError(t, err)
	rec.Present[0] = "mutated"

	again, err := repo.RecordBetween(ctx, "CS101", date(2024, 3, 1), date(2024, 3, 2))
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, again.Present)
}

func TestMemoryRepository_RecordsInCreationOrder(t *testing.T) {
	repo := seededRepo(t)
	ctx := context.Background()
	for _, d := range []int{9, 3, 6} {
		_, _, err := repo.MergeRecord(ctx, "CS101", date(2024, 3, d), []string{"A"})
		require.NoError(t, err)
	}
	deleted, err := repo.DeleteRecord(ctx, "CS101", date(2024, 3, 3))
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = repo.DeleteRecord(ctx, "CS101", date(2024, 3, 3))
	require.NoError(t, err)
	assert.False(t, deleted)

	records, err := repo.Records(ctx, "CS101")
	require.NoError(t, err)
	var dates []string
	for _, r := range records {
		dates = append(dates, r.Date())
	}
	assert.Equal(t, []string{"2024-03-09", "2024-03-06"}, dates)
}

func TestMemoryRepository_ParallelMergesOnManyDays(t *testing.T) {
	repo := seededRepo(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for day := 1; day <= 5; day++ {
		for s := 0; s < 20; s++ {
			wg.Add(1)
			go func(day, s int) {
				defer wg.Done()
				_, _, err := repo.MergeRecord(ctx, "CS101", date(2024, 3, day), []string{fmt.Sprintf("S%02d", s)})
				assert.NoError(t, err)
			}(day, s)
		}
	}
	wg.Wait()

	records, err := repo.Records(ctx, "CS101")
	require.NoError(t, err)
	require.Len(t, records, 5)
	for _, r := range records {
		assert.Len(t, r.Present, 20, r.Date())
	}
}

func TestMemoryRepository_CanceledContext(t *testing.T) {
	repo := seededRepo(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	_, err := repo.CourseByCode(ctx, "CS101")
	assert.Equal(t, KindStoreUnavailable, KindOf(err))
}
