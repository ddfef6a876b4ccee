package attendance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccounts(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	teacher, err := svc.RegisterTeacher(ctx, NewTeacher{Name: "Ada", Email: "Ada@School.test", Department: "CS", Password: "secret1"})
	require.NoError(t, err)
	assert.NotEmpty(t, teacher.ID)
	assert.Equal(t, "ada@school.test", teacher.Email)
	assert.NotEqual(t, "secret1", teacher.PasswordHash)

	_, err = svc.RegisterTeacher(ctx, NewTeacher{Name: "Other", Email: "ada@school.test", Password: "secret2"})
	assert.True(t, IsConflict(err))

	got, err := svc.AuthenticateTeacher(ctx, "ADA@school.test", "secret1")
	require.NoError(t, err)
	assert.Equal(t, teacher.ID, got.ID)

	_, err = svc.AuthenticateTeacher(ctx, "ada@school.test", "wrong")
	assert.Equal(t, KindUnauthenticated, KindOf(err))
	_, err = svc.AuthenticateTeacher(ctx, "nobody@school.test", "secret1")
	assert.Equal(t, KindUnauthenticated, KindOf(err))
	assert.Equal(t, Message(err), errBadCredentials)
}

func TestStudentClaimsEnrolledRoll(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()
	newCourse(t, svc, repo, "CS101", "S1")

	_, err := svc.AuthenticateStudent(ctx, "S1", "anything")
	assert.Equal(t, KindUnauthenticated, KindOf(err), "unclaimed roll cannot log in")

	st, err := svc.RegisterStudent(ctx, NewStudent{Roll: "S1", Name: "Sam", Password: "pass123"})
	require.NoError(t, err)
	assert.Equal(t, []string{"CS101"}, st.Courses)

	_, err = svc.RegisterStudent(ctx, NewStudent{Roll: "S1", Password: "other12"})
	assert.True(t, IsConflict(err))

	st, err = svc.AuthenticateStudent(ctx, "S1", "pass123")
	require.NoError(t, err)
	assert.Equal(t, "Sam", st.Name)
}

func TestRoster(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()
	teacher, err := svc.RegisterTeacher(ctx, NewTeacher{Name: "Ada", Email: "ada@school.test", Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.CreateCourse(ctx, teacher.ID, " ", "CS101")
	assert.True(t, IsInvalidInput(err))

	course, err := svc.CreateCourse(ctx, teacher.ID, "Intro", "CS101")
	require.NoError(t, err)
	assert.Empty(t, course.Students)
	_, err = svc.CreateCourse(ctx, teacher.ID, "Again", "CS101")
	assert.True(t, IsConflict(err))

	_, err = svc.EnrollStudents(ctx, "CS101", []string{" ", ""})
	assert.True(t, IsInvalidInput(err))

	course, err = svc.EnrollStudents(ctx, "CS101", []string{"S2", "S1", "S2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"S1", "S2"}, course.Students)
	course, err = svc.EnrollStudents(ctx, "CS101", []string{"S1", "S3"})
	require.NoError(t, err)
	assert.Equal(t, []string{"S1", "S2", "S3"}, course.Students)

	_, err = svc.EnrollStudents(ctx, "NOPE", []string{"S1"})
	assert.True(t, IsNotFound(err))

	st, err := repo.StudentByRoll(ctx, "S3")
	require.NoError(t, err)
	assert.Equal(t, []string{"CS101"}, st.Courses)

	_, courses, err := svc.CoursesForTeacher(ctx, teacher.ID)
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, "CS101", courses[0].Code)

	mine, err := svc.CoursesForStudent(ctx, "S2")
	require.NoError(t, err)
	require.Len(t, mine, 1)

	_, err = svc.OwnedCourse(ctx, teacher.ID, "CS101")
	require.NoError(t, err)
	_, err = svc.OwnedCourse(ctx, "someone-else", "CS101")
	assert.Equal(t, KindForbidden, KindOf(err))
}
