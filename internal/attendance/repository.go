package attendance

import (
	"context"
	"time"
)

// Repository is the persistence contract of the attendance service.
//
// Implementations classify their failures with the Kind taxonomy: a missing
// row is KindNotFound, a uniqueness violation is KindConflict and any
// transport or timeout failure is KindStoreUnavailable.
type Repository interface {
	CreateTeacher(ctx context.Context, t Teacher) (Teacher, error)
	TeacherByEmail(ctx context.Context, email string) (Teacher, error)
	TeacherByID(ctx context.Context, id string) (Teacher, error)

	// RegisterStudent creates the student, or claims a roll that was
	// created implicitly by enrollment. Claiming a registered roll is a conflict.
	RegisterStudent(ctx context.Context, s Student) (Student, error)
	StudentByRoll(ctx context.Context, roll string) (Student, error)

	CreateCourse(ctx context.Context, c Course) (Course, error)
	CourseByCode(ctx context.Context, code string) (Course, error)
	CoursesByTeacher(ctx context.Context, teacherID string) ([]Course, error)
	CoursesByStudent(ctx context.Context, roll string) ([]Course, error)
	// Enroll adds rolls to the course and the course to each student,
	// creating unregistered students as needed.
	Enroll(ctx context.Context, code string, rolls []string) (Course, error)

	// MergeRecord finds or creates the record for (code, day) and unions
	// present into it atomically. The bool reports whether it was created.
	MergeRecord(ctx context.Context, code string, day time.Time, present []string) (Record, bool, error)
	// ReplaceRecord overwrites the present set of an existing record.
	ReplaceRecord(ctx context.Context, code string, day time.Time, present []string) (Record, error)
	// DeleteRecord removes the record for (code, day) and reports whether one existed.
	DeleteRecord(ctx context.Context, code string, day time.Time) (bool, error)
	// RecordBetween returns the first record of the course with from <= day < to.
	RecordBetween(ctx context.Context, code string, from, to time.Time) (Record, error)
	// Records lists the course's records in creation order.
	Records(ctx context.Context, code string) ([]Record, error)
}
