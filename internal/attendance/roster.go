package attendance

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// CreateCourse registers a course owned by teacherID. Codes are unique.
func (s *Service) CreateCourse(ctx context.Context, teacherID, name, code string) (Course, error) {
	const op = "attendance.CreateCourse"
	name, code = strings.TrimSpace(name), strings.TrimSpace(code)
	if name == "" || code == "" {
		return Course{}, Errorf(KindInvalidInput, op, "course name and code are required")
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	c, err := s.repo.CreateCourse(sctx, Course{Code: code, Name: name, TeacherID: teacherID})
	if err != nil {
		return Course{}, s.fail(op, code, err)
	}
	s.log.Info("course created", zap.String("course", code), zap.String("teacher", teacherID))
	return c, nil
}

// CoursesForTeacher returns the teacher and the courses they own.
func (s *Service) CoursesForTeacher(ctx context.Context, teacherID string) (Teacher, []Course, error) {
	const op = "attendance.CoursesForTeacher"
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	t, err := s.repo.TeacherByID(sctx, teacherID)
	if err != nil {
		return Teacher{}, nil, s.fail(op, "", err)
	}
	courses, err := s.repo.CoursesByTeacher(sctx, teacherID)
	if err != nil {
		return Teacher{}, nil, s.fail(op, "", err)
	}
	return t, courses, nil
}

// OwnedCourse loads the course and checks that teacherID owns it.
func (s *Service) OwnedCourse(ctx context.Context, teacherID, code string) (Course, error) {
	const op = "attendance.OwnedCourse"
	c, err := s.course(ctx, op, code)
	if err != nil {
		return Course{}, err
	}
	if c.TeacherID != teacherID {
		return Course{}, Errorf(KindForbidden, op, "course %s belongs to another teacher", code)
	}
	return c, nil
}

// EnrollStudents adds rolls to the course. Enrollment is idempotent and keeps
// both sides of the course/student relation in step.
func (s *Service) EnrollStudents(ctx context.Context, code string, rolls []string) (Course, error) {
	const op = "attendance.EnrollStudents"
	clean := make([]string, 0, len(rolls))
	for _, r := range rolls {
		if r = strings.TrimSpace(r); r != "" {
			clean = append(clean, r)
		}
	}
	if len(clean) == 0 {
		return Course{}, Errorf(KindInvalidInput, op, "no student rolls given")
	}
	clean = union(nil, clean)

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	c, err := s.repo.Enroll(sctx, code, clean)
	if err != nil {
		return Course{}, s.fail(op, code, err)
	}
	s.log.Info("students enrolled", zap.String("course", code), zap.Int("requested", len(clean)), zap.Int("enrolled", len(c.Students)))
	s.changed(ctx, code)
	return c, nil
}

// CoursesForStudent lists the courses a student is enrolled in.
func (s *Service) CoursesForStudent(ctx context.Context, roll string) ([]Course, error) {
	const op = "attendance.CoursesForStudent"
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	courses, err := s.repo.CoursesByStudent(sctx, roll)
	if err != nil {
		return nil, s.fail(op, "", err)
	}
	return courses, nil
}
