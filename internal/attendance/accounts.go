package attendance

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"attendly/internal/auth"
)

// NewTeacher is the input of RegisterTeacher.
type NewTeacher struct {
	Name       string
	Email      string
	Department string
	Phone      string
	Password   string
}

// NewStudent is the input of RegisterStudent.
type NewStudent struct {
	Roll     string
	Name     string
	Password string
}

const errBadCredentials = "invalid credentials"

// RegisterTeacher creates a teacher account with a hashed password.
func (s *Service) RegisterTeacher(ctx context.Context, in NewTeacher) (Teacher, error) {
	const op = "attendance.RegisterTeacher"
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	if in.Email == "" || in.Name == "" || in.Password == "" {
		return Teacher{}, Errorf(KindInvalidInput, op, "name, email and password are required")
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return Teacher{}, E(KindInvalidInput, op, err)
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	t, err := s.repo.CreateTeacher(sctx, Teacher{
		Name:         in.Name,
		Email:        in.Email,
		Department:   strings.TrimSpace(in.Department),
		Phone:        strings.TrimSpace(in.Phone),
		PasswordHash: hash,
	})
	if err != nil {
		return Teacher{}, s.fail(op, "", err)
	}
	s.log.Info("teacher registered", zap.String("teacher", t.ID))
	return t, nil
}

// AuthenticateTeacher checks an email/password pair.
func (s *Service) AuthenticateTeacher(ctx context.Context, email, password string) (Teacher, error) {
	const op = "attendance.AuthenticateTeacher"
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	t, err := s.repo.TeacherByEmail(sctx, strings.ToLower(strings.TrimSpace(email)))
	if IsNotFound(err) {
		return Teacher{}, Errorf(KindUnauthenticated, op, errBadCredentials)
	}
	if err != nil {
		return Teacher{}, s.fail(op, "", err)
	}
	if !auth.CheckPassword(t.PasswordHash, password) {
		return Teacher{}, Errorf(KindUnauthenticated, op, errBadCredentials)
	}
	return t, nil
}

// RegisterStudent creates a student account, or claims a roll that a teacher
// already enrolled.
func (s *Service) RegisterStudent(ctx context.Context, in NewStudent) (Student, error) {
	const op = "attendance.RegisterStudent"
	in.Roll = strings.TrimSpace(in.Roll)
	if in.Roll == "" || in.Password == "" {
		return Student{}, Errorf(KindInvalidInput, op, "roll and password are required")
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return Student{}, E(KindInvalidInput, op, err)
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	st, err := s.repo.RegisterStudent(sctx, Student{
		Roll:         in.Roll,
		Name:         strings.TrimSpace(in.Name),
		PasswordHash: hash,
	})
	if err != nil {
		return Student{}, s.fail(op, "", err)
	}
	s.log.Info("student registered", zap.String("student", st.Roll))
	return st, nil
}

// AuthenticateStudent checks a roll/password pair.
func (s *Service) AuthenticateStudent(ctx context.Context, roll, password string) (Student, error) {
	const op = "attendance.AuthenticateStudent"
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	st, err := s.repo.StudentByRoll(sctx, strings.TrimSpace(roll))
	if IsNotFound(err) {
		return Student{}, Errorf(KindUnauthenticated, op, errBadCredentials)
	}
	if err != nil {
		return Student{}, s.fail(op, "", err)
	}
	if !st.Registered() || !auth.CheckPassword(st.PasswordHash, password) {
		return Student{}, Errorf(KindUnauthenticated, op, errBadCredentials)
	}
	return st, nil
}
