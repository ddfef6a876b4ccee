package attendance

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pkg/errors"
)

// PostgresRepository persists attendance data in Postgres.
//
// One row per (course_code, day) is enforced by a unique constraint, and
// MergeRecord performs its union inside a single upsert, so concurrent marks
// for the same day cannot lose each other's presence.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a repo.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const (
	teacherColumns = `id, name, email, department, phone, password_hash, created_at`
	courseSelect   = `
		SELECT c.code, c.name, c.teacher_id, c.created_at,
		       COALESCE(array_agg(e.student_roll ORDER BY e.student_roll) FILTER (WHERE e.student_roll IS NOT NULL), '{}')
		FROM courses c
		LEFT JOIN enrollments e ON e.course_code = c.code`
	recordColumns = `id, seq, course_code, day, present, created_at, updated_at`
)

type scanner interface {
	Scan(dest ...any) error
}

// CreateTeacher inserts a teacher; duplicate emails are a conflict.
func (r *PostgresRepository) CreateTeacher(ctx context.Context, t Teacher) (Teacher, error) {
	const op = "postgres.CreateTeacher"
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO teachers (id, name, email, department, phone, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, t.ID, t.Name, t.Email, t.Department, t.Phone, t.PasswordHash)
	if err := row.Scan(&t.CreatedAt); err != nil {
		return Teacher{}, classify(op, err)
	}
	return t, nil
}

func (r *PostgresRepository) TeacherByEmail(ctx context.Context, email string) (Teacher, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+teacherColumns+` FROM teachers WHERE lower(email) = lower($1)`, email)
	return scanTeacher("postgres.TeacherByEmail", row)
}

func (r *PostgresRepository) TeacherByID(ctx context.Context, id string) (Teacher, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+teacherColumns+` FROM teachers WHERE id = $1`, id)
	return scanTeacher("postgres.TeacherByID", row)
}

func scanTeacher(op string, row scanner) (Teacher, error) {
	var t Teacher
	if err := row.Scan(&t.ID, &t.Name, &t.Email, &t.Department, &t.Phone, &t.PasswordHash, &t.CreatedAt); err != nil {
		return Teacher{}, classify(op, err)
	}
	return t, nil
}

// RegisterStudent inserts a student or claims an unregistered roll.
func (r *PostgresRepository) RegisterStudent(ctx context.Context, s Student) (Student, error) {
	const op = "postgres.RegisterStudent"
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO students (roll, name, password_hash)
		VALUES ($1, $2, $3)
		ON CONFLICT (roll) DO UPDATE
		SET name = EXCLUDED.name, password_hash = EXCLUDED.password_hash
		WHERE students.password_hash = ''
		RETURNING roll
	`, s.Roll, s.Name, s.PasswordHash)
	var roll string
	if err := row.Scan(&roll); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Student{}, Errorf(KindConflict, op, "roll %s already registered", s.Roll)
		}
		return Student{}, classify(op, err)
	}
	return r.StudentByRoll(ctx, roll)
}

func (r *PostgresRepository) StudentByRoll(ctx context.Context, roll string) (Student, error) {
	const op = "postgres.StudentByRoll"
	row := r.db.QueryRowContext(ctx, `
		SELECT s.roll, s.name, s.password_hash, s.created_at,
		       COALESCE(array_agg(e.course_code ORDER BY e.course_code) FILTER (WHERE e.course_code IS NOT NULL), '{}')
		FROM students s
		LEFT JOIN enrollments e ON e.student_roll = s.roll
		WHERE s.roll = $1
		GROUP BY s.roll
	`, roll)
	var s Student
	if err := row.Scan(&s.Roll, &s.Name, &s.PasswordHash, &s.CreatedAt, pgtype.NewMap().SQLScanner(&s.Courses)); err != nil {
		return Student{}, classify(op, err)
	}
	return s, nil
}

// CreateCourse inserts a course; an unknown teacher is NotFound via the foreign key.
func (r *PostgresRepository) CreateCourse(ctx context.Context, c Course) (Course, error) {
	const op = "postgres.CreateCourse"
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO courses (code, name, teacher_id)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`, c.Code, c.Name, c.TeacherID)
	if err := row.Scan(&c.CreatedAt); err != nil {
		return Course{}, classify(op, err)
	}
	c.Students = []string{}
	return c, nil
}

func (r *PostgresRepository) CourseByCode(ctx context.Context, code string) (Course, error) {
	row := r.db.QueryRowContext(ctx, courseSelect+` WHERE c.code = $1 GROUP BY c.code`, code)
	return scanCourse("postgres.CourseByCode", row)
}

func (r *PostgresRepository) CoursesByTeacher(ctx context.Context, teacherID string) ([]Course, error) {
	return r.courses(ctx, "postgres.CoursesByTeacher",
		courseSelect+` WHERE c.teacher_id = $1 GROUP BY c.code ORDER BY c.created_at, c.code`, teacherID)
}

func (r *PostgresRepository) CoursesByStudent(ctx context.Context, roll string) ([]Course, error) {
	const op = "postgres.CoursesByStudent"
	if _, err := r.StudentByRoll(ctx, roll); err != nil {
		return nil, err
	}
	return r.courses(ctx, op, courseSelect+`
		WHERE c.code IN (SELECT course_code FROM enrollments WHERE student_roll = $1)
		GROUP BY c.code ORDER BY c.created_at, c.code`, roll)
}

func (r *PostgresRepository) courses(ctx context.Context, op, query string, args ...any) ([]Course, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(op, err)
	}
	defer rows.Close()
	var out []Course
	for rows.Next() {
		c, err := scanCourse(op, rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(op, err)
	}
	return out, nil
}

func scanCourse(op string, row scanner) (Course, error) {
	var c Course
	if err := row.Scan(&c.Code, &c.Name, &c.TeacherID, &c.CreatedAt, pgtype.NewMap().SQLScanner(&c.Students)); err != nil {
		return Course{}, classify(op, err)
	}
	return c, nil
}

// Enroll inserts missing students and enrollment rows in one transaction.
// The enrollments table is the only source of both Course.Students and
// Student.Courses, so the two sides cannot drift apart.
func (r *PostgresRepository) Enroll(ctx context.Context, code string, rolls []string) (Course, error) {
	const op = "postgres.Enroll"
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Course{}, classify(op, err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM courses WHERE code = $1)`, code).Scan(&exists); err != nil {
		return Course{}, classify(op, err)
	}
	if !exists {
		return Course{}, Errorf(KindNotFound, op, "course %s not found", code)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO students (roll)
		SELECT unnest($1::text[])
		ON CONFLICT (roll) DO NOTHING
	`, rolls); err != nil {
		return Course{}, classify(op, err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO enrollments (course_code, student_roll)
		SELECT $1, unnest($2::text[])
		ON CONFLICT (course_code, student_roll) DO NOTHING
	`, code, rolls); err != nil {
		return Course{}, classify(op, err)
	}
	if err := tx.Commit(); err != nil {
		return Course{}, classify(op, err)
	}
	return r.CourseByCode(ctx, code)
}

// MergeRecord upserts the day's record and unions present into it.
func (r *PostgresRepository) MergeRecord(ctx context.Context, code string, day time.Time, present []string) (Record, bool, error) {
	const op = "postgres.MergeRecord"
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance_records (id, course_code, day, present)
		VALUES ($1, $2, $3::date, $4::text[])
		ON CONFLICT (course_code, day) DO UPDATE
		SET present = ARRAY(
		        SELECT DISTINCT p
		        FROM unnest(attendance_records.present || EXCLUDED.present) AS p
		        ORDER BY p
		    ),
		    updated_at = NOW()
		RETURNING `+recordColumns+`, (xmax = 0) AS inserted
	`, uuid.NewString(), code, FormatDay(day), present)

	var (
		rec      Record
		inserted bool
	)
	if err := row.Scan(&rec.ID, &rec.Seq, &rec.CourseCode, &rec.Day, pgtype.NewMap().SQLScanner(&rec.Present), &rec.CreatedAt, &rec.UpdatedAt, &inserted); err != nil {
		return Record{}, false, classify(op, err)
	}
	return rec, inserted, nil
}

func (r *PostgresRepository) ReplaceRecord(ctx context.Context, code string, day time.Time, present []string) (Record, error) {
	const op = "postgres.ReplaceRecord"
	if present == nil {
		present = []string{}
	}
	row := r.db.QueryRowContext(ctx, `
		UPDATE attendance_records
		SET present = $3::text[], updated_at = NOW()
		WHERE course_code = $1 AND day = $2::date
		RETURNING `+recordColumns,
		code, FormatDay(day), present)
	return scanRecord(op, row)
}

func (r *PostgresRepository) DeleteRecord(ctx context.Context, code string, day time.Time) (bool, error) {
	const op = "postgres.DeleteRecord"
	res, err := r.db.ExecContext(ctx, `DELETE FROM attendance_records WHERE course_code = $1 AND day = $2::date`, code, FormatDay(day))
	if err != nil {
		return false, classify(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, classify(op, err)
	}
	return n > 0, nil
}

func (r *PostgresRepository) RecordBetween(ctx context.Context, code string, from, to time.Time) (Record, error) {
	const op = "postgres.RecordBetween"
	row := r.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM attendance_records
		WHERE course_code = $1 AND day >= $2::date AND day < $3::date
		ORDER BY day
		LIMIT 1
	`, code, FormatDay(from), FormatDay(to))
	return scanRecord(op, row)
}

func (r *PostgresRepository) Records(ctx context.Context, code string) ([]Record, error) {
	const op = "postgres.Records"
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM attendance_records
		WHERE course_code = $1
		ORDER BY seq
	`, code)
	if err != nil {
		return nil, classify(op, err)
	}
	defer rows.Close()
	out := []Record{}
	for rows.Next() {
		rec, err := scanRecord(op, rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(op, err)
	}
	return out, nil
}

func scanRecord(op string, row scanner) (Record, error) {
	var rec Record
	if err := row.Scan(&rec.ID, &rec.Seq, &rec.CourseCode, &rec.Day, pgtype.NewMap().SQLScanner(&rec.Present), &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return Record{}, classify(op, err)
	}
	return rec, nil
}

// classify maps driver errors onto the Kind taxonomy.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return E(KindNotFound, op, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return E(KindConflict, op, err)
		case "23503":
			return E(KindNotFound, op, err)
		case "22P02", "22007", "22008", "23514":
			return E(KindInvalidInput, op, err)
		}
	}
	return E(KindStoreUnavailable, op, err)
}
