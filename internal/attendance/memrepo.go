package attendance

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type recordKey struct {
	course string
	day    string
}

// MemoryRepository is an in-process arena of records keyed by (course, day).
// A single mutex serializes every read-modify-write, which is what keeps
// MergeRecord's union safe under concurrent callers.
type MemoryRepository struct {
	mu       sync.Mutex
	teachers map[string]Teacher
	emails   map[string]string
	students map[string]Student
	courses  map[string]Course
	records  map[recordKey]Record
	byCourse map[string][]recordKey
	seq      int64
	now      func() time.Time
}

// NewMemoryRepository returns an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		teachers: make(map[string]Teacher),
		emails:   make(map[string]string),
		students: make(map[string]Student),
		courses:  make(map[string]Course),
		records:  make(map[recordKey]Record),
		byCourse: make(map[string][]recordKey),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryRepository) lock(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return E(KindStoreUnavailable, op, err)
	}
	m.mu.Lock()
	return nil
}

// CreateTeacher stores a teacher; the email must be unused.
func (m *MemoryRepository) CreateTeacher(ctx context.Context, t Teacher) (Teacher, error) {
	const op = "memory.CreateTeacher"
	if err := m.lock(ctx, op); err != nil {
		return Teacher{}, err
	}
	defer m.mu.Unlock()

	email := strings.ToLower(t.Email)
	if _, ok := m.emails[email]; ok {
		return Teacher{}, Errorf(KindConflict, op, "email %s already registered", t.Email)
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.CreatedAt = m.now()
	m.teachers[t.ID] = t
	m.emails[email] = t.ID
	return t, nil
}

// TeacherByEmail looks a teacher up case-insensitively.
func (m *MemoryRepository) TeacherByEmail(ctx context.Context, email string) (Teacher, error) {
	const op = "memory.TeacherByEmail"
	if err := m.lock(ctx, op); err != nil {
		return Teacher{}, err
	}
	defer m.mu.Unlock()

	id, ok := m.emails[strings.ToLower(email)]
	if !ok {
		return Teacher{}, Errorf(KindNotFound, op, "teacher %s not found", email)
	}
	return m.teachers[id], nil
}

func (m *MemoryRepository) TeacherByID(ctx context.Context, id string) (Teacher, error) {
	const op = "memory.TeacherByID"
	if err := m.lock(ctx, op); err != nil {
		return Teacher{}, err
	}
	defer m.mu.Unlock()

	t, ok := m.teachers[id]
	if !ok {
		return Teacher{}, Errorf(KindNotFound, op, "teacher %s not found", id)
	}
	return t, nil
}

func (m *MemoryRepository) RegisterStudent(ctx context.Context, s Student) (Student, error) {
	const op = "memory.RegisterStudent"
	if err := m.lock(ctx, op); err != nil {
		return Student{}, err
	}
	defer m.mu.Unlock()

	existing, ok := m.students[s.Roll]
	if ok && existing.Registered() {
		return Student{}, Errorf(KindConflict, op, "roll %s already registered", s.Roll)
	}
	if ok {
		existing.Name = s.Name
		existing.PasswordHash = s.PasswordHash
		m.students[s.Roll] = existing
		return cloneStudent(existing), nil
	}
	s.Courses = nil
	s.CreatedAt = m.now()
	m.students[s.Roll] = s
	return cloneStudent(s), nil
}

func (m *MemoryRepository) StudentByRoll(ctx context.Context, roll string) (Student, error) {
	const op = "memory.StudentByRoll"
	if err := m.lock(ctx, op); err != nil {
		return Student{}, err
	}
	defer m.mu.Unlock()

	s, ok := m.students[roll]
	if !ok {
		return Student{}, Errorf(KindNotFound, op, "student %s not found", roll)
	}
	return cloneStudent(s), nil
}

func (m *MemoryRepository) CreateCourse(ctx context.Context, c Course) (Course, error) {
	const op = "memory.CreateCourse"
	if err := m.lock(ctx, op); err != nil {
		return Course{}, err
	}
	defer m.mu.Unlock()

	if _, ok := m.courses[c.Code]; ok {
		return Course{}, Errorf(KindConflict, op, "course %s already exists", c.Code)
	}
	if _, ok := m.teachers[c.TeacherID]; !ok {
		return Course{}, Errorf(KindNotFound, op, "teacher %s not found", c.TeacherID)
	}
	c.Students = nil
	c.CreatedAt = m.now()
	m.courses[c.Code] = c
	return cloneCourse(c), nil
}

func (m *MemoryRepository) CourseByCode(ctx context.Context, code string) (Course, error) {
	const op = "memory.CourseByCode"
	if err := m.lock(ctx, op); err != nil {
		return Course{}, err
	}
	defer m.mu.Unlock()

	c, ok := m.courses[code]
	if !ok {
		return Course{}, Errorf(KindNotFound, op, "course %s not found", code)
	}
	return cloneCourse(c), nil
}

func (m *MemoryRepository) CoursesByTeacher(ctx context.Context, teacherID string) ([]Course, error) {
	const op = "memory.CoursesByTeacher"
	if err := m.lock(ctx, op); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()

	var out []Course
	for _, c := range m.courses {
		if c.TeacherID == teacherID {
			out = append(out, cloneCourse(c))
		}
	}
	sortCourses(out)
	return out, nil
}

func (m *MemoryRepository) CoursesByStudent(ctx context.Context, roll string) ([]Course, error) {
	const op = "memory.CoursesByStudent"
	if err := m.lock(ctx, op); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()

	s, ok := m.students[roll]
	if !ok {
		return nil, Errorf(KindNotFound, op, "student %s not found", roll)
	}
	out := make([]Course, 0, len(s.Courses))
	for _, code := range s.Courses {
		if c, ok := m.courses[code]; ok {
			out = append(out, cloneCourse(c))
		}
	}
	sortCourses(out)
	return out, nil
}

func (m *MemoryRepository) Enroll(ctx context.Context, code string, rolls []string) (Course, error) {
	const op = "memory.Enroll"
	if err := m.lock(ctx, op); err != nil {
		return Course{}, err
	}
	defer m.mu.Unlock()

	c, ok := m.courses[code]
	if !ok {
		return Course{}, Errorf(KindNotFound, op, "course %s not found", code)
	}
	c.Students = union(c.Students, rolls)
	m.courses[code] = c

	for _, roll := range rolls {
		s, ok := m.students[roll]
		if !ok {
			s = Student{Roll: roll, CreatedAt: m.now()}
		}
		s.Courses = union(s.Courses, []string{code})
		m.students[roll] = s
	}
	return cloneCourse(c), nil
}

func (m *MemoryRepository) MergeRecord(ctx context.Context, code string, day time.Time, present []string) (Record, bool, error) {
	const op = "memory.MergeRecord"
	if err := m.lock(ctx, op); err != nil {
		return Record{}, false, err
	}
	defer m.mu.Unlock()

	if _, ok := m.courses[code]; !ok {
		return Record{}, false, Errorf(KindNotFound, op, "course %s not found", code)
	}
	key := recordKey{course: code, day: FormatDay(day)}
	now := m.now()
	if rec, ok := m.records[key]; ok {
		rec.Present = union(rec.Present, present)
		rec.UpdatedAt = now
		m.records[key] = rec
		return cloneRecord(rec), false, nil
	}

	m.seq++
	rec := Record{
		ID:         uuid.NewString(),
		CourseCode: code,
		Day:        day.UTC(),
		Present:    union(nil, present),
		Seq:        m.seq,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	m.records[key] = rec
	m.byCourse[code] = append(m.byCourse[code], key)
	return cloneRecord(rec), true, nil
}

func (m *MemoryRepository) ReplaceRecord(ctx context.Context, code string, day time.Time, present []string) (Record, error) {
	const op = "memory.ReplaceRecord"
	if err := m.lock(ctx, op); err != nil {
		return Record{}, err
	}
	defer m.mu.Unlock()

	key := recordKey{course: code, day: FormatDay(day)}
	rec, ok := m.records[key]
	if !ok {
		return Record{}, Errorf(KindNotFound, op, "no attendance for %s on %s", code, key.day)
	}
	rec.Present = union(nil, present)
	rec.UpdatedAt = m.now()
	m.records[key] = rec
	return cloneRecord(rec), nil
}

func (m *MemoryRepository) DeleteRecord(ctx context.Context, code string, day time.Time) (bool, error) {
	const op = "memory.DeleteRecord"
	if err := m.lock(ctx, op); err != nil {
		return false, err
	}
	defer m.mu.Unlock()

	key := recordKey{course: code, day: FormatDay(day)}
	if _, ok := m.records[key]; !ok {
		return false, nil
	}
	delete(m.records, key)
	keys := m.byCourse[code]
	for i, k := range keys {
		if k == key {
			m.byCourse[code] = append(keys[:i:i], keys[i+1:]...)
			break
		}
	}
	return true, nil
}

func (m *MemoryRepository) RecordBetween(ctx context.Context, code string, from, to time.Time) (Record, error) {
	const op = "memory.RecordBetween"
	if err := m.lock(ctx, op); err != nil {
		return Record{}, err
	}
	defer m.mu.Unlock()

	for d := Day(from, time.UTC); d.Before(to); d = d.AddDate(0, 0, 1) {
		if d.Before(from) {
			continue
		}
		if rec, ok := m.records[recordKey{course: code, day: FormatDay(d)}]; ok {
			return cloneRecord(rec), nil
		}
	}
	return Record{}, Errorf(KindNotFound, op, "no attendance for %s on %s", code, FormatDay(from))
}

func (m *MemoryRepository) Records(ctx context.Context, code string) ([]Record, error) {
	const op = "memory.Records"
	if err := m.lock(ctx, op); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()

	keys := m.byCourse[code]
	out := make([]Record, 0, len(keys))
	for _, k := range keys {
		out = append(out, cloneRecord(m.records[k]))
	}
	return out, nil
}

func cloneStudent(s Student) Student {
	s.Courses = append([]string{}, s.Courses...)
	return s
}

func cloneCourse(c Course) Course {
	c.Students = append([]string{}, c.Students...)
	return c
}

func cloneRecord(r Record) Record {
	r.Present = append([]string{}, r.Present...)
	return r
}

func sortCourses(cs []Course) {
	sort.Slice(cs, func(i, j int) bool {
		if !cs[i].CreatedAt.Equal(cs[j].CreatedAt) {
			return cs[i].CreatedAt.Before(cs[j].CreatedAt)
		}
		return cs[i].Code < cs[j].Code
	})
}
