package attendance

import (
	"sort"
	"time"
)

// Teacher owns courses and authenticates by email.
type Teacher struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Department   string    `json:"department"`
	Phone        string    `json:"phone,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Student is identified by roll number. Courses mirrors the enrollment
// relation seen from the student side.
type Student struct {
	Roll         string    `json:"roll"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Courses      []string  `json:"courses"`
	CreatedAt    time.Time `json:"created_at"`
}

// Registered reports whether the student has claimed the roll with a password.
func (s Student) Registered() bool { return s.PasswordHash != "" }

// Course is a subject taught by one teacher. Students is kept sorted and unique.
type Course struct {
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	TeacherID string    `json:"teacher_id"`
	Students  []string  `json:"students"`
	CreatedAt time.Time `json:"created_at"`
}

func (c Course) enrolledSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.Students))
	for _, s := range c.Students {
		set[s] = struct{}{}
	}
	return set
}

// Enrolled reports whether roll is in the course's student set.
func (c Course) Enrolled(roll string) bool {
	i := sort.SearchStrings(c.Students, roll)
	return i < len(c.Students) && c.Students[i] == roll
}

// filterEnrolled keeps the candidates that are enrolled, deduplicated and sorted.
func (c Course) filterEnrolled(candidates []string) []string {
	enrolled := c.enrolledSet()
	seen := make(map[string]struct{}, len(candidates))
	out := make([]string, 0, len(candidates))
	for _, id := range candidates {
		if _, ok := enrolled[id]; !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Record is the single attendance record of a course for one calendar day.
type Record struct {
	ID         string    `json:"id"`
	CourseCode string    `json:"course_code"`
	Day        time.Time `json:"-"`
	Present    []string  `json:"present_students"`
	Seq        int64     `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Date is the record's calendar day in YYYY-MM-DD form.
func (r Record) Date() string { return FormatDay(r.Day) }

func (r Record) presentSet() map[string]struct{} {
	set := make(map[string]struct{}, len(r.Present))
	for _, s := range r.Present {
		set[s] = struct{}{}
	}
	return set
}

// StudentStatus is one line of an explicit attendance sheet.
type StudentStatus struct {
	StudentID string `json:"student_id"`
	Present   bool   `json:"present"`
}

// union returns the sorted set union of a and b.
func union(a, b []string) []string {
	set := make(map[string]struct{}, len(a)+len(b))
	for _, s := range a {
		set[s] = struct{}{}
	}
	for _, s := range b {
		set[s] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
