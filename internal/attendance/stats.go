package attendance

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"attendly/internal/metrics"
)

// DailyCount is the number of students present on one recorded day.
type DailyCount struct {
	Date    string `json:"date"`
	Present int    `json:"students_present"`
}

// Aggregate summarizes a course's attendance over all recorded days.
type Aggregate struct {
	AverageAttendancePercentage float64 `json:"average_attendance_percentage"`
	TotalDays                   int     `json:"total_days"`
}

// MatrixRow is one student's presence across the matrix dates.
type MatrixRow struct {
	StudentID  string  `json:"student_id"`
	Present    []bool  `json:"present"`
	Percentage float64 `json:"percentage"`
}

// Matrix is the spreadsheet-shaped attendance report of a course.
type Matrix struct {
	CourseCode string      `json:"course_code"`
	CourseName string      `json:"course_name"`
	Dates      []string    `json:"dates"`
	Rows       []MatrixRow `json:"rows"`
}

// Header is the report's first row.
func (m Matrix) Header() []string {
	h := make([]string, 0, len(m.Dates)+2)
	h = append(h, "Student ID")
	h = append(h, m.Dates...)
	return append(h, "Attendance %")
}

// Values renders the data rows with Y/N cells and a trailing percentage.
func (m Matrix) Values() [][]string {
	out := make([][]string, 0, len(m.Rows))
	for _, r := range m.Rows {
		row := make([]string, 0, len(r.Present)+2)
		row = append(row, r.StudentID)
		for _, p := range r.Present {
			if p {
				row = append(row, "Y")
			} else {
				row = append(row, "N")
			}
		}
		out = append(out, append(row, FormatPercent(r.Percentage)))
	}
	return out
}

// StudentPresence is one enrolled student's status on one day.
type StudentPresence struct {
	StudentID string `json:"student_id"`
	Present   bool   `json:"present"`
}

// HistoryEntry is one recorded day in a student's history.
type HistoryEntry struct {
	Date    string `json:"date"`
	Present bool   `json:"present"`
}

// History is a student's attendance in one course.
type History struct {
	CourseCode  string         `json:"course_code"`
	StudentID   string         `json:"student_id"`
	Entries     []HistoryEntry `json:"entries"`
	DaysPresent int            `json:"days_present"`
	Percentage  float64        `json:"percentage"`
}

// Summary lists present counts per record in creation order.
func (s *Service) Summary(ctx context.Context, code string) ([]DailyCount, error) {
	const op = "attendance.Summary"
	gen, ok := s.generation(ctx, code)
	var out []DailyCount
	if ok && s.cached(ctx, summaryKey(code, gen), &out) {
		return out, nil
	}
	_, records, err := s.load(ctx, op, code)
	if err != nil {
		return nil, err
	}
	out = summarize(records)
	if ok {
		s.store(ctx, summaryKey(code, gen), out)
	}
	return out, nil
}

// CourseAggregate returns the average attendance percentage and day count.
func (s *Service) CourseAggregate(ctx context.Context, code string) (Aggregate, error) {
	const op = "attendance.CourseAggregate"
	gen, ok := s.generation(ctx, code)
	var out Aggregate
	if ok && s.cached(ctx, aggregateKey(code, gen), &out) {
		return out, nil
	}
	course, records, err := s.load(ctx, op, code)
	if err != nil {
		return Aggregate{}, err
	}
	out = aggregate(course, records)
	if ok {
		s.store(ctx, aggregateKey(code, gen), out)
	}
	return out, nil
}

// RefreshDerivations recomputes the summary and aggregate of a course from the
// store and overwrites whatever is cached for its current generation.
func (s *Service) RefreshDerivations(ctx context.Context, code string) ([]DailyCount, Aggregate, error) {
	const op = "attendance.RefreshDerivations"
	gen, ok := s.generation(ctx, code)
	course, records, err := s.load(ctx, op, code)
	if err != nil {
		return nil, Aggregate{}, err
	}
	summary, agg := summarize(records), aggregate(course, records)
	if !ok {
		return summary, agg, Errorf(KindStoreUnavailable, op, "cache generation of %s unavailable", code)
	}
	s.store(ctx, summaryKey(code, gen), summary)
	s.store(ctx, aggregateKey(code, gen), agg)
	return summary, agg, nil
}

// AttendanceMatrix builds the per-student, per-date report. A course with no
// records has nothing to report and yields NotFound.
func (s *Service) AttendanceMatrix(ctx context.Context, code string) (Matrix, error) {
	const op = "attendance.AttendanceMatrix"
	course, records, err := s.load(ctx, op, code)
	if err != nil {
		return Matrix{}, err
	}
	if len(records) == 0 {
		return Matrix{}, Errorf(KindNotFound, op, "no attendance records for %s", code)
	}
	return buildMatrix(course, records), nil
}

// DayAttendance lists every enrolled student's presence on the given day.
func (s *Service) DayAttendance(ctx context.Context, code string, day time.Time) ([]StudentPresence, error) {
	const op = "attendance.DayAttendance"
	course, err := s.course(ctx, op, code)
	if err != nil {
		return nil, err
	}
	from, to := DayRange(day, s.loc)
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	rec, err := s.repo.RecordBetween(sctx, code, from, to)
	if err != nil {
		return nil, s.fail(op, code, err)
	}
	return dayAttendance(course, rec), nil
}

// StudentHistory returns a student's presence on every recorded day of a course.
func (s *Service) StudentHistory(ctx context.Context, code, roll string) (History, error) {
	const op = "attendance.StudentHistory"
	course, records, err := s.load(ctx, op, code)
	if err != nil {
		return History{}, err
	}
	if !course.Enrolled(roll) {
		return History{}, Errorf(KindNotFound, op, "student %s is not enrolled in %s", roll, code)
	}
	return history(code, roll, records), nil
}

func (s *Service) load(ctx context.Context, op, code string) (Course, []Record, error) {
	course, err := s.course(ctx, op, code)
	if err != nil {
		return Course{}, nil, err
	}
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	records, err := s.repo.Records(sctx, code)
	if err != nil {
		return Course{}, nil, s.fail(op, code, err)
	}
	return course, records, nil
}

// generation reads the course's cache generation. When it cannot be read the
// cache is bypassed entirely.
func (s *Service) generation(ctx context.Context, code string) (int64, bool) {
	gen, err := s.cache.Generation(ctx, code)
	if err != nil {
		metrics.CacheLookups.WithLabelValues("error").Inc()
		s.log.Warn("cache generation read failed", zap.String("course", code), zap.Error(err))
		return 0, false
	}
	return gen, true
}

func (s *Service) cached(ctx context.Context, key string, dst interface{}) bool {
	ok, err := s.cache.Get(ctx, key, dst)
	switch {
	case err != nil:
		metrics.CacheLookups.WithLabelValues("error").Inc()
		s.log.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		return false
	case ok:
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		return true
	default:
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return false
	}
}

func (s *Service) store(ctx context.Context, key string, v interface{}) {
	if err := s.cache.Set(ctx, key, v); err != nil {
		s.log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func summaryKey(code string, gen int64) string {
	return fmt.Sprintf("summary:%s:%d", code, gen)
}

func aggregateKey(code string, gen int64) string {
	return fmt.Sprintf("aggregate:%s:%d", code, gen)
}

func summarize(records []Record) []DailyCount {
	out := make([]DailyCount, 0, len(records))
	for _, r := range records {
		out = append(out, DailyCount{Date: r.Date(), Present: len(r.Present)})
	}
	return out
}

func aggregate(course Course, records []Record) Aggregate {
	days := len(records)
	enrolled := len(course.Students)
	if days == 0 || enrolled == 0 {
		return Aggregate{TotalDays: days}
	}
	total := 0
	for _, r := range records {
		total += len(r.Present)
	}
	return Aggregate{
		AverageAttendancePercentage: round2(float64(total) / float64(enrolled*days) * 100),
		TotalDays:                   days,
	}
}

func buildMatrix(course Course, records []Record) Matrix {
	byDate := make(map[string]map[string]struct{}, len(records))
	for _, r := range records {
		set, ok := byDate[r.Date()]
		if !ok {
			set = make(map[string]struct{}, len(r.Present))
			byDate[r.Date()] = set
		}
		for id := range r.presentSet() {
			set[id] = struct{}{}
		}
	}
	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	students := append([]string(nil), course.Students...)
	sort.Strings(students)

	rows := make([]MatrixRow, 0, len(students))
	for _, id := range students {
		row := MatrixRow{StudentID: id, Present: make([]bool, len(dates))}
		n := 0
		for i, d := range dates {
			if _, ok := byDate[d][id]; ok {
				row.Present[i] = true
				n++
			}
		}
		row.Percentage = percent(n, len(dates))
		rows = append(rows, row)
	}
	return Matrix{CourseCode: course.Code, CourseName: course.Name, Dates: dates, Rows: rows}
}

func dayAttendance(course Course, rec Record) []StudentPresence {
	present := rec.presentSet()
	out := make([]StudentPresence, 0, len(course.Students))
	for _, id := range course.Students {
		_, ok := present[id]
		out = append(out, StudentPresence{StudentID: id, Present: ok})
	}
	return out
}

func history(code, roll string, records []Record) History {
	h := History{CourseCode: code, StudentID: roll, Entries: make([]HistoryEntry, 0, len(records))}
	for _, r := range records {
		_, ok := r.presentSet()[roll]
		if ok {
			h.DaysPresent++
		}
		h.Entries = append(h.Entries, HistoryEntry{Date: r.Date(), Present: ok})
	}
	sort.SliceStable(h.Entries, func(i, j int) bool { return h.Entries[i].Date < h.Entries[j].Date })
	h.Percentage = percent(h.DaysPresent, len(records))
	return h
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return round2(float64(n) / float64(total) * 100)
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

// FormatPercent renders a percentage with two decimals and a % sign.
func FormatPercent(v float64) string { return fmt.Sprintf("%.2f%%", v) }
