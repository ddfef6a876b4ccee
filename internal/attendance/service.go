package attendance

import (
	"context"
	"time"

	"go.uber.org/zap"

	"attendly/internal/metrics"
	"attendly/internal/queue"
)

// Cache holds derived figures keyed by course. Failures are logged, never fatal.
//
// Keys embed the course's generation. A change bumps the generation, so a
// figure computed from records read before the change can only ever be
// written under a key no reader asks for again.
type Cache interface {
	Get(ctx context.Context, key string, dst interface{}) (bool, error)
	Set(ctx context.Context, key string, v interface{}) error
	Delete(ctx context.Context, keys ...string) error
	// Generation returns the course's current generation, zero if unset.
	Generation(ctx context.Context, code string) (int64, error)
	// Bump advances the course's generation and returns the new value.
	Bump(ctx context.Context, code string) (int64, error)
}

// Publisher announces that a course's attendance changed.
type Publisher interface {
	Publish(ctx context.Context, msg queue.Message) error
}

// Options configures a Service. Zero values fall back to defaults.
type Options struct {
	// Location defines where calendar days begin. Defaults to UTC.
	Location *time.Location
	// StoreTimeout bounds every repository call. Defaults to 5s.
	StoreTimeout time.Duration
	Cache        Cache
	Events       Publisher
	Logger       *zap.Logger
}

// Service is the attendance reconciliation engine plus the roster, account
// and report operations built on the same repository.
type Service struct {
	repo    Repository
	loc     *time.Location
	timeout time.Duration
	cache   Cache
	events  Publisher
	log     *zap.Logger
}

// NewService creates a service backed by a repository.
func NewService(repo Repository, opts Options) *Service {
	s := &Service{
		repo:    repo,
		loc:     opts.Location,
		timeout: opts.StoreTimeout,
		cache:   opts.Cache,
		events:  opts.Events,
		log:     opts.Logger,
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.timeout <= 0 {
		s.timeout = 5 * time.Second
	}
	if s.cache == nil {
		s.cache = nopCache{}
	}
	if s.events == nil {
		s.events = nopPublisher{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

// Location is where the service's calendar days begin.
func (s *Service) Location() *time.Location { return s.loc }

// Mark adds the enrolled subset of candidates to the record of (code, day),
// creating the record on first use. Repeated calls only ever add presence.
func (s *Service) Mark(ctx context.Context, code string, day time.Time, candidates []string) (Record, bool, error) {
	const op = "attendance.Mark"
	day = Day(day, s.loc)

	course, err := s.course(ctx, op, code)
	if err != nil {
		return Record{}, false, err
	}
	valid := course.filterEnrolled(candidates)
	if len(valid) == 0 {
		metrics.Marks.WithLabelValues("rejected").Inc()
		return Record{}, false, Errorf(KindInvalidInput, op, "none of the %d candidates is enrolled in %s", len(candidates), code)
	}

	var (
		rec     Record
		created bool
	)
	err = s.retry(ctx, func(ctx context.Context) error {
		var err error
		rec, created, err = s.repo.MergeRecord(ctx, code, day, valid)
		return err
	})
	if err != nil {
		return Record{}, false, s.fail(op, code, err)
	}

	outcome := "updated"
	if created {
		outcome = "created"
	}
	metrics.Marks.WithLabelValues(outcome).Inc()
	s.log.Info("attendance marked",
		zap.String("course", code),
		zap.String("day", FormatDay(day)),
		zap.Bool("created", created),
		zap.Int("present", len(rec.Present)),
	)
	s.changed(ctx, code)
	return rec, created, nil
}

// Replace overwrites the present set of an existing record with exactly the
// enrolled students the sheet marks present.
func (s *Service) Replace(ctx context.Context, code string, day time.Time, sheet []StudentStatus) (Record, error) {
	const op = "attendance.Replace"
	day = Day(day, s.loc)
	if len(sheet) == 0 {
		return Record{}, Errorf(KindInvalidInput, op, "attendance sheet is empty")
	}

	course, err := s.course(ctx, op, code)
	if err != nil {
		return Record{}, err
	}
	status := make(map[string]bool, len(sheet))
	ids := make([]string, 0, len(sheet))
	for _, st := range sheet {
		status[st.StudentID] = st.Present
		ids = append(ids, st.StudentID)
	}
	if len(course.filterEnrolled(ids)) == 0 {
		return Record{}, Errorf(KindInvalidInput, op, "attendance sheet names no student enrolled in %s", code)
	}
	var present []string
	for id, ok := range status {
		if ok {
			present = append(present, id)
		}
	}
	present = course.filterEnrolled(present)

	var rec Record
	err = s.retry(ctx, func(ctx context.Context) error {
		var err error
		rec, err = s.repo.ReplaceRecord(ctx, code, day, present)
		return err
	})
	if err != nil {
		return Record{}, s.fail(op, code, err)
	}

	metrics.Replacements.Inc()
	s.log.Info("attendance replaced",
		zap.String("course", code),
		zap.String("day", FormatDay(day)),
		zap.Int("present", len(rec.Present)),
	)
	s.changed(ctx, code)
	return rec, nil
}

// Delete removes the record of (code, day). A missing record is not an error.
func (s *Service) Delete(ctx context.Context, code string, day time.Time) error {
	const op = "attendance.Delete"
	day = Day(day, s.loc)

	var deleted bool
	err := s.retry(ctx, func(ctx context.Context) error {
		var err error
		deleted, err = s.repo.DeleteRecord(ctx, code, day)
		return err
	})
	if err != nil {
		return s.fail(op, code, err)
	}
	if !deleted {
		return nil
	}

	metrics.Deletions.Inc()
	s.log.Info("attendance deleted", zap.String("course", code), zap.String("day", FormatDay(day)))
	s.changed(ctx, code)
	return nil
}

// ExistsForDay reports whether the course has a record anywhere within the
// calendar day of day.
func (s *Service) ExistsForDay(ctx context.Context, code string, day time.Time) (bool, error) {
	const op = "attendance.ExistsForDay"
	from, to := DayRange(day, s.loc)

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	_, err := s.repo.RecordBetween(ctx, code, from, to)
	switch {
	case err == nil:
		return true, nil
	case IsNotFound(err):
		return false, nil
	default:
		return false, s.fail(op, code, err)
	}
}

func (s *Service) course(ctx context.Context, op, code string) (Course, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	c, err := s.repo.CourseByCode(ctx, code)
	if err != nil {
		return Course{}, s.fail(op, code, err)
	}
	return c, nil
}

func (s *Service) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// retry runs fn with a store deadline and repeats it once on a conflict.
func (s *Service) retry(ctx context.Context, fn func(context.Context) error) error {
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		sctx, cancel := s.storeCtx(ctx)
		err = fn(sctx)
		cancel()
		if !IsConflict(err) {
			return err
		}
	}
	return err
}

// fail records store failures and attaches op to err.
func (s *Service) fail(op, code string, err error) error {
	kind := KindOf(err)
	switch kind {
	case KindNotFound, KindInvalidInput, KindForbidden, KindUnauthenticated:
	default:
		metrics.StoreErrors.WithLabelValues(kind.String()).Inc()
		s.log.Error("store failure", zap.String("op", op), zap.String("course", code), zap.Error(err))
	}
	return E(KindUnknown, op, err)
}

// changed retires cached figures for the course and publishes a change event.
// Each call gets its own store deadline; the change itself is already saved.
func (s *Service) changed(ctx context.Context, code string) {
	cctx, cancel := s.storeCtx(ctx)
	if gen, err := s.cache.Bump(cctx, code); err != nil {
		s.log.Warn("cache invalidation failed", zap.String("course", code), zap.Error(err))
	} else if err := s.cache.Delete(cctx, summaryKey(code, gen-1), aggregateKey(code, gen-1)); err != nil {
		s.log.Debug("old cache generation not dropped", zap.String("course", code), zap.Error(err))
	}
	cancel()

	pctx, cancel := s.storeCtx(ctx)
	defer cancel()
	if err := s.events.Publish(pctx, queue.CourseChanged(code)); err != nil {
		s.log.Warn("change event not published", zap.String("course", code), zap.Error(err))
	}
}

type nopCache struct{}

func (nopCache) Get(context.Context, string, interface{}) (bool, error) { return false, nil }
func (nopCache) Set(context.Context, string, interface{}) error         { return nil }
func (nopCache) Delete(context.Context, ...string) error                { return nil }
func (nopCache) Generation(context.Context, string) (int64, error)      { return 0, nil }
func (nopCache) Bump(context.Context, string) (int64, error)            { return 0, nil }

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, queue.Message) error { return nil }
