package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"attendly/internal/attendance"
	"attendly/internal/auth"
	"attendly/internal/report"
)

const courseKey = "course"

// Handler translates HTTP requests into attendance service calls.
type Handler struct {
	svc    *attendance.Service
	signer *auth.Signer
	log    *zap.Logger
}

// NewHandler wires a handler. log may be nil.
func NewHandler(svc *attendance.Service, signer *auth.Signer, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{svc: svc, signer: signer, log: log}
}

// ---------- Accounts ----------

func (h *Handler) RegisterTeacher(c *gin.Context) {
	var req registerTeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	t, err := h.svc.RegisterTeacher(c.Request.Context(), attendance.NewTeacher{
		Name:       req.Name,
		Email:      req.Email,
		Department: req.Department,
		Phone:      req.Phone,
		Password:   req.Password,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.issue(c, http.StatusCreated, t.ID, auth.RoleTeacher, gin.H{"teacher": t})
}

func (h *Handler) LoginTeacher(c *gin.Context) {
	var req loginTeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	t, err := h.svc.AuthenticateTeacher(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.issue(c, http.StatusOK, t.ID, auth.RoleTeacher, gin.H{"teacher": t})
}

func (h *Handler) RegisterStudent(c *gin.Context) {
	var req registerStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	st, err := h.svc.RegisterStudent(c.Request.Context(), attendance.NewStudent{
		Roll:     req.Roll,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.issue(c, http.StatusCreated, st.Roll, auth.RoleStudent, gin.H{"student": st})
}

func (h *Handler) LoginStudent(c *gin.Context) {
	var req loginStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	st, err := h.svc.AuthenticateStudent(c.Request.Context(), req.Roll, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.issue(c, http.StatusOK, st.Roll, auth.RoleStudent, gin.H{"student": st})
}

func (h *Handler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	tokens, err := h.signer.Refresh(req.RefreshToken)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	c.JSON(http.StatusOK, tokenBody(tokens, nil))
}

func (h *Handler) issue(c *gin.Context, status int, subject, role string, extra gin.H) {
	tokens, err := h.signer.Issue(subject, role)
	if err != nil {
		h.log.Error("token issue failed", zap.String("subject", subject), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}
	c.JSON(status, tokenBody(tokens, extra))
}

func tokenBody(tokens auth.TokenPair, extra gin.H) gin.H {
	body := gin.H{
		"token":         tokens.AccessToken,
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_at":    tokens.AccessExp.Unix(),
	}
	for k, v := range extra {
		body[k] = v
	}
	return body
}

// ---------- Courses ----------

func (h *Handler) CreateCourse(c *gin.Context) {
	var req createCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	claims, _ := auth.ClaimsFrom(c)
	course, err := h.svc.CreateCourse(c.Request.Context(), claims.Subject, req.Name, req.Code)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, course)
}

func (h *Handler) ListCourses(c *gin.Context) {
	claims, _ := auth.ClaimsFrom(c)
	t, courses, err := h.svc.CoursesForTeacher(c.Request.Context(), claims.Subject)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"teacher": t.Name, "courses": newCourseResponses(courses, true)})
}

// requireOwnedCourse loads :code and rejects teachers who do not own it.
func (h *Handler) requireOwnedCourse(c *gin.Context) {
	claims, _ := auth.ClaimsFrom(c)
	course, err := h.svc.OwnedCourse(c.Request.Context(), claims.Subject, c.Param("code"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Set(courseKey, course)
	c.Next()
}

func courseFrom(c *gin.Context) attendance.Course {
	v, _ := c.Get(courseKey)
	course, _ := v.(attendance.Course)
	return course
}

func (h *Handler) Enroll(c *gin.Context) {
	var req enrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	course, err := h.svc.EnrollStudents(c.Request.Context(), courseFrom(c).Code, req.Students)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, course)
}

// ---------- Attendance ----------

func (h *Handler) Mark(c *gin.Context) {
	var req markRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	day := attendance.Day(time.Now(), h.svc.Location())
	if req.Date != "" {
		var err error
		if day, err = attendance.ParseDay(req.Date, h.svc.Location()); err != nil {
			h.fail(c, err)
			return
		}
	}

	rec, created, err := h.svc.Mark(c.Request.Context(), courseFrom(c).Code, day, req.Students)
	if err != nil {
		h.fail(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"created": created, "record": newRecordResponse(rec)})
}

func (h *Handler) Replace(c *gin.Context) {
	day, ok := h.dayParam(c)
	if !ok {
		return
	}
	var req replaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	rec, err := h.svc.Replace(c.Request.Context(), courseFrom(c).Code, day, req.sheet())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"record": newRecordResponse(rec)})
}

func (h *Handler) Delete(c *gin.Context) {
	day, ok := h.dayParam(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), courseFrom(c).Code, day); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) DayAttendance(c *gin.Context) {
	day, ok := h.dayParam(c)
	if !ok {
		return
	}
	students, err := h.svc.DayAttendance(c.Request.Context(), courseFrom(c).Code, day)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": attendance.FormatDay(day), "students": students})
}

func (h *Handler) Exists(c *gin.Context) {
	day, ok := h.dayParam(c)
	if !ok {
		return
	}
	exists, err := h.svc.ExistsForDay(c.Request.Context(), courseFrom(c).Code, day)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": attendance.FormatDay(day), "exists": exists})
}

func (h *Handler) dayParam(c *gin.Context) (time.Time, bool) {
	day, err := attendance.ParseDay(c.Param("date"), h.svc.Location())
	if err != nil {
		h.fail(c, err)
		return time.Time{}, false
	}
	return day, true
}

// ---------- Reports ----------

func (h *Handler) Summary(c *gin.Context) {
	course := courseFrom(c)
	data, err := h.svc.Summary(c.Request.Context(), course.Code)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"course": course.Name, "attendance": data})
}

func (h *Handler) Statistics(c *gin.Context) {
	agg, err := h.svc.CourseAggregate(c.Request.Context(), courseFrom(c).Code)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, agg)
}

func (h *Handler) Report(c *gin.Context) {
	m, err := h.svc.AttendanceMatrix(c.Request.Context(), courseFrom(c).Code)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"header": m.Header(), "rows": m.Values()})
}

func (h *Handler) ReportFile(c *gin.Context) {
	course := courseFrom(c)
	m, err := h.svc.AttendanceMatrix(c.Request.Context(), course.Code)
	if err != nil {
		h.fail(c, err)
		return
	}
	data, err := report.Bytes(m)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+report.Filename(course.Code)+`"`)
	c.Data(http.StatusOK, report.ContentType, data)
}

func (h *Handler) StudentHistory(c *gin.Context) {
	hist, err := h.svc.StudentHistory(c.Request.Context(), courseFrom(c).Code, c.Param("roll"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, hist)
}

// ---------- Student self-service ----------

func (h *Handler) MyCourses(c *gin.Context) {
	claims, _ := auth.ClaimsFrom(c)
	courses, err := h.svc.CoursesForStudent(c.Request.Context(), claims.Subject)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"student": claims.Subject, "courses": newCourseResponses(courses, false)})
}

func (h *Handler) MyHistory(c *gin.Context) {
	claims, _ := auth.ClaimsFrom(c)
	hist, err := h.svc.StudentHistory(c.Request.Context(), c.Param("code"), claims.Subject)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, hist)
}
