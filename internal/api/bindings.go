package api

import (
	"time"

	"attendly/internal/attendance"
)

type registerTeacherRequest struct {
	Name       string `json:"name" binding:"required"`
	Email      string `json:"email" binding:"required,email"`
	Department string `json:"department" binding:"required"`
	Phone      string `json:"phone"`
	Password   string `json:"password" binding:"required,min=6"`
}

type loginTeacherRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type registerStudentRequest struct {
	Roll     string `json:"roll" binding:"required"`
	Name     string `json:"name"`
	Password string `json:"password" binding:"required,min=6"`
}

type loginStudentRequest struct {
	Roll     string `json:"roll" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type createCourseRequest struct {
	Name string `json:"name" binding:"required"`
	Code string `json:"code" binding:"required"`
}

type enrollRequest struct {
	Students []string `json:"students" binding:"required,min=1,dive,required"`
}

type markRequest struct {
	// Date defaults to today when empty.
	Date     string   `json:"date"`
	Students []string `json:"students" binding:"required,min=1"`
}

type studentStatus struct {
	StudentID string `json:"student_id" binding:"required"`
	Present   *bool  `json:"present" binding:"required"`
}

type replaceRequest struct {
	Students []studentStatus `json:"students" binding:"required,min=1,dive"`
}

func (r replaceRequest) sheet() []attendance.StudentStatus {
	out := make([]attendance.StudentStatus, 0, len(r.Students))
	for _, s := range r.Students {
		out = append(out, attendance.StudentStatus{StudentID: s.StudentID, Present: *s.Present})
	}
	return out
}

type recordResponse struct {
	ID         string    `json:"id"`
	CourseCode string    `json:"course_code"`
	Date       string    `json:"date"`
	Present    []string  `json:"present_students"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func newRecordResponse(r attendance.Record) recordResponse {
	return recordResponse{
		ID:         r.ID,
		CourseCode: r.CourseCode,
		Date:       r.Date(),
		Present:    r.Present,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

type courseResponse struct {
	Name     string   `json:"name"`
	Code     string   `json:"code"`
	Students []string `json:"students,omitempty"`
}

func newCourseResponses(cs []attendance.Course, withStudents bool) []courseResponse {
	out := make([]courseResponse, 0, len(cs))
	for _, c := range cs {
		cr := courseResponse{Name: c.Name, Code: c.Code}
		if withStudents {
			cr.Students = c.Students
		}
		out = append(out, cr)
	}
	return out
}
