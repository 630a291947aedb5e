package http

import (
	"reflect"
	"sync"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/garyjia/staff-evaluation/internal/domain/scoring"
)

var registerOnce sync.Once

// registerValidations installs the custom binding rules on gin's validator
func registerValidations() {
	registerOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			_ = v.RegisterValidation("mark", validateMark)
		}
	})
}

// validateMark accepts 0, 0.5 and 1
func validateMark(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() == reflect.Ptr {
		if field.IsNil() {
			return false
		}
		field = field.Elem()
	}

	switch field.Kind() {
	case reflect.Float32, reflect.Float64:
		return scoring.ValidMark(field.Float())
	case reflect.Int, reflect.Int64, reflect.Int32:
		return scoring.ValidMark(float64(field.Int()))
	default:
		return false
	}
}

// AssignmentRequest is the body of create, update and validate
type AssignmentRequest struct {
	AreaID      int64     `json:"area_id" binding:"required,gt=0"`
	PeriodLabel string    `json:"period_label" binding:"omitempty,max=64"`
	StartAt     time.Time `json:"start_at" binding:"required"`
	EndAt       time.Time `json:"end_at" binding:"required"`
}

// MarkRequest is one sub-criterion mark
type MarkRequest struct {
	SubCriterionID int64    `json:"subcriterion_id" binding:"required,gt=0"`
	Points         *float64 `json:"points" binding:"required,mark"`
}

// SubmitRequest is the body of POST /tasks/:id/submit
type SubmitRequest struct {
	Details  []MarkRequest `json:"details" binding:"required,min=1,dive"`
	Comment  *string       `json:"comment" binding:"omitempty,max=2000"`
	Finalize bool          `json:"finalize"`
}

// ListTasksQuery holds the query parameters of GET /people/:id/tasks
type ListTasksQuery struct {
	Type string `form:"type" binding:"omitempty,oneof=SELF_EVALUATION SUPERVISOR_TO_SUBJECT PEER_TO_SUBJECT"`
	As   string `form:"as" binding:"omitempty,oneof=evaluator subject"`
}

// ListIncidentsQuery holds the query parameters of GET /people/:id/incidents
type ListIncidentsQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=200"`
}
