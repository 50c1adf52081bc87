package types

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidTimeOfDay is returned for schedule times that are not 24 hour "HH:MM".
var ErrInvalidTimeOfDay = errors.New("invalid time format, use HH:MM")

// ParseTimeOfDay parses "HH:MM" with hour in [0,24) and minute in [0,60).
func ParseTimeOfDay(s string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	if hour < 0 || hour >= 24 || minute < 0 || minute >= 60 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	return hour, minute, nil
}

// NewValidator returns a validator with the service's custom tags registered.
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("timeofday", func(fl validator.FieldLevel) bool {
		_, _, err := ParseTimeOfDay(fl.Field().String())
		return err == nil
	})
	return v
}

// CreateSourceRequest is the body of POST /api/sources.
type CreateSourceRequest struct {
	URL        string `json:"url" validate:"required,url"`
	Name       string `json:"name,omitempty"`
	SourceType string `json:"source_type,omitempty"`
	IsActive   *bool  `json:"is_active,omitempty"`
}

// Validate validates the CreateSourceRequest using the validator.
func (r *CreateSourceRequest) Validate() error {
	return NewValidator().Struct(r)
}

// ToSource applies defaults and returns the record to insert.
func (r *CreateSourceRequest) ToSource() Source {
	src := Source{
		URL:        strings.TrimSpace(r.URL),
		Name:       r.Name,
		SourceType: r.SourceType,
		IsActive:   true,
	}
	if src.SourceType == "" {
		src.SourceType = DefaultSourceType
	}
	if r.IsActive != nil {
		src.IsActive = *r.IsActive
	}
	return src
}

// ScheduleRequest is the body of POST and PUT /api/schedules.
type ScheduleRequest struct {
	Time     string `json:"time" validate:"required,timeofday"`
	IsActive *bool  `json:"is_active,omitempty"`
}

// Validate validates the ScheduleRequest using the validator.
func (r *ScheduleRequest) Validate() error {
	return NewValidator().Struct(r)
}

// Active returns is_active, defaulting to true.
func (r *ScheduleRequest) Active() bool {
	return r.IsActive == nil || *r.IsActive
}

// SettingUpdate is one element of the POST /api/settings body.
type SettingUpdate struct {
	Key   string `json:"key" validate:"required"`
	Value string `json:"value"`
}

// Validate validates the SettingUpdate using the validator.
func (r *SettingUpdate) Validate() error {
	return NewValidator().Struct(r)
}
