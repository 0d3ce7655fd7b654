package echoapi

import (
	"github.com/go-playground/validator/v10"

	"github.com/kozihq/kozi/core"
)

type LoginRequest struct {
	Email string `json:"email" validate:"required,looseemail"`
}

func (r *LoginRequest) Validate(validate *validator.Validate) error {
	r.Email = core.CleanString(r.Email, true /* lower */)
	return validate.Struct(r)
}

type TextSubmissionRequest struct {
	AssignmentKey string `json:"assignment_key" validate:"required"`
	Filename      string `json:"filename"`
	Text          string `json:"text" validate:"required"`
}

func (r *TextSubmissionRequest) Validate(validate *validator.Validate) error {
	r.AssignmentKey = core.CleanString(r.AssignmentKey)
	r.Filename = core.CleanString(r.Filename)
	return validate.Struct(r)
}

type EventRequest struct {
	Event   string                 `json:"event" validate:"required"`
	Payload map[string]interface{} `json:"payload"`
}

func (r *EventRequest) Validate(validate *validator.Validate) error {
	r.Event = core.CleanString(r.Event)
	return validate.Struct(r)
}

type InstructorLoginRequest struct {
	PIN string `json:"pin" validate:"required"`
}

func (r *InstructorLoginRequest) Validate(validate *validator.Validate) error {
	r.PIN = core.CleanString(r.PIN)
	return validate.Struct(r)
}

// SubmissionResponse mirrors what was persisted for a submission.
type SubmissionResponse struct {
	Handle        string `json:"handle"`
	AssignmentKey string `json:"assignment_key"`
	Filename      string `json:"filename"`
	SavedAt       string `json:"saved_at"`
}
