package handler

import "huanbo/internal/contact/validation"

// ContactResponse is the body of every /api/contact answer.
type ContactResponse struct {
	Success      bool                    `json:"success"`
	Message      string                  `json:"message"`
	Errors       []validation.FieldError `json:"errors,omitempty"`
	SubmissionID string                  `json:"submissionId,omitempty"`
}
