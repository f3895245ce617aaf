package dto

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/guttosm/campus-access/internal/apperror"
	"github.com/guttosm/campus-access/internal/domain/model"
	"github.com/guttosm/campus-access/internal/rbac"
)

// SubmitApplicationRequest represents the JSON body for submitting a role application.
// Fields holds the role-specific payload and is decoded once the role is known.
//
// @Description Request to apply for a new role
type SubmitApplicationRequest struct {
	Role      string           `json:"role" binding:"required" example:"mentor"`
	Reason    string           `json:"reason" binding:"required" example:"I have mentored junior developers for five years and would like to run courses here."`
	Fields    json.RawMessage  `json:"fields" swaggertype:"object"`
	Documents []model.Document `json:"documents,omitempty"`
} // @name SubmitApplicationRequest

// Validate checks the request shape. Business preconditions are checked by the service.
func (r *SubmitApplicationRequest) Validate() error {
	verr := &apperror.ValidationError{}
	if _, ok := rbac.ParseRole(r.Role); !ok {
		verr.Add("role", "must be a known role")
	}
	if trimmed := bytes.TrimSpace(r.Fields); len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		verr.Add("fields", "application data is required")
	}
	if len(r.Documents) > 10 {
		verr.Add("documents", "at most 10 documents may be attached")
	}
	if verr.HasErrors() {
		return verr
	}
	return nil
}

// ReviewApplicationRequest represents the JSON body for approving or rejecting an application.
//
// @Description Admin decision on a pending application
type ReviewApplicationRequest struct {
	Status     string `json:"status" binding:"required" example:"approved"`
	AdminNotes string `json:"admin_notes,omitempty" example:"Strong portfolio."`
} // @name ReviewApplicationRequest

// Validate checks that the status is a review outcome.
func (r *ReviewApplicationRequest) Validate() error {
	verr := &apperror.ValidationError{}
	if st, ok := model.ParseApplicationStatus(r.Status); !ok || !st.IsReviewOutcome() {
		verr.Add("status", "must be approved or rejected")
	}
	if len(r.AdminNotes) > 1000 {
		verr.Add("admin_notes", "must have at most 1000 characters")
	}
	if verr.HasErrors() {
		return verr
	}
	return nil
}

// RoleApplicationResponse is the public view of an application. ApplicationData is the
// payload of the requested role, as the applicant submitted it.
type RoleApplicationResponse struct {
	ID                 string                  `json:"id" example:"65b9f1e2c3a4b5d6e7f80912"`
	ApplicantID        string                  `json:"applicant_id" example:"65b9f1e2c3a4b5d6e7f80913"`
	CurrentRole        rbac.Role               `json:"current_role" example:"user"`
	RequestedRole      rbac.Role               `json:"requested_role" example:"mentor"`
	Reason             string                  `json:"reason"`
	ApplicationData    any                     `json:"application_data" swaggertype:"object"`
	Documents          []model.Document        `json:"documents"`
	Status             model.ApplicationStatus `json:"status" example:"pending"`
	AppliedAt          time.Time               `json:"applied_at"`
	ReviewedAt         *time.Time              `json:"reviewed_at,omitempty"`
	ReviewedBy         string                  `json:"reviewed_by,omitempty"`
	AdminNotes         string                  `json:"admin_notes,omitempty"`
	WithdrawnAt        *time.Time              `json:"withdrawn_at,omitempty"`
	ReapplyAvailableAt *time.Time              `json:"reapply_available_at,omitempty"`
} // @name RoleApplicationResponse

// NewRoleApplicationResponse converts an application into its public view.
func NewRoleApplicationResponse(a *model.RoleApplication, cooldown time.Duration) RoleApplicationResponse {
	resp := RoleApplicationResponse{
		ID:              a.ID.Hex(),
		ApplicantID:     a.ApplicantID.Hex(),
		CurrentRole:     a.CurrentRole,
		RequestedRole:   a.RequestedRole,
		Reason:          a.Reason,
		ApplicationData: a.SubmittedFields(),
		Documents:       a.Documents,
		Status:          a.Status,
		AppliedAt:       a.AppliedAt,
		ReviewedAt:      a.ReviewedAt,
		AdminNotes:      a.AdminNotes,
		WithdrawnAt:     a.WithdrawnAt,
	}
	if resp.Documents == nil {
		resp.Documents = []model.Document{}
	}
	if a.ReviewedBy != nil {
		resp.ReviewedBy = a.ReviewedBy.Hex()
	}
	if at, ok := a.ReapplyAvailableAt(cooldown); ok {
		resp.ReapplyAvailableAt = &at
	}
	return resp
}

// NewRoleApplicationResponses converts a list of applications.
func NewRoleApplicationResponses(apps []*model.RoleApplication, cooldown time.Duration) []RoleApplicationResponse {
	out := make([]RoleApplicationResponse, 0, len(apps))
	for _, a := range apps {
		out = append(out, NewRoleApplicationResponse(a, cooldown))
	}
	return out
}
