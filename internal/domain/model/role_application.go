package model

import (
	"bytes"
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/guttosm/campus-access/internal/apperror"
	"github.com/guttosm/campus-access/internal/rbac"
)

// ApplicationStatus is the lifecycle state of a role application.
type ApplicationStatus string

// Application states. Pending is the only non-terminal state.
const (
	StatusPending   ApplicationStatus = "pending"
	StatusApproved  ApplicationStatus = "approved"
	StatusRejected  ApplicationStatus = "rejected"
	StatusWithdrawn ApplicationStatus = "withdrawn"
)

// DefaultReapplyCooldown is how long a rejection blocks a new application for the same role.
const DefaultReapplyCooldown = 30 * 24 * time.Hour

// ParseApplicationStatus converts a string into a known status.
func ParseApplicationStatus(s string) (ApplicationStatus, bool) {
	switch st := ApplicationStatus(s); st {
	case StatusPending, StatusApproved, StatusRejected, StatusWithdrawn:
		return st, true
	}
	return "", false
}

// IsTerminal reports whether no further transition is allowed.
func (s ApplicationStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusWithdrawn
}

// IsReviewOutcome reports whether an admin may set this status.
func (s ApplicationStatus) IsReviewOutcome() bool {
	return s == StatusApproved || s == StatusRejected
}

// CanTransitionTo reports whether the state machine allows s -> next.
func (s ApplicationStatus) CanTransitionTo(next ApplicationStatus) bool {
	return s == StatusPending && next.IsTerminal()
}

// Document is a supporting file attached to an application.
type Document struct {
	Type     string `bson:"type" json:"type" validate:"required,oneof=resume certificate portfolio identity other"`
	URL      string `bson:"url" json:"url" validate:"required,url"`
	Name     string `bson:"name" json:"name" validate:"required,max=255"`
	MimeType string `bson:"mime_type" json:"mime_type" validate:"required"`
	Size     int64  `bson:"size" json:"size" validate:"gte=0,lte=10485760"`
}

// StudentData is the payload of a student application.
type StudentData struct {
	EducationLevel string   `bson:"education_level" json:"education_level" validate:"required,oneof=high_school undergraduate graduate other"`
	Interests      []string `bson:"interests" json:"interests" validate:"required,min=1,max=10,dive,required"`
	LearningGoals  string   `bson:"learning_goals" json:"learning_goals" validate:"required,min=10,max=1000"`
}

// MentorData is the payload of a mentor application.
type MentorData struct {
	Expertise         []string `bson:"expertise" json:"expertise" validate:"required,min=1,max=10,dive,required"`
	YearsOfExperience int      `bson:"years_of_experience" json:"years_of_experience" validate:"gte=1,lte=60"`
	Qualifications    string   `bson:"qualifications" json:"qualifications" validate:"required,min=10,max=2000"`
	HourlyRate        float64  `bson:"hourly_rate,omitempty" json:"hourly_rate,omitempty" validate:"gte=0"`
	LinkedInURL       string   `bson:"linkedin_url,omitempty" json:"linkedin_url,omitempty" validate:"omitempty,url"`
}

// WriterData is the payload of a writer application.
type WriterData struct {
	PortfolioURL      string   `bson:"portfolio_url" json:"portfolio_url" validate:"required,url"`
	Topics            []string `bson:"topics" json:"topics" validate:"required,min=1,max=10,dive,required"`
	WritingSamples    []string `bson:"writing_samples,omitempty" json:"writing_samples,omitempty" validate:"max=5,dive,url"`
	PublishedArticles int      `bson:"published_articles" json:"published_articles" validate:"gte=0"`
}

// SellerData is the payload of a seller application.
type SellerData struct {
	BusinessName      string   `bson:"business_name" json:"business_name" validate:"required,max=200"`
	BusinessType      string   `bson:"business_type" json:"business_type" validate:"required,oneof=individual company nonprofit"`
	TaxID             string   `bson:"tax_id,omitempty" json:"tax_id,omitempty" validate:"omitempty,max=50"`
	Website           string   `bson:"website,omitempty" json:"website,omitempty" validate:"omitempty,url"`
	ProductCategories []string `bson:"product_categories" json:"product_categories" validate:"required,min=1,max=10,dive,required"`
}

// ApplicationData is a tagged union keyed by the requested role.
// Exactly one variant is set.
type ApplicationData struct {
	Student *StudentData `bson:"student,omitempty" json:"student,omitempty"`
	Mentor  *MentorData  `bson:"mentor,omitempty" json:"mentor,omitempty"`
	Writer  *WriterData  `bson:"writer,omitempty" json:"writer,omitempty"`
	Seller  *SellerData  `bson:"seller,omitempty" json:"seller,omitempty"`
}

// Role returns the role of the set variant. It reports false when zero or several
// variants are set.
func (d ApplicationData) Role() (rbac.Role, bool) {
	var role rbac.Role
	n := 0
	if d.Student != nil {
		role, n = rbac.RoleStudent, n+1
	}
	if d.Mentor != nil {
		role, n = rbac.RoleMentor, n+1
	}
	if d.Writer != nil {
		role, n = rbac.RoleWriter, n+1
	}
	if d.Seller != nil {
		role, n = rbac.RoleSeller, n+1
	}
	return role, n == 1
}

// Payload returns the set variant.
func (d ApplicationData) Payload() any {
	switch {
	case d.Student != nil:
		return d.Student
	case d.Mentor != nil:
		return d.Mentor
	case d.Writer != nil:
		return d.Writer
	case d.Seller != nil:
		return d.Seller
	}
	return nil
}

// DecodeApplicationData decodes the role-specific payload. Unknown fields are rejected.
func DecodeApplicationData(role rbac.Role, raw json.RawMessage) (ApplicationData, error) {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return ApplicationData{}, apperror.NewValidationError("fields", "application data is required")
	}

	var data ApplicationData
	var target any
	switch role {
	case rbac.RoleStudent:
		data.Student = &StudentData{}
		target = data.Student
	case rbac.RoleMentor:
		data.Mentor = &MentorData{}
		target = data.Mentor
	case rbac.RoleWriter:
		data.Writer = &WriterData{}
		target = data.Writer
	case rbac.RoleSeller:
		data.Seller = &SellerData{}
		target = data.Seller
	default:
		return ApplicationData{}, apperror.NewValidationError("role", "role cannot be applied for")
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return ApplicationData{}, apperror.NewValidationError("fields", err.Error())
	}
	return data, nil
}

// RoleApplication is a user's request to acquire a new role. Data is the validated form
// of the payload; Fields holds the bytes the applicant submitted and is what gets returned.
type RoleApplication struct {
	ID            primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	ApplicantID   primitive.ObjectID  `bson:"applicant_id" json:"applicant_id"`
	CurrentRole   rbac.Role           `bson:"current_role" json:"current_role"`
	RequestedRole rbac.Role           `bson:"requested_role" json:"requested_role"`
	Reason        string              `bson:"reason" json:"reason"`
	Data          ApplicationData     `bson:"application_data" json:"application_data"`
	Fields        json.RawMessage     `bson:"fields,omitempty" json:"-"`
	Documents     []Document          `bson:"documents" json:"documents"`
	Status        ApplicationStatus   `bson:"status" json:"status"`
	AppliedAt     time.Time           `bson:"applied_at" json:"applied_at"`
	ReviewedAt    *time.Time          `bson:"reviewed_at,omitempty" json:"reviewed_at,omitempty"`
	ReviewedBy    *primitive.ObjectID `bson:"reviewed_by,omitempty" json:"reviewed_by,omitempty"`
	AdminNotes    string              `bson:"admin_notes,omitempty" json:"admin_notes,omitempty"`
	WithdrawnAt   *time.Time          `bson:"withdrawn_at,omitempty" json:"withdrawn_at,omitempty"`
	UpdatedAt     time.Time           `bson:"updated_at" json:"updated_at"`
}

// SubmittedFields returns the payload as submitted, falling back to the typed variant
// for records stored without the raw bytes.
func (a *RoleApplication) SubmittedFields() any {
	if len(a.Fields) > 0 {
		return a.Fields
	}
	return a.Data.Payload()
}

// ReapplyAvailableAt returns when a rejected application stops blocking a new one.
func (a *RoleApplication) ReapplyAvailableAt(cooldown time.Duration) (time.Time, bool) {
	if a.Status != StatusRejected || a.ReviewedAt == nil {
		return time.Time{}, false
	}
	return a.ReviewedAt.Add(cooldown), true
}

// BlocksReapplication reports whether the application prevents a new application for the
// same role at now. A rejection reviewed at T blocks until T+cooldown, exclusive.
func (a *RoleApplication) BlocksReapplication(now time.Time, cooldown time.Duration) bool {
	if a.Status == StatusPending {
		return true
	}
	availableAt, ok := a.ReapplyAvailableAt(cooldown)
	return ok && now.Before(availableAt)
}

// ApplicationFilter selects applications for listing.
type ApplicationFilter struct {
	ApplicantID *primitive.ObjectID
	Status      ApplicationStatus
	Role        rbac.Role
	Page        int
	Limit       int
}

// Normalize clamps pagination to sane bounds.
func (f *ApplicationFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
}

// Skip returns the number of records preceding the requested page.
func (f ApplicationFilter) Skip() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}
