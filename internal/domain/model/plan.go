package model

import (
	"time"
)

// DefaultCurrency is used when a plan does not name one.
const DefaultCurrency = "INR"

// Plan is a purchasable subscription tier. Prices are stored in minor units
// (paise for INR) to avoid float rounding.
type Plan struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	Description         string    `json:"description"`
	Price               int64     `json:"price"`
	Currency            string    `json:"currency"`
	DurationDays        int       `json:"duration_days"`
	Features            []string  `json:"features"`
	ProjectAccess       int       `json:"project_access"`
	MentorshipHours     int       `json:"mentorship_hours"`
	CertificateIncluded bool      `json:"certificate_included"`
	IsActive            bool      `json:"is_active"`
	DisplayOrder        int       `json:"display_order"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func (p *Plan) IsZero() bool { return p == nil || p.ID == "" }

// Duration returns the entitlement window granted by the plan.
func (p *Plan) Duration() time.Duration {
	return time.Duration(p.DurationDays) * 24 * time.Hour
}

// PlanInput carries the admin-editable fields of a plan.
type PlanInput struct {
	Name                string   `json:"name" validate:"required,max=120"`
	Description         string   `json:"description" validate:"required"`
	Price               int64    `json:"price" validate:"gte=0"`
	Currency            string   `json:"currency" validate:"omitempty,len=3,alpha"`
	DurationDays        int      `json:"duration_days" validate:"required,gt=0"`
	Features            []string `json:"features" validate:"dive,required"`
	ProjectAccess       int      `json:"project_access" validate:"gte=0"`
	MentorshipHours     int      `json:"mentorship_hours" validate:"gte=0"`
	CertificateIncluded bool     `json:"certificate_included"`
	IsActive            *bool    `json:"is_active"`
	DisplayOrder        int      `json:"display_order"`
}

// Apply copies the input onto p. Unset IsActive keeps the current value,
// which for a fresh plan is true.
func (in PlanInput) Apply(p *Plan) {
	p.Name = in.Name
	p.Description = in.Description
	p.Price = in.Price
	p.Currency = in.Currency
	if p.Currency == "" {
		p.Currency = DefaultCurrency
	}
	p.DurationDays = in.DurationDays
	p.Features = append([]string(nil), in.Features...)
	p.ProjectAccess = in.ProjectAccess
	p.MentorshipHours = in.MentorshipHours
	p.CertificateIncluded = in.CertificateIncluded
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	p.DisplayOrder = in.DisplayOrder
}
