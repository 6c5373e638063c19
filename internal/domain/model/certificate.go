package model

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

type CertificateStatus string

const (
	CertificateStatusActive  CertificateStatus = "active"
	CertificateStatusRevoked CertificateStatus = "revoked"
)

func (s CertificateStatus) Valid() bool {
	switch s {
	case CertificateStatusActive, CertificateStatusRevoked:
		return true
	}
	return false
}

// CanTransitionTo reports whether s -> next is allowed. Revoked is terminal.
func (s CertificateStatus) CanTransitionTo(next CertificateStatus) bool {
	switch s {
	case CertificateStatusActive:
		return next == CertificateStatusRevoked
	case CertificateStatusRevoked:
		return false
	}
	return false
}

const certificateIDPrefix = "VIEP-"

// NewCertificateID returns a public certificate code: a ULID whose 80 random
// bits come from crypto/rand.
func NewCertificateID(now time.Time) (string, error) {
	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return "", err
	}
	return certificateIDPrefix + id.String(), nil
}

// VerificationURL builds the public verification link for a certificate code.
func VerificationURL(baseURL, certificateID string) string {
	return strings.TrimRight(baseURL, "/") + "/verify-certificate/" + certificateID
}

// Certificate is a credential proving completion of a project engagement.
type Certificate struct {
	ID                string            `json:"id"`
	CertificateID     string            `json:"certificate_id"`
	UserID            string            `json:"user_id"`
	ProjectID         string            `json:"project_id"`
	UserName          string            `json:"user_name"`
	ProjectTitle      string            `json:"project_title"`
	CompletionDate    time.Time         `json:"completion_date"`
	IssueDate         time.Time         `json:"issue_date"`
	TechStack         []string          `json:"tech_stack"`
	Tools             []string          `json:"tools"`
	Skills            []string          `json:"skills"`
	DurationWeeks     int               `json:"duration_weeks"`
	MentorID          *string           `json:"mentor_id,omitempty"`
	MentorName        string            `json:"mentor_name,omitempty"`
	PerformanceRating int               `json:"performance_rating,omitempty"`
	QRCode            string            `json:"qr_code,omitempty"`
	PDFURL            string            `json:"pdf_url,omitempty"`
	VerificationURL   string            `json:"verification_url"`
	Status            CertificateStatus `json:"status"`
	RevokedAt         *time.Time        `json:"revoked_at,omitempty"`
	RevokeReason      string            `json:"revoke_reason,omitempty"`
	RevokedBy         string            `json:"revoked_by,omitempty"`
	DownloadCount     int64             `json:"download_count"`
	VerificationCount int64             `json:"verification_count"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// CertificateView is what the public verification endpoint discloses.
type CertificateView struct {
	CertificateID     string    `json:"certificate_id"`
	UserName          string    `json:"user_name"`
	ProjectTitle      string    `json:"project_title"`
	CompletionDate    time.Time `json:"completion_date"`
	IssueDate         time.Time `json:"issue_date"`
	TechStack         []string  `json:"tech_stack"`
	Tools             []string  `json:"tools"`
	Skills            []string  `json:"skills"`
	DurationWeeks     int       `json:"duration_weeks"`
	MentorName        string    `json:"mentor_name,omitempty"`
	PerformanceRating int       `json:"performance_rating,omitempty"`
	VerificationURL   string    `json:"verification_url"`
	VerificationCount int64     `json:"verification_count"`
}

func (c *Certificate) View() *CertificateView {
	return &CertificateView{
		CertificateID:     c.CertificateID,
		UserName:          c.UserName,
		ProjectTitle:      c.ProjectTitle,
		CompletionDate:    c.CompletionDate,
		IssueDate:         c.IssueDate,
		TechStack:         c.TechStack,
		Tools:             c.Tools,
		Skills:            c.Skills,
		DurationWeeks:     c.DurationWeeks,
		MentorName:        c.MentorName,
		PerformanceRating: c.PerformanceRating,
		VerificationURL:   c.VerificationURL,
		VerificationCount: c.VerificationCount,
	}
}

// IssueInput is supplied by the mentor/admin flow that marks an engagement complete.
type IssueInput struct {
	UserID            string    `json:"user_id" validate:"required"`
	ProjectID         string    `json:"project_id" validate:"required"`
	UserName          string    `json:"user_name" validate:"required,max=200"`
	ProjectTitle      string    `json:"project_title" validate:"required,max=300"`
	CompletionDate    time.Time `json:"completion_date" validate:"required"`
	TechStack         []string  `json:"tech_stack" validate:"dive,required"`
	Tools             []string  `json:"tools" validate:"dive,required"`
	Skills            []string  `json:"skills" validate:"dive,required"`
	DurationWeeks     int       `json:"duration_weeks" validate:"gte=0"`
	MentorID          string    `json:"mentor_id"`
	MentorName        string    `json:"mentor_name" validate:"max=200"`
	PerformanceRating int       `json:"performance_rating" validate:"omitempty,min=1,max=5"`
	QRCode            string    `json:"qr_code"`
	PDFURL            string    `json:"pdf_url" validate:"omitempty,url"`
}

// DownloadRef is the stored artifact reference handed to the owner.
type DownloadRef struct {
	CertificateID string `json:"certificate_id"`
	PDFURL        string `json:"pdf_url"`
}
