package models

import "time"

// Incident statuses seeded in incident_statuses.
const (
	StatusPending   int64 = 1
	StatusInReview  int64 = 2
	StatusWithdrawn int64 = 3
	StatusResolved  int64 = 4
	StatusRejected  int64 = 5
)

var statusNames = map[int64]string{
	StatusPending:   "pending",
	StatusInReview:  "in_review",
	StatusWithdrawn: "withdrawn",
	StatusResolved:  "resolved",
	StatusRejected:  "rejected",
}

// StatusName returns the seeded name of a status, or "unknown".
func StatusName(id int64) string {
	if name, ok := statusNames[id]; ok {
		return name
	}
	return "unknown"
}

// ValidStatus reports whether id names a seeded incident status.
func ValidStatus(id int64) bool {
	return id >= StatusPending && id <= StatusRejected
}

// Incident is a reported security incident. UserID is the owning user.
type Incident struct {
	ID            int64      `db:"id" json:"id"`
	Title         string     `db:"title" json:"title"`
	CategoryID    int64      `db:"category_id" json:"category_id"`
	AttackerName  *string    `db:"attacker_name" json:"attacker_name,omitempty"`
	Phone         *string    `db:"phone_enc" json:"phone,omitempty"`
	Email         *string    `db:"email_enc" json:"email,omitempty"`
	SocialUser    *string    `db:"social_user_enc" json:"social_user,omitempty"`
	SocialNetwork *string    `db:"social_network" json:"social_network,omitempty"`
	Description   string     `db:"description" json:"description"`
	UserID        int64      `db:"user_id" json:"user_id"`
	SupervisorID  *int64     `db:"supervisor_id" json:"supervisor_id,omitempty"`
	StatusID      int64      `db:"status_id" json:"status_id"`
	IsAnonymous   bool       `db:"is_anonymous" json:"is_anonymous"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
	Evidence      []Evidence `db:"-" json:"evidence,omitempty"`
}

// CreateIncidentInput is bound from the multipart form of POST /incidents.
type CreateIncidentInput struct {
	Title         string  `form:"title" binding:"required"`
	CategoryID    int64   `form:"category_id" binding:"required,gt=0"`
	AttackerName  *string `form:"attacker_name"`
	Phone         *string `form:"phone"`
	Email         *string `form:"email" binding:"omitempty,email"`
	SocialUser    *string `form:"social_user"`
	SocialNetwork *string `form:"social_network"`
	Description   string  `form:"description" binding:"required"`
	SupervisorID  *int64  `form:"supervisor_id"`
	IsAnonymous   bool    `form:"is_anonymous"`
}

// UpdateIncidentInput is bound from the multipart form of PUT /incidents/:id.
type UpdateIncidentInput struct {
	Title            *string `form:"title"`
	CategoryID       *int64  `form:"category_id" binding:"omitempty,gt=0"`
	AttackerName     *string `form:"attacker_name"`
	Phone            *string `form:"phone"`
	Email            *string `form:"email" binding:"omitempty,email"`
	SocialUser       *string `form:"social_user"`
	SocialNetwork    *string `form:"social_network"`
	Description      *string `form:"description"`
	EvidenceToDelete string  `form:"evidence_to_delete"`
}

// IncidentUpdate is the set of columns a repository update may touch.
type IncidentUpdate struct {
	Title         *string
	CategoryID    *int64
	AttackerName  *string
	Phone         *string
	Email         *string
	SocialUser    *string
	SocialNetwork *string
	Description   *string
	SupervisorID  *int64
	StatusID      *int64
}

// Empty reports whether the update changes nothing.
func (u IncidentUpdate) Empty() bool {
	return u.Title == nil && u.CategoryID == nil && u.AttackerName == nil &&
		u.Phone == nil && u.Email == nil && u.SocialUser == nil &&
		u.SocialNetwork == nil && u.Description == nil &&
		u.SupervisorID == nil && u.StatusID == nil
}

// EvaluateIncidentInput is the body of PATCH /admin/incidents/:id/evaluate.
type EvaluateIncidentInput struct {
	StatusID     int64  `json:"status_id" binding:"required"`
	SupervisorID *int64 `json:"supervisor_id"`
}
