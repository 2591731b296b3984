package models

// Category groups incidents and carries a risk level between 1 and 4.
type Category struct {
	ID          int64   `db:"id" json:"id"`
	Title       string  `db:"title" json:"title"`
	Description string  `db:"description" json:"description"`
	RiskLevelID int64   `db:"risk_level_id" json:"risk_level_id"`
	RiskLevel   string  `db:"risk_level" json:"risk_level,omitempty"`
	Signals     *string `db:"signals" json:"signals,omitempty"`
	Prevention  *string `db:"prevention" json:"prevention,omitempty"`
	Actions     *string `db:"actions" json:"actions,omitempty"`
	Examples    *string `db:"examples" json:"examples,omitempty"`
}

const (
	MinRiskLevel int64 = 1
	MaxRiskLevel int64 = 4
)

type CreateCategoryInput struct {
	Title       string  `json:"title" binding:"required"`
	Description string  `json:"description" binding:"required"`
	RiskLevelID int64   `json:"risk_level_id" binding:"required,min=1,max=4"`
	Signals     *string `json:"signals"`
	Prevention  *string `json:"prevention"`
	Actions     *string `json:"actions"`
	Examples    *string `json:"examples"`
}
