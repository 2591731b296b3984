package models

// Evidence is a file attached to an incident. URL is the storage key.
type Evidence struct {
	ID         int64  `db:"id" json:"id"`
	IncidentID int64  `db:"incident_id" json:"incident_id"`
	URL        string `db:"url" json:"url"`
}
