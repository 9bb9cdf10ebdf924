package models

import "time"

// Scan outcomes recorded on the audit trail.
const (
	ScanMatched     = "matched"
	ScanUnmatched   = "unmatched"
	ScanAmbiguous   = "ambiguous"
	ScanOutOfWindow = "out_of_window"
)

// ScanLog is the append-only audit trail. Every raw scan lands here
// verbatim, matched or not, and is pruned only by the retention sweep.
type ScanLog struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
	BatchID    string    `gorm:"not null;size:36;index" json:"batch_id"`
	DeviceID   string    `gorm:"size:50" json:"device_id"`
	DeviceUser string    `gorm:"size:50" json:"device_user"`
	RawName    string    `gorm:"not null;size:200" json:"raw_name"`
	Mode       string    `gorm:"size:20" json:"mode"`
	Site       string    `gorm:"size:50" json:"site"`
	ScannedAt  time.Time `gorm:"not null;index" json:"scanned_at"`
	Outcome    string    `gorm:"not null;size:20" json:"outcome"`
	EmployeeID *uint     `gorm:"index" json:"employee_id,omitempty"`
}

// UnresolvedScan is a scan the pipeline could not reconcile automatically:
// no name match, an ambiguity the timing tie-break could not settle, or a
// punch outside every window of the employee's shift pattern.
type UnresolvedScan struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	BatchID    string    `gorm:"not null;size:36;index" json:"batch_id"`
	RawName    string    `gorm:"not null;size:200" json:"raw_name"`
	ScannedAt  time.Time `gorm:"not null" json:"scanned_at"`
	Site       string    `gorm:"size:50" json:"site"`
	Reason     string    `gorm:"not null;size:30" json:"reason"`
	Candidates string    `gorm:"size:200" json:"candidates,omitempty"` // comma-joined employee ids
	Resolved   bool      `gorm:"not null;default:false;index" json:"resolved"`
}
