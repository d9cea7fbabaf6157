package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	AuditCreate     = "CREATE"
	AuditUpdate     = "UPDATE"
	AuditDelete     = "DELETE"
	AuditSoftDelete = "SOFT_DELETE"
	AuditRestore    = "RESTORE"
)

// AuditLog tracks Who, What, and When for every mutation of an audited table.
// RecordID and UserID are plain columns so history survives entity deletion.
type AuditLog struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Table     string         `gorm:"column:table_name;type:varchar(100);not null;index:idx_audit_record" json:"table_name"`
	RecordID  string         `gorm:"type:varchar(64);not null;index:idx_audit_record" json:"record_id"`
	Operation string         `gorm:"type:varchar(20);not null;index" json:"operation"`
	OldValues datatypes.JSON `json:"old_values"`
	NewValues datatypes.JSON `json:"new_values"`
	UserID    *uuid.UUID     `gorm:"type:uuid;index" json:"user_id"` // Nullable for anonymous requests
	UserIP    string         `gorm:"type:varchar(45)" json:"user_ip"`
	UserAgent string         `gorm:"type:text" json:"user_agent"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	assignID(&a.ID)
	return nil
}
