package views

import "time"

// View represents one recorded pixel hit. Rows are immutable once persisted;
// Date ordering is the canonical order for pagination and first-seen math.
// JSON field names match the dashboard's Entry contract.
type View struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Path      string    `gorm:"index:idx_views_path_date;size:512;not null" json:"path"`
	IP        string    `gorm:"column:ip" json:"ip"`
	Country   string    `json:"country"`
	Region    string    `json:"region"`
	City      string    `json:"city"`
	Latitude  string    `json:"latitude"`
	Longitude string    `json:"longitude"`
	ISP       string    `gorm:"column:isp" json:"isp"`
	UserAgent string    `json:"user_agent"`
	Host      string    `gorm:"index" json:"host"`
	Pathname  string    `json:"pathname"`
	Date      time.Time `gorm:"index:idx_views_path_date;not null" json:"date"`
}

// ViewCount is the running per-path counter. Count is only ever touched by
// the conditional upsert in RecordView, so it equals the number of
// successfully recorded views for the path under any concurrency.
type ViewCount struct {
	ID    uint   `gorm:"primaryKey;autoIncrement"`
	Path  string `gorm:"uniqueIndex;size:512;not null"`
	Count int64  `gorm:"not null;default:0"`
}
