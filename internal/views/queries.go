package views

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"pixelview/internal/config"
)

// ViewPage represents one fixed-size page of the event log for a path.
// Finished is true when this is the last page.
type ViewPage struct {
	Data     []View `json:"data"`
	Finished bool   `json:"finished"`
}

// GetViewPage retrieves one page of views for a tracked path, ordered by date
// ascending with id as a stable tiebreak. Repeated calls with successive page
// numbers reconstruct the complete ordered log: pages never overlap and never
// skip rows.
func GetViewPage(db *gorm.DB, path string, page int) (ViewPage, error) {
	if page < 0 {
		page = 0
	}
	pageSize := config.GetConfig().ViewsPageSize

	data := make([]View, 0, pageSize)
	err := db.Where("path = ?", path).
		Order("date ASC, id ASC").
		Limit(pageSize).
		Offset(page * pageSize).
		Find(&data).Error
	if err != nil {
		return ViewPage{}, err
	}

	return ViewPage{
		Data:     data,
		Finished: len(data) < pageSize,
	}, nil
}

// GetAllViews loads the complete ordered event log for a path. The walk uses
// a (date, id) keyset cursor instead of page offsets: the retention job
// deletes the oldest rows in batches, and an offset walk racing those deletes
// would shift later pages and skip events.
func GetAllViews(db *gorm.DB, path string) ([]View, error) {
	pageSize := config.GetConfig().ViewsPageSize

	var all []View
	var cursorDate time.Time
	var cursorID uint
	first := true

	for {
		batch := make([]View, 0, pageSize)
		query := db.Where("path = ?", path)
		if !first {
			query = query.Where("(date, id) > (?, ?)", cursorDate, cursorID)
		}
		err := query.Order("date ASC, id ASC").Limit(pageSize).Find(&batch).Error
		if err != nil {
			return nil, err
		}

		all = append(all, batch...)
		if len(batch) < pageSize {
			return all, nil
		}

		last := batch[len(batch)-1]
		cursorDate, cursorID = last.Date, last.ID
		first = false
	}
}

// GetViewCount returns the current counter value for a path, 0 when the path
// has never been recorded.
func GetViewCount(db *gorm.DB, path string) (int64, error) {
	var counter ViewCount
	err := db.Where("path = ?", path).First(&counter).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return counter.Count, nil
}
