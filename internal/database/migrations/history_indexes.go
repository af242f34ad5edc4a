package migrations

import "gorm.io/gorm"

// Ordering indexes for the history queries: recent syncs newest first and
// glucose lookups by reading time. AutoMigrate only creates indexes that
// are declared on the model tags, so descending ones land here.
func init() {
	Register("20250301_history_query_indexes",
		func(db *gorm.DB) error {
			if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_sync_records_synced_at ON sync_records (synced_at DESC)").Error; err != nil {
				return err
			}
			return db.Exec("CREATE INDEX IF NOT EXISTS idx_glucose_records_timestamp ON glucose_records (timestamp DESC)").Error
		},
		func(db *gorm.DB) error {
			if err := db.Exec("DROP INDEX IF EXISTS idx_glucose_records_timestamp").Error; err != nil {
				return err
			}
			return db.Exec("DROP INDEX IF EXISTS idx_sync_records_synced_at").Error
		},
	)
}
