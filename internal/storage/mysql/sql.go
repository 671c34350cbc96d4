package mysql

const insertHistoryPrefix = "INSERT INTO price_history\n  (property_id, kind, checkin_date, price, occupancy_level, is_overwrite)\nVALUES "

// VALUES(col) keeps compatibility with MySQL 5.7 and 8.0.
const insertHistoryOnDup = " ON DUPLICATE KEY UPDATE\n" +
	"  price           = VALUES(price),\n" +
	"  occupancy_level = VALUES(occupancy_level),\n" +
	"  is_overwrite    = VALUES(is_overwrite),\n" +
	"  updated_at      = CURRENT_TIMESTAMP\n"

const insertMissSQL = `
INSERT INTO sync_misses (property_id, http_status, reason)
VALUES (?, ?, ?)
ON DUPLICATE KEY UPDATE http_status = VALUES(http_status), seen_at = CURRENT_TIMESTAMP
`

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

// Half-open month range so the (property_id, kind, checkin_date) key is used.
const listHistorySQL = `
SELECT
  checkin_date,
  price,
  occupancy_level,
  is_overwrite
FROM price_history
WHERE property_id = ? AND kind = ? AND checkin_date >= ? AND checkin_date < ?
ORDER BY checkin_date
`
