//go:build !cgo

package sqlite

import _ "modernc.org/sqlite"

// CGOEnabled reports whether the registry runs on the cgo go-sqlite3 driver.
// Without cgo the pure Go modernc.org/sqlite driver is used instead.
const CGOEnabled = false

const driverName = "sqlite"
