// Package database owns the driver's SQLite cache file.
//
// The cache exists so a restart does not depend on the Govee cloud:
// the device registry hydrates from the devices table and the remote
// gets its pages immediately, with live state backfilled once discovery
// runs. WAL mode keeps API reads from blocking behind a discovery write.
//
// Schema changes are embedded SQL migrations (see migrations.go and the
// top-level migrations directory); Migrate runs on every start and is
// idempotent.
//
// All queries use parameterised statements and the file is chmod'd to
// 0600 since device names can leak household details.
package database
