package db

// RebindForTest exposes the Postgres placeholder rewrite to db_test.
func RebindForTest(q string) string { return Postgres.rebind(q) }

// MigrationForTest returns the statements Migrate would run for d.
func MigrationForTest(d Dialect) string {
	ddl := d.types.Replace(schema)
	if d.reseedSerials {
		ddl += ";" + reseed
	}
	return ddl
}
