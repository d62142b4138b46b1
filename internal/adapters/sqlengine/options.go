package sqlengine

// Option applies a configuration option to the Backend.
type Option func(*Backend)

// WithBatchSize sets how many rows are inserted per statement.
func WithBatchSize(n int) Option {
	return func(b *Backend) {
		if n > 0 {
			b.batchSize = n
		}
	}
}

// WithDSN overrides the SQLite data source. Each Rank call opens and closes
// its own database, so the DSN should point at a private in-memory database.
func WithDSN(dsn string) Option {
	return func(b *Backend) {
		if dsn != "" {
			b.dsn = dsn
		}
	}
}
