package config

// Config holds everything the CLI needs to reach the backing stores.
// Lambda deployments bypass this and read the environment directly.
type Config struct {
	// DynamoDB table names
	EventsTable     string `koanf:"events_table"`
	SourcesTable    string `koanf:"sources_table"`
	OperationsTable string `koanf:"operations_table"`

	// S3 bucket for raw content archiving; empty disables archiving
	ArchiveBucket string `koanf:"archive_bucket"`

	// HTTP fetch timeout in seconds
	FetchTimeout int `koanf:"fetch_timeout"`
}

// New returns the default configuration.
func New() *Config {
	return &Config{
		EventsTable:     "yakima-events",
		SourcesTable:    "yakima-event-sources",
		OperationsTable: "yakima-scraping-operations",
		FetchTimeout:    30,
	}
}
