package kv

// Config holds configuration for the DynamoDB-backed Store.
type Config struct {
	// DataTable is the name of the table holding record bodies.
	// Default: "lattice_records"
	DataTable string

	// LinksTable is the name of the table holding link edges.
	// Default: "lattice_links"
	LinksTable string

	// NumShards is the number of shards for the links table.
	// Higher values increase write throughput but require more parallel
	// queries on read.
	// Default: 1 (no sharding, single query)
	// Max: 256
	NumShards int
}

// DefaultConfig returns sensible defaults for small datasets.
func DefaultConfig() Config {
	return Config{
		DataTable:  "lattice_records",
		LinksTable: "lattice_links",
		NumShards:  1,
	}
}

// validate ensures config values are within acceptable bounds.
func (c *Config) validate() {
	if c.DataTable == "" {
		c.DataTable = "lattice_records"
	}
	if c.LinksTable == "" {
		c.LinksTable = "lattice_links"
	}
	if c.NumShards < 1 {
		c.NumShards = 1
	}
	if c.NumShards > 256 {
		c.NumShards = 256
	}
}
