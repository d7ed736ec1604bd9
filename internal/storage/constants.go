package db

import "time"

// NER entity type constants, matching the enttype column values produced
// by the upstream extraction pipeline.
const (
	EntityTypePerson = "PERSON"
	EntityTypeOrg    = "ORG"
	EntityTypeGPE    = "GPE"
	EntityTypeLoc    = "LOC"
	EntityTypeNORP   = "NORP"
	EntityTypeFac    = "FAC"
)

// LocationEntityTypes groups the entity types presented as "locations"
// in the search form.
var LocationEntityTypes = []string{EntityTypeGPE, EntityTypeLoc, EntityTypeNORP, EntityTypeFac}

// Database connection constants
const (
	// ConnectionRetrySleep is the sleep duration between connection retries
	ConnectionRetrySleep = 2 * time.Second
	// maxConnectionRetries is the number of retries for initial connection
	maxConnectionRetries = 10
)

// Database pool default constants
const (
	defaultMaxConns          int32         = 25
	defaultMinConns          int32         = 5
	defaultMaxConnIdleTime   time.Duration = 30 * time.Minute
	defaultMaxConnLifetime   time.Duration = time.Hour
	defaultHealthCheckPeriod time.Duration = time.Minute
)
