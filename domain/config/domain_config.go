package config

import (
	"fmt"
	"time"
)

// CurrentSchemaVersion is the graph format this build reads and writes.
const CurrentSchemaVersion = "1.0.0"

// DomainConfig holds all configurable graph rules and constraints
type DomainConfig struct {
	// Schema
	SchemaVersion    string
	MaxMigrationHops int

	// Node defaults
	InitialNodeVersion string
	DefaultGraphName   string

	// Relationship defaults
	DefaultRelationshipStrength float64

	// Persistence
	AutosaveInterval time.Duration
	BackupRetention  int

	// Feature flags
	EnableWeightedComplexity bool
}

// DefaultDomainConfig returns the default domain configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		SchemaVersion:    CurrentSchemaVersion,
		MaxMigrationHops: 100,

		InitialNodeVersion: "1.0.0",
		DefaultGraphName:   "Untitled Project",

		DefaultRelationshipStrength: 1.0,

		AutosaveInterval: 5 * time.Minute,
		BackupRetention:  10,

		EnableWeightedComplexity: false,
	}
}

// ProductionDomainConfig returns production-specific configuration
func ProductionDomainConfig() *DomainConfig {
	return DefaultDomainConfig()
}

// DevelopmentDomainConfig returns development-specific configuration
func DevelopmentDomainConfig() *DomainConfig {
	config := DefaultDomainConfig()

	// Save more often and report the alternative statistic while iterating
	config.AutosaveInterval = time.Minute
	config.EnableWeightedComplexity = true

	return config
}

// LoadDomainConfig loads domain configuration based on environment
func LoadDomainConfig(environment string) *DomainConfig {
	switch environment {
	case "production":
		return ProductionDomainConfig()
	case "development":
		return DevelopmentDomainConfig()
	default:
		return DefaultDomainConfig()
	}
}

// Validate checks if the configuration is valid
func (c *DomainConfig) Validate() error {
	if c.SchemaVersion == "" {
		return fmt.Errorf("schema version is required")
	}
	if c.MaxMigrationHops <= 0 {
		return fmt.Errorf("max migration hops must be positive")
	}
	if c.AutosaveInterval <= 0 {
		return fmt.Errorf("autosave interval must be positive")
	}
	if c.BackupRetention < 0 {
		return fmt.Errorf("backup retention cannot be negative")
	}
	if c.DefaultRelationshipStrength < 0 || c.DefaultRelationshipStrength > 1 {
		return fmt.Errorf("default relationship strength must be within [0,1]")
	}
	return nil
}
