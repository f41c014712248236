package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDomainConfig(t *testing.T) {
	def := LoadDomainConfig("")
	assert.Equal(t, CurrentSchemaVersion, def.SchemaVersion)
	assert.Equal(t, 5*time.Minute, def.AutosaveInterval)
	assert.Equal(t, 10, def.BackupRetention)
	assert.Equal(t, 100, def.MaxMigrationHops)
	assert.NoError(t, def.Validate())

	dev := LoadDomainConfig("development")
	assert.Equal(t, time.Minute, dev.AutosaveInterval)
	assert.True(t, dev.EnableWeightedComplexity)

	assert.Equal(t, def, LoadDomainConfig("production"))
}

func TestDomainConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*DomainConfig)
	}{
		{"empty schema version", func(c *DomainConfig) { c.SchemaVersion = "" }},
		{"zero hop limit", func(c *DomainConfig) { c.MaxMigrationHops = 0 }},
		{"zero autosave interval", func(c *DomainConfig) { c.AutosaveInterval = 0 }},
		{"negative retention", func(c *DomainConfig) { c.BackupRetention = -1 }},
		{"strength above one", func(c *DomainConfig) { c.DefaultRelationshipStrength = 1.5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultDomainConfig()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}
