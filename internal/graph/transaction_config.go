package graph

import (
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// TransactionConfig carries a timeout and metadata for one class of graph
// operation. Neo4j logs the metadata in query.log.
type TransactionConfig struct {
	Timeout  time.Duration
	Metadata map[string]any
}

const (
	OpSchema = "schema"
	OpWrite  = "graph_write"
	OpExpand = "graph_expand"
	OpStats  = "graph_stats"
)

var transactionConfigs = map[string]TransactionConfig{
	OpSchema: {
		Timeout:  2 * time.Minute,
		Metadata: map[string]any{"operation": OpSchema, "type": "schema"},
	},
	OpWrite: {
		Timeout:  3 * time.Minute,
		Metadata: map[string]any{"operation": OpWrite, "type": "write"},
	},
	// expansion runs once per retrieved chunk on the interactive path
	OpExpand: {
		Timeout:  10 * time.Second,
		Metadata: map[string]any{"operation": OpExpand, "type": "read"},
	},
	OpStats: {
		Timeout:  30 * time.Second,
		Metadata: map[string]any{"operation": OpStats, "type": "read"},
	},
}

// GetConfigForOperation returns the config for an operation, or a 60s
// default for unknown ones.
func GetConfigForOperation(operation string) TransactionConfig {
	if cfg, ok := transactionConfigs[operation]; ok {
		return cfg
	}
	return TransactionConfig{
		Timeout:  60 * time.Second,
		Metadata: map[string]any{"operation": operation, "type": "unknown"},
	}
}

// AsNeo4jConfig converts to transaction options for ExecuteRead/ExecuteWrite.
func (tc TransactionConfig) AsNeo4jConfig() []func(*neo4j.TransactionConfig) {
	var configs []func(*neo4j.TransactionConfig)
	if tc.Timeout > 0 {
		configs = append(configs, neo4j.WithTxTimeout(tc.Timeout))
	}
	if len(tc.Metadata) > 0 {
		configs = append(configs, neo4j.WithTxMetadata(tc.Metadata))
	}
	return configs
}
