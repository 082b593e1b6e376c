package service

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
)

// OrderNumberGenerator produces human-readable order numbers. Uniqueness is
// ultimately enforced by the storage layer.
type OrderNumberGenerator interface {
	Next() string
}

// SnowflakeNumbers generates time-ordered numbers like ORD-1K3XZ9Q8W2A.
type SnowflakeNumbers struct {
	node *snowflake.Node
}

// NewSnowflakeNumbers creates a generator for the given node id (0-1023).
// Processes sharing a database should use distinct node ids.
func NewSnowflakeNumbers(nodeID int64) (*SnowflakeNumbers, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("order numbers: %w", err)
	}
	return &SnowflakeNumbers{node: node}, nil
}

func (g *SnowflakeNumbers) Next() string {
	return "ORD-" + strings.ToUpper(g.node.Generate().Base36())
}
