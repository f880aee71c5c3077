package commands

import (
	"encoding/json"
	"errors"

	"memgraph/pkg/utils"
)

// SaveGraphCommand replaces the canonical graph with a client-submitted one.
// The payload is repaired, never rejected, as long as it is JSON.
type SaveGraphCommand struct {
	Graph   json.RawMessage `json:"graph"`
	Reindex *bool           `json:"reindex,omitempty"`
}

// Validate validates the command
func (c SaveGraphCommand) Validate() error {
	if len(c.Graph) > 0 && !json.Valid(c.Graph) {
		return errors.New("graph must be valid JSON")
	}
	return nil
}

// ShouldReindex defaults to true when the flag is omitted
func (c SaveGraphCommand) ShouldReindex() bool {
	return c.Reindex == nil || *c.Reindex
}

// PublishMemoryCommand upserts the snapshot section into the memory document.
type PublishMemoryCommand struct {
	Reindex *bool `json:"reindex,omitempty"`
}

// Validate validates the command
func (c PublishMemoryCommand) Validate() error {
	return nil
}

// ShouldReindex defaults to true when the flag is omitted
func (c PublishMemoryCommand) ShouldReindex() bool {
	return c.Reindex == nil || *c.Reindex
}

// ReindexCommand refreshes the chunk index synchronously.
type ReindexCommand struct {
	Trigger string `json:"trigger" validate:"required,oneof=save publish watch manual event"`
}

// Validate validates the command
func (c ReindexCommand) Validate() error {
	return utils.ValidateStruct(c)
}
