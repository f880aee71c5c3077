package queries

// GetMemoryGraphQuery reads the graph, bootstrapping it when none is
// persisted. Reset forces a cold rebuild.
type GetMemoryGraphQuery struct {
	Reset bool `json:"reset"`
}

// Validate validates the query
func (q GetMemoryGraphQuery) Validate() error {
	return nil
}
