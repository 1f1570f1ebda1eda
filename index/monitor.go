package index

// Monitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type Monitor interface {
	Start(query string)
	AfterKeywordSearch(ids []string)
	AfterVectorSearch(ids []string)
	VerbatimBoost(id string)
	Finish(matches []Match)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                {}
func (n *noopMonitor) AfterKeywordSearch(_ []string) {}
func (n *noopMonitor) AfterVectorSearch(_ []string)  {}
func (n *noopMonitor) VerbatimBoost(_ string)        {}
func (n *noopMonitor) Finish(_ []Match)              {}
