package model

// RunState is per-invocation local state for the orchestration graph.
// Concurrency model:
//   - Registered as Graph Local State via compose.WithGenLocalState.
//   - Read and written only inside WithStatePreHandler or compose.ProcessState,
//     which eino serializes, so no mutex is needed.
//   - ConversationState is the value passed between nodes; RunState only keeps
//     bookkeeping for the run (visited stages, accumulated model usage).
type RunState struct {
	Visited      []string
	ModelCalls   int
	Usage        Usage
	TotalCostUSD float64
}
