package usage

import "github.com/kailas-cloud/knowbase/internal/usecase/quota"

// BudgetViewer provides read-only access to token budget state.
type BudgetViewer interface {
	View() quota.Snapshot
}
