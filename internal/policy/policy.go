package policy

import (
	"context"
	"encoding/json"

	"github.com/Harshitk-cp/imadial/internal/domain"
	"github.com/Harshitk-cp/imadial/internal/state"
)

// Policy picks the next system act from the dialogue state. It records its
// own rewards, one or more per decision.
type Policy interface {
	NextAction(ctx context.Context, st *state.DialogueState) (domain.Act, error)
	Reset()
	Rewards() []float64
	Snapshot() (json.RawMessage, error)
	Restore(data json.RawMessage) error
}

// TotalReward sums a policy's reward history.
func TotalReward(p Policy) float64 {
	var sum float64
	for _, r := range p.Rewards() {
		sum += r
	}
	return sum
}
