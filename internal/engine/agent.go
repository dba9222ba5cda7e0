package engine

import "math/rand"

type epsilonGreedyAgent struct {
	rng     *rand.Rand
	qvalues *QTable
	epsilon float64
}

func newEpsilonGreedyAgent(rng *rand.Rand, qvalues *QTable, epsilon float64) *epsilonGreedyAgent {
	return &epsilonGreedyAgent{rng: rng, qvalues: qvalues, epsilon: epsilon}
}

// act returns the chosen price index and whether it was an exploratory draw.
// Greedy choices break ties toward the lowest index.
func (a *epsilonGreedyAgent) act(state State) (int, bool) {
	if a.rng.Float64() < a.epsilon {
		return a.rng.Intn(a.qvalues.Actions()), true
	}
	return a.qvalues.Argmax(state), false
}

func (a *epsilonGreedyAgent) setEpsilon(epsilon float64) {
	a.epsilon = clampFloat(epsilon, 0, 1)
}
