package orchestrator

import "fmt"

type StrategyID string

const (
	StrategyDefault     StrategyID = "default"
	StrategyBypassCache StrategyID = "bypass_cache"
)

// StrategyConfig is how one attempt of the pipeline runs.
type StrategyConfig struct {
	ID          StrategyID
	BypassCache bool
}

// Strategies are the built-in attempt strategies.
var Strategies = map[StrategyID]StrategyConfig{
	StrategyDefault:     {ID: StrategyDefault},
	StrategyBypassCache: {ID: StrategyBypassCache, BypassCache: true},
}

// RetryPolicy hands out the strategy of each retry from an escalation
// chain. The last entry repeats when retries outnumber the chain.
type RetryPolicy struct {
	chain []StrategyConfig
}

func NewRetryPolicy(ids []string) (*RetryPolicy, error) {
	if len(ids) == 0 {
		ids = []string{string(StrategyBypassCache)}
	}
	chain := make([]StrategyConfig, 0, len(ids))
	for _, id := range ids {
		cfg, ok := Strategies[StrategyID(id)]
		if !ok {
			return nil, fmt.Errorf("unknown retry strategy %q", id)
		}
		chain = append(chain, cfg)
	}
	return &RetryPolicy{chain: chain}, nil
}

// Initial is the strategy of the first attempt.
func (p *RetryPolicy) Initial() StrategyConfig {
	return Strategies[StrategyDefault]
}

// ForAttempt returns the strategy of attempt n (1-based).
func (p *RetryPolicy) ForAttempt(n int) StrategyConfig {
	if n <= 1 {
		return p.Initial()
	}
	i := n - 2
	if i >= len(p.chain) {
		i = len(p.chain) - 1
	}
	return p.chain[i]
}

func (p *RetryPolicy) Chain() []StrategyID {
	ids := make([]StrategyID, len(p.chain))
	for i, c := range p.chain {
		ids[i] = c.ID
	}
	return ids
}
