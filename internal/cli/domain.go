package cli

import (
	"github.com/roach88/reduxengine/internal/counter"
	"github.com/roach88/reduxengine/internal/engine"
	"github.com/roach88/reduxengine/internal/harness"
)

// counterDomain is the domain reduxctl runs scenarios against and replays
// journals with.
func counterDomain() harness.Domain[counter.State] {
	return harness.Domain[counter.State]{
		Name:      "counter",
		Reducers:  counter.Reducers(),
		Epics:     counter.Epics(),
		Actions:   counter.Actions(),
		Selectors: counter.Selectors(),
	}
}

// counterReducer is the composite reducer replay folds with.
func counterReducer() *engine.CompositeReducer[counter.State] {
	return engine.Combine(counter.Reducers()...)
}
