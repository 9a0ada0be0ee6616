package agent

import "github.com/selfevolve/orchestrator/pkg/provider/providertest"

// fakeProvider is the shared scripted provider.Provider double used across
// this package's role tests.
type fakeProvider = providertest.FakeProvider
