package runner

import "github.com/selfevolve/orchestrator/pkg/selfevolve"

// phaseWeighted returns a selfevolve.ProgressFunc that maps one phase's
// internal iteration fraction into the phase's slice of the overall
// [0,1] range, then forwards the combined fraction to report (spec §4.5
// "Runners compose a phase-weighted progress function").
//
// phases are weighted equally; phaseIndex identifies which phase the
// returned function belongs to, so Runners build one of these per phase
// and let each phase's engine call it independently.
func phaseWeighted(report ProgressFunc, phases []string, phaseIndex int) selfevolve.ProgressFunc {
	if report == nil {
		return nil
	}
	n := len(phases)
	if n == 0 {
		n = 1
	}
	weight := 1.0 / float64(n)
	base := float64(phaseIndex) * weight

	return func(fraction float64, phase string) {
		label := phase
		if phaseIndex < len(phases) {
			label = phases[phaseIndex]
		}
		report(base+fraction*weight, label)
	}
}
