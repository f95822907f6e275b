// Package tsconfig carries the numeric model parameters and builder
// flags shared by the inference engines: a plain struct, a
// package-level DefaultConfig, and constructors that fill in defaults.
package tsconfig

import "github.com/tsinfer-go/tsinfer/tserr"

// Flag is a builder configuration bit. Unrecognized flags are rejected
// with tserr.UnknownFlag rather than silently ignored.
type Flag uint32

const (
	// ResolveSharedRecombs enables shared-recombination-breakpoint
	// collapse in the tree sequence builder's AddPath.
	ResolveSharedRecombs Flag = 1 << iota

	knownFlags = ResolveSharedRecombs
)

// CheckFlags returns a tserr.UnknownFlag error if flags sets any bit
// outside knownFlags.
func CheckFlags(flags Flag) error {
	if flags&^knownFlags != 0 {
		return tserr.New(tserr.UnknownFlag, "tsconfig: unrecognized flag bits %#x", flags&^knownFlags)
	}
	return nil
}

// Params holds the Li-Stephens model's numeric parameters.
type Params struct {
	// Rho is the per-site recombination rate; Rho[0] is unused since no
	// transition precedes the first site.
	Rho []float64
	// Mu is the global observation (mismatch) error rate, in [0, 0.5].
	Mu float64
}

// DefaultMu is a conservative default observation error rate, used when a
// caller constructs Params without specifying one.
const DefaultMu = 1e-4

// DefaultParams returns Params sized for numSites with a flat recombination
// rate and DefaultMu mismatch probability.
func DefaultParams(numSites int, flatRho float64) Params {
	rho := make([]float64, numSites)
	for i := 1; i < numSites; i++ {
		rho[i] = flatRho
	}
	return Params{Rho: rho, Mu: DefaultMu}
}

// Validate checks that Params is within the model's numeric ranges.
func (p Params) Validate() error {
	if p.Mu < 0 || p.Mu > 0.5 {
		return tserr.New(tserr.BadParam, "tsconfig: mu %f out of range [0, 0.5]", p.Mu)
	}
	for i, r := range p.Rho {
		if i == 0 {
			continue
		}
		if r < 0 || r > 1 {
			return tserr.New(tserr.BadParam, "tsconfig: rho[%d] %f out of range [0, 1]", i, r)
		}
	}
	return nil
}

// Config bundles Params with the builder flag set so a driver can carry
// one value for a whole inference run. The engines take the pieces
// separately: pass Flags to the tree sequence builder's constructor and
// Params to the matcher's.
type Config struct {
	Params Params
	Flags  Flag
}

// DefaultConfig is the recommended starting point: shared-recombination
// collapse on, default observation error, empty recombination rates
// (callers must size Params.Rho to the site count before use, e.g. via
// DefaultParams).
var DefaultConfig = &Config{
	Params: Params{Mu: DefaultMu},
	Flags:  ResolveSharedRecombs,
}
