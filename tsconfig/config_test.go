package tsconfig

import (
	"testing"

	"github.com/tsinfer-go/tsinfer/tserr"
)

func TestCheckFlags(t *testing.T) {
	if err := CheckFlags(0); err != nil {
		t.Fatalf("zero flags rejected: %v", err)
	}
	if err := CheckFlags(ResolveSharedRecombs); err != nil {
		t.Fatalf("known flag rejected: %v", err)
	}
	if err := CheckFlags(Flag(1 << 17)); !tserr.Is(err, tserr.UnknownFlag) {
		t.Fatalf("expected UnknownFlag, got %v", err)
	}
}

func TestParamsValidate(t *testing.T) {
	p := DefaultParams(5, 0.01)
	if err := p.Validate(); err != nil {
		t.Fatalf("default params rejected: %v", err)
	}
	if p.Rho[0] != 0 {
		t.Fatalf("Rho[0] = %g, want 0", p.Rho[0])
	}

	bad := DefaultParams(5, 0.01)
	bad.Mu = 0.6
	if err := bad.Validate(); !tserr.Is(err, tserr.BadParam) {
		t.Fatalf("expected BadParam for mu out of range, got %v", err)
	}

	bad = DefaultParams(5, 0.01)
	bad.Rho[3] = 1.5
	if err := bad.Validate(); !tserr.Is(err, tserr.BadParam) {
		t.Fatalf("expected BadParam for rho out of range, got %v", err)
	}

	// Rho[0] is never consulted, so even a wild value there passes.
	loose := DefaultParams(5, 0.01)
	loose.Rho[0] = 42
	if err := loose.Validate(); err != nil {
		t.Fatalf("Rho[0] should be ignored by Validate: %v", err)
	}
}

func TestDefaultConfig(t *testing.T) {
	if err := CheckFlags(DefaultConfig.Flags); err != nil {
		t.Fatalf("DefaultConfig carries a bad flag set: %v", err)
	}
	if DefaultConfig.Flags&ResolveSharedRecombs == 0 {
		t.Fatal("DefaultConfig should enable shared-recombination collapse")
	}
	cfg := *DefaultConfig
	cfg.Params = DefaultParams(4, 0.01)
	if err := cfg.Params.Validate(); err != nil {
		t.Fatalf("sized default params rejected: %v", err)
	}
}
