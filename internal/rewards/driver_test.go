package rewards

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/malbeclabs/contributor-rewards/internal/domain"
)

// writeFakeShapleyCLI writes a shell script standing in for shapley-cli: it
// ignores stdin and echoes a fixed JSON array of OperatorValue.
func writeFakeShapleyCLI(t *testing.T, output string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fake-shapley-cli.sh")
	script := "#!/bin/sh\ncat <<'EOF'\n" + output + "\nEOF\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake binary: %v", err)
	}
	return path
}

func TestSimulate_InvokesExternalBinary(t *testing.T) {
	path := writeFakeShapleyCLI(t, `[{"operator":"OpA","value":100,"proportion":66.6667},{"operator":"OpB","value":50,"proportion":33.3333}]`)
	SetBinaryPath(path)
	defer SetBinaryPath("shapley-cli")

	results, err := Simulate(context.Background(), ShapleyInput{OperatorUptime: 0.98})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 || results[0].Operator != "OpA" || results[0].Value != 100 {
		t.Fatalf("unexpected results: %+v", results)
	}
}

func TestCollapseSmallOperators_CollapsesBelowThreshold(t *testing.T) {
	big := domain.PublicKey{1}
	small := domain.PublicKey{2}

	input := ShapleyInput{
		Devices: []domain.Device{
			{Code: "d1", ContributorPK: big},
			{Code: "d2", ContributorPK: big},
			{Code: "d3", ContributorPK: big},
			{Code: "d4", ContributorPK: big},
			{Code: "d5", ContributorPK: big},
			{Code: "d6", ContributorPK: small},
		},
	}

	out := CollapseSmallOperators(input, 5)
	if out.Devices[5].ContributorPK == small {
		t.Fatal("expected small operator's device to be collapsed into Others")
	}
	for i := 0; i < 5; i++ {
		if out.Devices[i].ContributorPK != big {
			t.Fatalf("big operator's devices must be untouched, got %+v", out.Devices[i])
		}
	}
}

func TestCollapseSmallOperators_NoCollapseAtThreshold(t *testing.T) {
	op := domain.PublicKey{3}
	input := ShapleyInput{
		Devices: []domain.Device{
			{Code: "d1", ContributorPK: op},
			{Code: "d2", ContributorPK: op},
		},
	}
	out := CollapseSmallOperators(input, 2)
	if out.Devices[0].ContributorPK != op {
		t.Fatal("operator at exactly threshold must not be collapsed")
	}
}
