// Package circuittest is a fixture-driven golden-test runner for
// compiled circuit programs, grounded on the teacher's
// internal/testing package (framework.go's TestSuite/TestCase/
// TestRunner/TestReporter shape, reporters.go's pluggable-reporter
// idiom), retargeted from scripting-language test files to
// txtar-archived bytecode fixtures: since no parser exists in this
// repo (spec section 1/6 treats it as an external collaborator), a
// fixture here is a pre-compiled `.zkc` bytecode blob plus its
// expected witness outputs, not source text.
package circuittest

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/kr/pretty"
	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/txtar"

	"github.com/sentra-lang/zincvm/internal/bytecode"
	"github.com/sentra-lang/zincvm/internal/vm"
)

// Case is one fixture loaded from a txtar archive: a compiled program,
// the inputs to bind to its main function, and the expected flattened
// outputs.
type Case struct {
	Name            string
	Program         *bytecode.Program
	Inputs          []*big.Int
	WantOutputs     []string // decimal strings, compared against actual field element text
	WantSatisfiable bool
}

// Result is one case's outcome.
type Result struct {
	Case     Case
	Passed   bool
	Message  string
	Duration time.Duration
}

// LoadFixture parses a txtar archive with this layout:
//
//	-- program.b64 --
//	<base64 of bytecode.Encode output>
//	-- inputs --
//	1,2,3
//	-- outputs --
//	14
//	-- satisfiable --
//	true
//
// Grounded on the teacher's DiscoverTests glob-then-parse idiom
// (internal/testing/framework.go), replacing its *_test.sn glob with
// a single txtar archive per fixture.
func LoadFixture(name string, data []byte) (Case, error) {
	ar := txtar.Parse(data)
	files := map[string]string{}
	for _, f := range ar.Files {
		files[f.Name] = strings.TrimSpace(string(f.Data))
	}

	progRaw, ok := files["program.b64"]
	if !ok {
		return Case{}, fmt.Errorf("circuittest: fixture %s missing program.b64 section", name)
	}
	raw, err := base64.StdEncoding.DecodeString(progRaw)
	if err != nil {
		return Case{}, fmt.Errorf("circuittest: fixture %s: decode program.b64: %w", name, err)
	}
	prog, err := bytecode.Decode(bytes.NewReader(raw))
	if err != nil {
		return Case{}, fmt.Errorf("circuittest: fixture %s: decode program: %w", name, err)
	}

	c := Case{Name: name, Program: prog, WantSatisfiable: true}

	if in, ok := files["inputs"]; ok && in != "" {
		for _, s := range strings.Split(in, ",") {
			n, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
			if !ok {
				return Case{}, fmt.Errorf("circuittest: fixture %s: bad input %q", name, s)
			}
			c.Inputs = append(c.Inputs, n)
		}
	}
	if out, ok := files["outputs"]; ok && out != "" {
		for _, s := range strings.Split(out, ",") {
			c.WantOutputs = append(c.WantOutputs, strings.TrimSpace(s))
		}
	}
	if sat, ok := files["satisfiable"]; ok {
		c.WantSatisfiable = strings.TrimSpace(sat) != "false"
	}
	return c, nil
}

// LoadFixtureFile reads and parses a single fixture from disk.
func LoadFixtureFile(path string) (Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Case{}, err
	}
	return LoadFixture(strings.TrimSuffix(path, ".txtar"), data)
}

// Run executes every case concurrently (errgroup, matching spec
// section 8's structure-independence-of-witnesses property: fixtures
// share no mutable state) and returns one Result per case, in the
// same order cases was given.
func Run(cases []Case) ([]Result, error) {
	results := make([]Result, len(cases))
	var g errgroup.Group
	for i, c := range cases {
		i, c := i, c
		g.Go(func() error {
			results[i] = runOne(c)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func runOne(c Case) Result {
	start := time.Now()
	machine, err := vm.New(c.Program, c.Inputs)
	if err != nil {
		return Result{Case: c, Passed: false, Message: fmt.Sprintf("vm.New: %v", err), Duration: time.Since(start)}
	}
	res, err := machine.Run()
	if err != nil {
		if !c.WantSatisfiable {
			return Result{Case: c, Passed: true, Duration: time.Since(start)}
		}
		return Result{Case: c, Passed: false, Message: fmt.Sprintf("Run: %v", err), Duration: time.Since(start)}
	}
	ok, satErr := machine.ConstraintSystem().IsSatisfied()
	if ok != c.WantSatisfiable {
		return Result{Case: c, Passed: false, Message: fmt.Sprintf("satisfiable=%v (want %v): %v", ok, c.WantSatisfiable, satErr), Duration: time.Since(start)}
	}

	got := make([]string, len(res.Outputs))
	for i, o := range res.Outputs {
		got[i] = o.String()
	}
	if c.WantOutputs != nil && !sliceEqual(got, c.WantOutputs) {
		diff := strings.Join(pretty.Diff(c.WantOutputs, got), "\n")
		return Result{Case: c, Passed: false, Message: fmt.Sprintf("output mismatch:\n%s", diff), Duration: time.Since(start)}
	}
	return Result{Case: c, Passed: true, Duration: time.Since(start)}
}

func sliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Summarize renders results the same one-line-per-test-plus-totals
// shape as the teacher's TextReporter.
func Summarize(results []Result) string {
	var sb strings.Builder
	passed := 0
	for _, r := range results {
		status := "PASS"
		if !r.Passed {
			status = "FAIL"
		} else {
			passed++
		}
		fmt.Fprintf(&sb, "[%s] %s (%s)\n", status, r.Case.Name, r.Duration)
		if !r.Passed {
			fmt.Fprintf(&sb, "       %s\n", r.Message)
		}
	}
	fmt.Fprintf(&sb, "\n%d/%d passed\n", passed, len(results))
	return sb.String()
}

