// cmd/zincvm/main.go
package main

import (
	"bufio"
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/sentra-lang/zincvm/internal/bytecode"
	"github.com/sentra-lang/zincvm/internal/commands"
	"github.com/sentra-lang/zincvm/internal/disasm"
	"github.com/sentra-lang/zincvm/internal/store"
	"github.com/sentra-lang/zincvm/internal/tracesvc"
	"github.com/sentra-lang/zincvm/internal/vm"
)

const version = "0.1.0"

// Command aliases, the same lookup-table idiom the teacher's CLI uses
// to let short forms resolve to the full subcommand before dispatch.
var commandAliases = map[string]string{
	"d": "disasm",
	"r": "run",
	"v": "version",
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		showUsage()
		os.Exit(1)
	}

	cmd := args[0]
	if alias, ok := commandAliases[cmd]; ok {
		cmd = alias
	}

	switch cmd {
	case "--help", "-h", "help":
		showUsage()
	case "--version", "-v", "version":
		showVersion()
	case "disasm":
		runDisasm(args[1:])
	case "run":
		runRun(args[1:])
	case "init":
		if err := commands.InitCommand(args[1:]); err != nil {
			fmt.Fprintf(os.Stderr, "zincvm init: %v\n", err)
			os.Exit(1)
		}
	case "clean":
		if err := commands.CleanCommand(args[1:]); err != nil {
			fmt.Fprintf(os.Stderr, "zincvm clean: %v\n", err)
			os.Exit(1)
		}
	case "build", "analyze", "test":
		fmt.Fprintf(os.Stderr, "zincvm %s: not available without a circuit front-end\n", cmd)
		fmt.Fprintln(os.Stderr, "this toolchain consumes compiled bytecode files (see 'zincvm disasm'/'zincvm run');")
		fmt.Fprintln(os.Stderr, "turning circuit source into a bytecode file is the job of an external front-end")
		fmt.Fprintln(os.Stderr, "that constructs an ast.CircuitProgram and calls analyzer.Analyze, not of this CLI")
		os.Exit(1)
	default:
		fmt.Fprintf(os.Stderr, "zincvm: unknown command %q\n", cmd)
		showUsage()
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println("zincvm - R1CS circuit bytecode toolchain")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  zincvm disasm <file.zkc>         Disassemble a compiled bytecode file   (alias: d)")
	fmt.Println("  zincvm run <file.zkc> [inputs]   Execute a bytecode file, print outputs (alias: r)")
	fmt.Println("  zincvm init <name>               Scaffold a new circuit project directory")
	fmt.Println("  zincvm version                   Show version information              (alias: v)")
	fmt.Println()
	fmt.Println("inputs to 'run' are comma-separated decimal integers bound to the main")
	fmt.Println("function's declared input cells, in order; unfilled cells are random witnesses.")
	fmt.Println()
	fmt.Println("'run' flags:")
	fmt.Println("  --trace=addr       stream per-instruction events to websocket clients of addr/trace")
	fmt.Println("  --db=dialect:dsn   persist the run's outputs against a stored program (see --save)")
	fmt.Println("  --save=name        save the program under name before running, dialect+dsn from --db")
	fmt.Println()
	fmt.Println("Note: zincvm has no 'build'/'analyze' subcommand. Compiling circuit source into")
	fmt.Println("a <file.zkc> requires a front-end that parses source into an ast.CircuitProgram")
	fmt.Println("and runs it through internal/analyzer — out of this tool's scope.")
}

func showVersion() {
	fmt.Printf("zincvm %s\n", version)
}

func runDisasm(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: zincvm disasm <file.zkc>")
		os.Exit(1)
	}
	prog := loadProgram(args[0])
	out := disasm.Program(prog)
	if isatty.IsTerminal(os.Stdout.Fd()) {
		out = colorizeDisasm(out)
	}
	fmt.Print(out)
}

// colorizeDisasm highlights the function label lines ("; function
// ...") when stdout is a real terminal, the same TTY-aware-coloring
// idiom the teacher's CLI applies before printing formatted output.
func colorizeDisasm(s string) string {
	const (
		bold  = "\x1b[1m"
		reset = "\x1b[0m"
	)
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if strings.HasPrefix(line, "; function ") {
			lines[i] = bold + line + reset
		}
	}
	return strings.Join(lines, "\n")
}

// runFlags are the 'run' subcommand's --name=value flags, parsed out
// of the positional argument list the same way the teacher's CLI
// separates flags from positionals before dispatch.
type runFlags struct {
	trace string // websocket listen address for live tracing, empty disables it
	db    string // "dialect:dsn", empty disables persistence
	save  string // program name to persist under, empty means don't save
}

func parseRunArgs(args []string) (file string, inputsArg string, flags runFlags) {
	var positional []string
	for _, a := range args {
		switch {
		case strings.HasPrefix(a, "--trace="):
			flags.trace = strings.TrimPrefix(a, "--trace=")
		case strings.HasPrefix(a, "--db="):
			flags.db = strings.TrimPrefix(a, "--db=")
		case strings.HasPrefix(a, "--save="):
			flags.save = strings.TrimPrefix(a, "--save=")
		default:
			positional = append(positional, a)
		}
	}
	if len(positional) > 0 {
		file = positional[0]
	}
	if len(positional) > 1 {
		inputsArg = positional[1]
	}
	return
}

func runRun(args []string) {
	file, inputsArg, flags := parseRunArgs(args)
	if file == "" {
		fmt.Fprintln(os.Stderr, "usage: zincvm run <file.zkc> [comma,separated,inputs] [--trace=addr] [--db=dialect:dsn] [--save=name]")
		os.Exit(1)
	}
	prog := loadProgram(file)

	var inputs []*big.Int
	if inputsArg != "" {
		for _, field := range strings.Split(inputsArg, ",") {
			n, ok := new(big.Int).SetString(strings.TrimSpace(field), 10)
			if !ok {
				fmt.Fprintf(os.Stderr, "zincvm run: invalid input %q\n", field)
				os.Exit(1)
			}
			inputs = append(inputs, n)
		}
	}

	var db *store.Store
	var programID string
	if flags.db != "" {
		dialect, dsn, ok := strings.Cut(flags.db, ":")
		if !ok {
			fmt.Fprintln(os.Stderr, "zincvm run: --db must be dialect:dsn")
			os.Exit(1)
		}
		s, err := store.Open(store.Dialect(dialect), dsn)
		if err != nil {
			fmt.Fprintf(os.Stderr, "zincvm run: opening store: %v\n", err)
			os.Exit(1)
		}
		defer s.Close()
		db = s
		if flags.save != "" {
			id, err := s.SaveProgram(flags.save, prog)
			if err != nil {
				fmt.Fprintf(os.Stderr, "zincvm run: saving program: %v\n", err)
				os.Exit(1)
			}
			programID = id
			fmt.Printf("saved program %q as %s\n", flags.save, id)
		}
	}

	var opts []vm.Option
	var tracer *tracesvc.Server
	if flags.trace != "" {
		tracer = tracesvc.New()
		go func() {
			if err := tracer.Listen(flags.trace, "/trace"); err != nil {
				fmt.Fprintf(os.Stderr, "zincvm run: trace server: %v\n", err)
			}
		}()
		defer tracer.Close()
		opts = append(opts, vm.WithHook(tracer))
		fmt.Printf("tracing on ws://%s/trace\n", flags.trace)
	}

	start := time.Now()
	machine, err := vm.New(prog, inputs, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "zincvm run: %v\n", err)
		os.Exit(1)
	}
	res, err := machine.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "zincvm run: execution error: %v\n", err)
		os.Exit(1)
	}
	ok, satErr := machine.ConstraintSystem().IsSatisfied()
	elapsed := time.Since(start)

	fmt.Printf("outputs:")
	outputs := make([]string, len(res.Outputs))
	for i, o := range res.Outputs {
		outputs[i] = o.String()
		fmt.Printf(" %s", outputs[i])
	}
	fmt.Println()
	fmt.Printf("constraints: %s, satisfied: %v", humanize.Comma(int64(machine.ConstraintSystem().NumConstraints())), ok)
	if satErr != nil {
		fmt.Printf(" (%v)", satErr)
	}
	fmt.Println()
	fmt.Printf("elapsed: %s\n", elapsed)

	if db != nil && programID != "" {
		runID, err := db.SaveRun(programID, outputs, ok, machine.ConstraintSystem().NumConstraints())
		if err != nil {
			fmt.Fprintf(os.Stderr, "zincvm run: saving run: %v\n", err)
		} else {
			fmt.Printf("saved run %s\n", runID)
		}
	}

	if !ok {
		os.Exit(1)
	}
}

func loadProgram(path string) *bytecode.Program {
	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "zincvm: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()
	prog, err := bytecode.Decode(bufio.NewReader(f))
	if err != nil {
		fmt.Fprintf(os.Stderr, "zincvm: decoding %s: %v\n", path, err)
		os.Exit(1)
	}
	return prog
}
