package main

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"nikand.dev/go/cli"

	"github.com/slowlang/unbox/decompiler"
	"github.com/slowlang/unbox/decompiler/ir"
	"github.com/slowlang/unbox/decompiler/isa"
	"github.com/slowlang/unbox/decompiler/render"
)

//go:embed default_isa.yaml
var defaultCatalogYAML []byte

func main() {
	decompileCmd := &cli.Command{
		Name:   "decompile",
		Action: decompileAct,
		Args:   cli.Args{},
	}

	dumpISACmd := &cli.Command{
		Name:   "dump-isa",
		Action: dumpISAAct,
		Args:   cli.Args{},
	}

	app := &cli.Command{
		Name:        "unbox",
		Description: "unbox decompiles stack-machine bytecode into readable pseudocode",
		Commands: []*cli.Command{
			decompileCmd,
			dumpISACmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

// flags pulls out boolean "--name" and valued "--name=value" switches
// from c.Args, returning the remaining positional arguments.
func flags(args cli.Args) (positional []string, bools map[string]bool, values map[string]string) {
	bools = map[string]bool{}
	values = map[string]string{}

	for _, a := range args {
		switch {
		case strings.HasPrefix(a, "--") && strings.Contains(a, "="):
			kv := strings.SplitN(strings.TrimPrefix(a, "--"), "=", 2)
			values[kv[0]] = kv[1]
		case strings.HasPrefix(a, "--"):
			bools[strings.TrimPrefix(a, "--")] = true
		default:
			positional = append(positional, a)
		}
	}

	return positional, bools, values
}

func decompileAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	pos, boolFlags, valFlags := flags(c.Args)

	if len(pos) == 0 {
		return errors.New("decompile: missing path argument")
	}

	cat, err := loadCatalog(valFlags["isa"])
	if err != nil {
		return errors.Wrap(err, "load catalog")
	}

	for _, path := range pos {
		raw, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrap(err, "read %v", path)
		}

		prog, err := decompiler.DecompileBytes(ctx, cat, raw)
		if err != nil {
			return errors.Wrap(err, "decompile %v", path)
		}

		if boolFlags["dump-ir"] {
			spew.Dump(prog)
		}

		fmt.Print(string(render.Program(prog)))

		if boolFlags["stats"] {
			fmt.Print(statsLine(prog))
		}
	}

	return nil
}

func dumpISAAct(c *cli.Command) (err error) {
	pos, _, _ := flags(c.Args)

	if len(pos) == 0 {
		return errors.New("dump-isa: missing path argument")
	}

	for _, path := range pos {
		data, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrap(err, "read %v", path)
		}

		cat, err := isa.Load(data)
		if err != nil {
			return errors.Wrap(err, "load %v", path)
		}

		for _, s := range cat.Specs {
			fmt.Printf("%-24s prefix=%-16s category=%-14s in=%d out=%d\n",
				s.Mnemonic, s.Bytecode.Prefix, s.Doc.Category, len(s.ValueFlow.Inputs), len(s.ValueFlow.Outputs))
		}
	}

	return nil
}

// loadCatalog reads the catalog named by --isa, falling back to the
// embedded default catalog (a small but real mnemonic set, see
// default_isa.yaml) when no path is given.
func loadCatalog(path string) (*isa.Catalog, error) {
	if path == "" {
		return isa.Load(defaultCatalogYAML)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return isa.Load(data)
}

func statsLine(prog *ir.Program) string {
	fns := []*ir.Function{}

	if prog.IsMulti() {
		for _, id := range prog.SortedMethodIDs() {
			fns = append(fns, prog.Methods[id])
		}
	} else {
		fns = append(fns, prog.Entry)
	}

	instrs, errs := 0, 0

	for _, fn := range fns {
		instrs += len(fn.Body) + len(fn.AsmTail)

		if fn.HasError() {
			errs++
		}
	}

	return fmt.Sprintf("# stats: functions=%d instructions=%d withErrors=%d\n", len(fns), instrs, errs)
}
