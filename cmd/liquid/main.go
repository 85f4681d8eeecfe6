// Command liquid is the reference CLI for this module: render a
// template against JSON data, compile it to bytecode and disassemble
// the result, or round-trip it through the parser and unparser.
// Structured the way the teacher's own CLI root command is (a single
// cobra.Command tree, SilenceErrors with errors
// formatted and printed by hand), rewired from "execute shell
// commands" to "render/compile a Liquid template".
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/adamharrison/liquid-go/ast"
	"github.com/adamharrison/liquid-go/compile"
	"github.com/adamharrison/liquid-go/dialect"
	"github.com/adamharrison/liquid-go/optimize"
	"github.com/adamharrison/liquid-go/parser"
	"github.com/adamharrison/liquid-go/render"
	"github.com/adamharrison/liquid-go/resolver"
	"github.com/adamharrison/liquid-go/vm"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "liquid",
		Short:         "Render, compile, and inspect Liquid templates",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.AddCommand(renderCmd(), compileCmd(), disasmCmd(), unparseCmd())
	return root
}

func renderCmd() *cobra.Command {
	var dataFile string
	var useVM bool
	var watch bool
	cmd := &cobra.Command{
		Use:   "render <template.liquid>",
		Short: "Render a template to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run := func() error {
				return renderOnce(args[0], dataFile, useVM, cmd.OutOrStdout())
			}
			if err := run(); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}
			if !watch {
				return nil
			}
			return watchAndRerun(args[0], run)
		},
	}
	cmd.Flags().StringVarP(&dataFile, "data", "d", "", "JSON file of template variables")
	cmd.Flags().BoolVar(&useVM, "vm", false, "Execute via the bytecode VM instead of the tree-walking renderer")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Re-render on every save to the template file")
	return cmd
}

func compileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile <template.liquid>",
		Short: "Compile a template and print its disassembly",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prog, err := compileFile(args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), vm.Disassemble(prog))
			return nil
		},
	}
	return cmd
}

func disasmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disasm <template.liquid>",
		Short: "Alias for compile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prog, err := compileFile(args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), vm.Disassemble(prog))
			return nil
		},
	}
}

func unparseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unparse <template.liquid>",
		Short: "Parse a template and print it back out, formatted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := parseFile(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), parser.Unparse(root))
			return nil
		},
	}
}

func parseFile(path string) (*ast.Node, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	ctx, err := dialect.Standard()
	if err != nil {
		return nil, err
	}
	p := parser.New(ctx)
	root, warnings, err := p.ParseTemplate(string(src), path)
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "warning: %v\n", w)
	}
	return root, nil
}

func loadData(dataFile string) (map[string]any, error) {
	if dataFile == "" {
		return map[string]any{}, nil
	}
	raw, err := os.ReadFile(dataFile)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dataFile, err)
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", dataFile, err)
	}
	return data, nil
}

func renderOnce(templateFile, dataFile string, useVM bool, out io.Writer) error {
	root, err := parseFile(templateFile)
	if err != nil {
		return err
	}
	data, err := loadData(dataFile)
	if err != nil {
		return err
	}
	res := resolver.NewMapResolver(data)

	if useVM {
		prog, err := compile.Compile(root)
		if err != nil {
			return fmt.Errorf("compiling: %w", err)
		}
		machine := vm.New(prog, res)
		return machine.Run(out)
	}

	r := render.New(mustContext(), res)
	return r.RenderStream(root, out)
}

func compileFile(templateFile string) (*compile.Program, error) {
	root, err := parseFile(templateFile)
	if err != nil {
		return nil, err
	}
	ctx := mustContext()
	r := render.New(ctx, resolver.NewMapResolver(nil))
	optimized, _ := optimize.Run(root, r)
	return compile.Compile(optimized)
}

func mustContext() *ast.Context {
	ctx, err := dialect.Standard()
	if err != nil {
		panic(err)
	}
	return ctx
}

// watchAndRerun re-runs fn every time templateFile itself reports a
// write or create event, the same fsnotify-driven dev loop the rest of the
// ecosystem uses for this purpose (declared but unused anywhere in the
// teacher's own module; adopted here for its documented, idiomatic
// purpose instead of a hand-rolled polling loop).
func watchAndRerun(templateFile string, fn func() error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(templateFile); err != nil {
		return fmt.Errorf("watching %s: %w", templateFile, err)
	}
	fmt.Fprintf(os.Stderr, "watching %s for changes (ctrl-c to stop)\n", templateFile)

	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := fn(); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "watch error: %v\n", err)
		}
	}
}
