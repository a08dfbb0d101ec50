// Command ivm loads and executes bytecode modules for the stack
// machine implemented by pkg/vm.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gostack-vm/ivm/pkg/arena"
	"github.com/gostack-vm/ivm/pkg/bytecode"
	"github.com/gostack-vm/ivm/pkg/vm"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const versionString = "0.1.0"

var (
	verbose   bool
	noArena   bool
	blockSize int
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ivm",
		Short:         "A bytecode virtual machine for a small stack-based instruction set",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			}
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().BoolVar(&noArena, "no-arena", false, "allocate frames on the heap instead of the arena")
	root.PersistentFlags().IntVar(&blockSize, "arena-block-size", arena.BlockSize, "arena block capacity in bytes")

	root.AddCommand(newRunCmd())
	root.AddCommand(newDisasmCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.InfoLevel)
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}

// loadModule opens and decodes a bytecode file, writing any failure to
// stderr and returning an exit hint: 0 for a file that cannot be opened
// (spec.md §6 "CLI" - a missing file exits 0), 1 for any other load
// failure.
func loadModule(path string) (*bytecode.Module, int, error) {
	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ivm: cannot open %s: %v\n", path, err)
		return nil, 0, errHandled
	}
	defer f.Close()

	mod, err := bytecode.Load(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ivm: %v\n", err)
		return nil, 1, err
	}
	return mod, 0, nil
}

// errHandled marks an open failure whose message loadModule has already
// written to stderr; callers exit with the returned hint rather than
// passing the error on to cobra.
var errHandled = fmt.Errorf("handled")

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <bytecode-file>",
		Short: "Execute a bytecode module's main function",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mod, exitCode, err := loadModule(args[0])
			if err != nil {
				os.Exit(exitCodeFor(exitCode))
				return nil
			}

			log := newLogger()
			var opts []vm.Option
			if !noArena {
				opts = append(opts, vm.WithArena(blockSize))
			}
			opts = append(opts, vm.WithLogger(log))
			engine := vm.New(mod, opts...)

			start := time.Now()
			runErr := engine.Run()
			fmt.Fprintf(os.Stderr, "ivm: ran in %s\n", humanize.RelTime(start, time.Now(), "", ""))

			if runErr != nil {
				fmt.Fprintf(os.Stderr, "ivm: %v\n", runErr)
				if re, ok := runErr.(*vm.RuntimeError); ok && re.Code != vm.ExitUnspecified {
					os.Exit(int(re.Code))
				}
				os.Exit(1)
			}
			return nil
		},
	}
	return cmd
}

// exitCodeFor maps loadModule's coarse exit hint to the CLI's
// documented exit codes: a missing file is 0 (spec.md §6), any other
// load failure is non-zero.
func exitCodeFor(hint int) int {
	return hint
}

func newDisasmCmd() *cobra.Command {
	var plain bool
	cmd := &cobra.Command{
		Use:   "disasm <bytecode-file>",
		Short: "Print a human-readable listing of a bytecode module",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mod, exitCode, err := loadModule(args[0])
			if err != nil {
				os.Exit(exitCodeFor(exitCode))
				return nil
			}
			bytecode.Disassemble(mod, os.Stdout, !plain)
			return nil
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "disable colorized output")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the ivm version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("ivm version %s\n", versionString)
			return nil
		},
	}
}
