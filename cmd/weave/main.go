// Command weave runs a build-target graph declared in a YAML build file.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"weave/internal/buildfile"
	"weave/internal/config"
	"weave/internal/executor"
	"weave/internal/graph"
	"weave/internal/target"
	"weave/internal/tracelog"
)

// main is a deterministic boundary: parse args, resolve config, run,
// exit. No engine logic lives here.
func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var (
		configPath      string
		parallelJobsSet bool
		parallelJobs    int
		singleTarget    bool
		listFlag        bool
		dotGraphFlag    bool
		printStackTrace bool
		exitCodeSet     bool
		exitCodeOnError int
	)

	root := &cobra.Command{
		Use:           "weave [target]",
		Short:         "Run a build-target graph declared in a YAML build file.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, cliArgs []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			var pj *int
			if parallelJobsSet {
				pj = &parallelJobs
			}
			var ec *int
			if exitCodeSet {
				ec = &exitCodeOnError
			}
			var st, lf, ps *bool
			if cmd.Flags().Changed("single-target") {
				st = &singleTarget
			}
			if cmd.Flags().Changed("list") {
				lf = &listFlag
			}
			if cmd.Flags().Changed("print-stack-trace") {
				ps = &printStackTrace
			}
			cfg = cfg.ApplyFlags(pj, st, lf, ps, ec)

			registry := target.New()
			adm := graph.NewAdmission(registry)
			sink := tracelog.NewAutoConsoleSink(os.Stdout)

			if _, err := buildfile.Load("weave.yaml", registry, adm, sink); err != nil {
				return fmt.Errorf("load build file: %w", err)
			}

			targetName := cfg.DefaultTarget
			if len(cliArgs) == 1 {
				targetName = cliArgs[0]
			}
			if registry.DefaultTarget() != "" && targetName == "" {
				targetName = registry.DefaultTarget()
			}
			if cfg.List {
				targetName = executor.ListTargetsFlag
			}
			if dotGraphFlag {
				targetName = executor.DotGraphFlag
			}
			if targetName == "" {
				return fmt.Errorf("no target specified and no default-target configured")
			}

			exitCode, runErr := executor.Run(registry, targetName, executor.Options{
				Parallelism:     cfg.ParallelJobs,
				SingleTarget:    cfg.SingleTarget,
				Sink:            sink,
				ExitCodeOnError: cfg.ExitCodeOnError,
				PrintStackTrace: cfg.PrintStackTrace,
			})
			if runErr != nil {
				return runErr
			}
			if exitCode != 0 {
				os.Exit(exitCode)
			}
			return nil
		},
	}

	root.Flags().StringVar(&configPath, "config", "weave.yaml", "path to the weave config file")
	root.Flags().IntVar(&parallelJobs, "parallel-jobs", 1, "number of targets to run concurrently per wave")
	root.Flags().BoolVar(&singleTarget, "single-target", false, "run only the named target's body, skipping dependencies")
	root.Flags().BoolVar(&listFlag, "list", false, "list registered targets and exit")
	root.Flags().BoolVar(&dotGraphFlag, "dot-graph", false, "print the dependency graph as DOT and exit")
	root.Flags().BoolVar(&printStackTrace, "print-stack-trace", false, "include stack traces in captured errors")
	root.Flags().IntVar(&exitCodeOnError, "exit-code-on-error", executor.DefaultExitCodeOnError, "process exit code used when the build fails")

	root.PreRun = func(cmd *cobra.Command, args []string) {
		parallelJobsSet = cmd.Flags().Changed("parallel-jobs")
		exitCodeSet = cmd.Flags().Changed("exit-code-on-error")
	}

	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
