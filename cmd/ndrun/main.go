// Command ndrun runs JavaScript and WebAssembly programs against the demo
// native module.
//
//	ndrun run script.js           run a script with the demo and nd globals
//	ndrun wasm guest.wasm [fn]    run a guest that imports the demo host module
//	ndrun funcs                   list native functions and their overloads
//	ndrun -i | ndrun repl         call native functions interactively
package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"
	"go.uber.org/zap"

	"github.com/wippyai/ndbridge/bind"
	"github.com/wippyai/ndbridge/jsbind"
	"github.com/wippyai/ndbridge/wasmbind"
)

var logger = zap.NewNop()

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type app struct {
	cfgFile     string
	interactive bool
	cfg         config
}

func newRootCmd() *cobra.Command {
	a := &app{cfg: defaultConfig()}

	root := &cobra.Command{
		Use:           "ndrun",
		Short:         "Run scripts against native array functions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.interactive {
				return a.repl(cmd)
			}
			return cmd.Help()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (yaml, toml or json)")
	flags.String("log-level", a.cfg.LogLevel, "log level: debug, info, warn or error")
	flags.String("log-format", a.cfg.LogFormat, "log format: console or json")
	flags.Duration("timeout", a.cfg.Timeout, "maximum run time, 0 disables")
	root.Flags().BoolVarP(&a.interactive, "interactive", "i", false, "start the interactive function browser")

	root.AddCommand(
		&cobra.Command{
			Use:   "run <script.js>",
			Short: "Run a JavaScript file",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.runScript(cmd, args[0])
			},
		},
		&cobra.Command{
			Use:   "wasm <guest.wasm> [export]",
			Short: "Run a WebAssembly guest that imports the demo host module",
			Args:  cobra.RangeArgs(1, 2),
			RunE: func(cmd *cobra.Command, args []string) error {
				export := ""
				if len(args) > 1 {
					export = args[1]
				}
				return a.runWasm(cmd, args[0], export)
			},
		},
		&cobra.Command{
			Use:   "funcs",
			Short: "List native functions and their overloads",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.listFuncs(cmd)
			},
		},
		&cobra.Command{
			Use:   "repl",
			Short: "Call native functions interactively",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.repl(cmd)
			},
		},
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd, a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	l, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	logger = l
	bind.SetLogger(l)
	jsbind.SetLogger(l)
	wasmbind.SetLogger(l)
	return nil
}

func (a *app) context(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	if a.cfg.Timeout > 0 {
		return context.WithTimeout(parent, a.cfg.Timeout)
	}
	return context.WithCancel(parent)
}

func newScriptRuntime(cmd *cobra.Command) (*jsbind.Runtime, error) {
	rt, err := jsbind.NewRuntime(jsbind.WithOutput(cmd.OutOrStdout()))
	if err != nil {
		return nil, err
	}
	m, err := newDemoModule()
	if err != nil {
		return nil, err
	}
	if err := rt.Install(m); err != nil {
		return nil, err
	}
	return rt, nil
}

func (a *app) runScript(cmd *cobra.Command, path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read script: %w", err)
	}
	rt, err := newScriptRuntime(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := a.context(cmd.Context())
	defer cancel()

	logger.Debug("running script", zap.String("path", path), zap.Duration("timeout", a.cfg.Timeout))
	if _, err := rt.Run(ctx, path, string(src)); err != nil {
		return fmt.Errorf("run %s: %w", path, err)
	}
	return nil
}

func (a *app) runWasm(cmd *cobra.Command, path, export string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read module: %w", err)
	}

	ctx, cancel := a.context(cmd.Context())
	defer cancel()

	r := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().WithCloseOnContextDone(true))
	defer r.Close(context.Background())

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, r); err != nil {
		return fmt.Errorf("instantiate WASI: %w", err)
	}
	host, err := newDemoHost()
	if err != nil {
		return err
	}
	if _, err := host.Instantiate(ctx, r); err != nil {
		return err
	}

	compiled, err := r.CompileModule(ctx, data)
	if err != nil {
		return fmt.Errorf("compile: %w", err)
	}
	if export == "" {
		export = entryPoint(compiled)
		if export == "" {
			return fmt.Errorf("no entry point found; name an export to call")
		}
	}

	modCfg := wazero.NewModuleConfig().
		WithStdout(cmd.OutOrStdout()).
		WithStderr(cmd.ErrOrStderr()).
		WithArgs(path).
		WithStartFunctions()
	mod, err := r.InstantiateModule(ctx, compiled, modCfg)
	if err != nil {
		return fmt.Errorf("instantiate: %w", err)
	}
	defer mod.Close(context.Background())

	fn := mod.ExportedFunction(export)
	if fn == nil {
		return fmt.Errorf("export %q not found", export)
	}
	if n := len(fn.Definition().ParamTypes()); n != 0 {
		return fmt.Errorf("export %q takes %d parameters, want 0", export, n)
	}

	logger.Debug("calling guest", zap.String("module", path), zap.String("export", export))
	results, err := fn.Call(ctx)
	if err != nil {
		var exitErr *sys.ExitError
		if stderrors.As(err, &exitErr) && exitErr.ExitCode() == 0 {
			return nil
		}
		return fmt.Errorf("call %s: %w", export, err)
	}
	if len(results) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "Result: %v\n", results)
	}
	return nil
}

// entryPoint returns the first common entry point exported by compiled, or
// its only exported function.
func entryPoint(compiled wazero.CompiledModule) string {
	exports := compiled.ExportedFunctions()
	for _, name := range []string{"_start", "run", "main"} {
		if _, ok := exports[name]; ok {
			return name
		}
	}
	if len(exports) == 1 {
		for name := range exports {
			return name
		}
	}
	return ""
}

func (a *app) listFuncs(cmd *cobra.Command) error {
	m, err := newDemoModule()
	if err != nil {
		return err
	}
	host, err := newDemoHost()
	if err != nil {
		return err
	}
	imported := make(map[string]bool)
	for _, o := range host.Funcs() {
		imported[o.Name()] = true
	}

	out := cmd.OutOrStdout()
	for _, o := range m.Funcs() {
		name := m.Name() + "." + o.Name()
		if imported[o.Name()] {
			name += "  [wasm]"
		}
		fmt.Fprintln(out, name)
		for i, s := range o.Signatures() {
			fmt.Fprintf(out, "    %d. %s\n", i+1, s)
		}
	}
	return nil
}

func (a *app) repl(cmd *cobra.Command) error {
	if !isTerminal() {
		return fmt.Errorf("repl needs an interactive terminal")
	}
	m, err := newDemoModule()
	if err != nil {
		return err
	}
	return runInteractive(m, a.cfg.Timeout)
}
