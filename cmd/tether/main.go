// tether runs Lua scripts against the bridged rocket module, hosts an
// interactive REPL, and generates bindings from header declarations.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/feather-lang/tether"
	"github.com/feather-lang/tether/decl"
	"github.com/feather-lang/tether/internal/config"
	"github.com/feather-lang/tether/internal/logger"
	"github.com/feather-lang/tether/internal/rocket"
	"github.com/feather-lang/tether/luahost"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		config.Exitf("tether: %v", err)
	}
	if err := newRootCmd(&cfg).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	var log *zap.Logger

	root := &cobra.Command{
		Use:          "tether",
		Short:        "Bridge native Go data into Lua scripts",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := logger.New(cfg.LogMode, cfg.LogLevel)
			if err != nil {
				return err
			}
			log = l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if log != nil {
				logger.Sync(log)
			}
		},
	}
	root.PersistentFlags().StringVar(&cfg.LogMode, "log-mode", cfg.LogMode, "logger preset: dev or prod")
	root.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "minimum log level")
	root.PersistentFlags().BoolVar(&cfg.TraceCalls, "trace", cfg.TraceCalls, "log every bridged call")

	logFn := func() *zap.Logger { return log }
	root.AddCommand(
		newRunCmd(cfg, logFn),
		newREPLCmd(cfg, logFn),
		newDeclCmd(),
	)
	return root
}

// session is a bridge with the rocket module open and a Lua host over it.
type session struct {
	bridge *tether.Bridge
	host   *luahost.Host
}

func newSession(cfg *config.Config, log *zap.Logger) (*session, error) {
	b := tether.New(tether.WithLogger(log), tether.WithTraceCalls(cfg.TraceCalls))
	if err := b.Open(rocket.Module(os.Stdout)); err != nil {
		b.Close()
		return nil, err
	}
	h := luahost.New(b)
	for _, name := range b.Modules() {
		if err := h.Open(name); err != nil {
			b.Close()
			return nil, err
		}
	}
	return &session{bridge: b, host: h}, nil
}

func (s *session) Close() { s.bridge.Close() }

func newRunCmd(cfg *config.Config, log func() *zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "run <script.lua>",
		Short: "Run a Lua script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cfg, log())
			if err != nil {
				return err
			}
			defer s.Close()
			if err := s.host.DoFile(args[0]); err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			return nil
		},
	}
}

func newREPLCmd(cfg *config.Config, log func() *zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive Lua session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cfg, log())
			if err != nil {
				return err
			}
			defer s.Close()
			editor := NewLineEditor(s.host, cfg.HistorySize)
			if editor.IsTerminal() {
				return runREPL(s.host, editor)
			}
			return runPiped(s.host, os.Stdin, os.Stdout)
		},
	}
}

func newDeclCmd() *cobra.Command {
	var (
		goOut  bool
		pkg    string
		output string
	)
	cmd := &cobra.Command{
		Use:   "decl <header.h | plan.yaml>",
		Short: "Plan or generate bindings from header declarations",
		Long: "decl parses a header and prints its binding plan as YAML. With --go it\n" +
			"prints a Go binding skeleton instead. A plan file, possibly edited, can\n" +
			"be given in place of the header.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := loadPlan(args[0])
			if err != nil {
				return err
			}
			var out []byte
			if goOut {
				if pkg == "" {
					pkg = plan.Module
				}
				out, err = decl.Generate(plan, pkg)
			} else {
				out, err = plan.YAML()
			}
			if err != nil {
				return err
			}
			if output == "" {
				_, err = cmd.OutOrStdout().Write(out)
				return err
			}
			return os.WriteFile(output, out, 0o644)
		},
	}
	cmd.Flags().BoolVar(&goOut, "go", false, "generate Go bindings instead of the plan")
	cmd.Flags().StringVar(&pkg, "package", "", "package of the generated code (default: module name)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	return cmd
}

func loadPlan(path string) (*decl.Plan, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return decl.ParsePlan(data)
	}
	f, err := decl.ParseFile(path)
	if err != nil {
		return nil, err
	}
	return decl.Build(f)
}
