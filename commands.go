package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"obfuscator-web/api"
	"obfuscator-web/config"
	"obfuscator-web/kv"
	"obfuscator-web/logging"
	"obfuscator-web/notify"
	"obfuscator-web/obfuscator"
	"obfuscator-web/options"
	"obfuscator-web/session"
	"obfuscator-web/stats"
	"obfuscator-web/transform"
)

const shutdownTimeout = 5 * time.Second

// app holds what every subcommand needs once flags are parsed.
type app struct {
	configPath string
	ephemeral  bool
	cfg        config.Config
	log        *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "obfuscator-web",
		Short:         "Browser front end for javascript-obfuscator",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// config init must work without a readable config.
			if cmd.Name() == "init" {
				return nil
			}
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file (default ./"+config.DefaultFile+" if present)")
	root.PersistentFlags().BoolVar(&a.ephemeral, "ephemeral", false, "keep options in memory instead of options_file")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the web service",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.serve(cmd.Context())
			},
		},
		a.obfuscateCmd(),
		a.optionsCmd(),
		configCmd(),
	)
	return root
}

func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = log
	return nil
}

func (a *app) optionsManager() (*options.Manager, error) {
	if a.ephemeral {
		return options.NewManager(kv.NewMemory(), a.log), nil
	}
	store, err := kv.NewFile(a.cfg.OptionsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open options store: %w", err)
	}
	if aside, decodeErr := store.Recovered(); decodeErr != nil {
		a.log.Warn("options store unreadable, starting from defaults",
			zap.String("path", store.Path()), zap.String("moved_to", aside), zap.Error(decodeErr))
	}
	a.log.Debug("options store opened", zap.String("path", store.Path()))
	return options.NewManager(store, a.log), nil
}

// loadObfuscator returns nil when no bundle is available so callers see an
// unloaded capability rather than a typed nil.
func (a *app) loadObfuscator() obfuscator.Obfuscator {
	g, err := obfuscator.Load(a.cfg.ObfuscatorBundle)
	if err != nil {
		a.log.Warn("obfuscator library not loaded", zap.String("bundle", a.cfg.ObfuscatorBundle), zap.Error(err))
		return nil
	}
	a.log.Info("obfuscator library loaded", zap.String("bundle", a.cfg.ObfuscatorBundle))
	return g
}

func (a *app) serve(ctx context.Context) error {
	om, err := a.optionsManager()
	if err != nil {
		return err
	}
	manager := session.NewManager(om, a.loadObfuscator(), a.log,
		session.WithHubOptions(notify.WithToastTiming(a.cfg.ToastTTL, a.cfg.ToastExit)))
	defer manager.Close()

	srv := &http.Server{
		Addr:    a.cfg.Addr(),
		Handler: api.RegisterRoutes(manager, a.log, staticFiles),
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("obfuscator-web listening", zap.String("addr", srv.Addr), zap.Bool("obfuscator_loaded", manager.Loaded()))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	a.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// stderrStatus prints status line updates for the one-shot command.
type stderrStatus struct {
	w io.Writer
}

func (s stderrStatus) SetStatus(msg string, ok bool) {
	if ok {
		fmt.Fprintln(s.w, msg)
		return
	}
	fmt.Fprintln(s.w, "!", msg)
}

func (a *app) obfuscateCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "obfuscate [file]",
		Short: "Obfuscate a file (or stdin) with the persisted options",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var src []byte
			var err error
			if len(args) == 0 || args[0] == "-" {
				src, err = io.ReadAll(cmd.InOrStdin())
			} else {
				src, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("reading input: %w", err)
			}

			om, err := a.optionsManager()
			if err != nil {
				return err
			}
			inv := transform.NewInvoker(a.loadObfuscator(), a.log)
			input := string(src)
			res := inv.Invoke(input, om.Load, stderrStatus{cmd.ErrOrStderr()})
			switch {
			case res.Empty:
				return errors.New(transform.MsgNothingToObfuscate)
			case res.Err != nil:
				return res.Err
			}

			if out == "" {
				_, err = io.WriteString(cmd.OutOrStdout(), res.Output)
			} else {
				err = os.WriteFile(out, []byte(res.Output), 0o644)
			}
			if err != nil {
				return fmt.Errorf("writing output: %w", err)
			}

			st := stats.Compute(input, res.Output)
			ratio := st.Ratio
			if ratio == "" {
				ratio = "-"
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "input %s, output %s, ratio %s\n", st.Input, st.Output, ratio)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "write to this file instead of stdout")
	return cmd
}

func (a *app) optionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "options",
		Short: "Inspect or reset the persisted obfuscator options",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the persisted options as JSON",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				om, err := a.optionsManager()
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(om.Load())
			},
		},
		&cobra.Command{
			Use:   "reset",
			Short: "Restore the default options",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				om, err := a.optionsManager()
				if err != nil {
					return err
				}
				om.Reset()
				fmt.Fprintln(cmd.ErrOrStderr(), "Options reset")
				return nil
			},
		},
	)
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the service config file",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "init [path]",
		Short: "Write the default config file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.DefaultFile
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.WriteDefault(path); err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "wrote", path)
			return nil
		},
	})
	return cmd
}
