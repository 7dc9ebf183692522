package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/boristopalov/coi/internal/demo"
	"github.com/boristopalov/coi/pkg/checkers"
	"github.com/boristopalov/coi/pkg/config"
	"github.com/boristopalov/coi/pkg/logging"
	"github.com/boristopalov/coi/pkg/notice"
	"github.com/boristopalov/coi/pkg/problem"
	"github.com/boristopalov/coi/pkg/registry"
)

type app struct {
	out    io.Writer
	logger *slog.Logger
	reg    *registry.Registry

	logLevel   string
	logFormat  string
	kwargs     []string
	renderMode string
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}

	rootCmd := &cobra.Command{
		Use:           "coi",
		Short:         "coi inspects and checks registered optimization problems.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}
	rootCmd.SetOut(out)
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "log format (text, json)")

	listCmd := &cobra.Command{
		Use:   "list [namespace]",
		Short: "List registered problems",
		Args:  cobra.MaximumNArgs(1),
		RunE:  a.list,
	}
	specCmd := &cobra.Command{
		Use:   "spec <id>",
		Short: "Print the spec of a problem as YAML",
		Args:  cobra.ExactArgs(1),
		RunE:  a.spec,
	}
	checkCmd := &cobra.Command{
		Use:   "check <id>",
		Short: "Create a problem and run the checkers on it",
		Args:  cobra.ExactArgs(1),
		RunE:  a.check,
	}
	protocolsCmd := &cobra.Command{
		Use:   "protocols <id>",
		Short: "Show which interfaces a problem implements",
		Args:  cobra.ExactArgs(1),
		RunE:  a.protocols,
	}
	configCmd := &cobra.Command{
		Use:   "config <id>",
		Short: "Show or apply the configuration of a problem",
		Args:  cobra.ExactArgs(1),
		RunE:  a.config,
	}
	configCmd.Flags().StringArray("set", nil, "set a config value (dest=value)")
	configCmd.Flags().String("file", "", "YAML file of config values")

	for _, cmd := range []*cobra.Command{checkCmd, protocolsCmd, configCmd} {
		cmd.Flags().StringArrayVar(&a.kwargs, "kwarg", nil, "constructor keyword argument (key=value)")
		cmd.Flags().StringVar(&a.renderMode, "render-mode", "", "render mode of the problem")
	}

	rootCmd.AddCommand(listCmd, specCmd, checkCmd, protocolsCmd, configCmd)
	return rootCmd
}

func (a *app) init(cmd *cobra.Command) error {
	cfg := logging.FromEnv(logging.DefaultConfig())
	if a.logLevel != "" {
		cfg.Level = logging.ParseLevel(a.logLevel)
	}
	if a.logFormat != "" {
		cfg.Format = logging.ParseFormat(a.logFormat)
	}
	cfg.Output = cmd.ErrOrStderr()
	a.logger = logging.New(cfg)

	a.reg = registry.New(registry.WithLogger(a.logger))
	return a.reg.AddPlugin(demo.Plugin())
}

func (a *app) list(cmd *cobra.Command, args []string) error {
	ns := ""
	if len(args) == 1 {
		ns = args[0]
	}
	return a.reg.Pretty(a.out, ns)
}

func (a *app) spec(cmd *cobra.Command, args []string) error {
	spec, err := a.reg.Spec(args[0])
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(a.out)
	enc.SetIndent(2)
	if err := enc.Encode(spec); err != nil {
		return err
	}
	return enc.Close()
}

func (a *app) check(cmd *cobra.Command, args []string) error {
	p, err := a.make(args[0])
	if err != nil {
		return err
	}
	defer closeProblem(p, a.logger)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	notices := make(chan notice.Notice, notice.DefaultHistory)
	subscriber := uuid.NewString()
	if err := a.reg.Notices().Subscribe(subscriber, notices); err != nil {
		return err
	}
	defer a.reg.Notices().Unsubscribe(subscriber)

	if err := checkers.Check(ctx, p, checkers.WithLogger(a.logger), checkers.WithBroker(a.reg.Notices())); err != nil {
		return err
	}

	warnings := 0
	for len(notices) > 0 {
		if n := <-notices; n.Kind == notice.CheckWarning {
			warnings++
		}
	}
	if warnings > 0 {
		fmt.Fprintf(a.out, "%s: ok, %d warnings\n", args[0], warnings)
		return nil
	}
	fmt.Fprintf(a.out, "%s: ok\n", args[0])
	return nil
}

func (a *app) protocols(cmd *cobra.Command, args []string) error {
	p, err := a.make(args[0])
	if err != nil {
		return err
	}
	defer closeProblem(p, a.logger)

	guards := []struct {
		name string
		is   func(any) bool
	}{
		{"Problem", problem.IsProblem},
		{"SingleOptimizable", problem.IsSingleOptimizable},
		{"FunctionOptimizable", problem.IsFunctionOptimizable},
		{"Env", problem.IsEnv},
		{"OptEnv", problem.IsOptEnv},
		{"Configurable", config.IsConfigurable},
	}
	for _, g := range guards {
		mark := " "
		if g.is(p) {
			mark = "x"
		}
		fmt.Fprintf(a.out, "[%s] %s\n", mark, g.name)
	}
	return nil
}

func (a *app) config(cmd *cobra.Command, args []string) error {
	p, err := a.make(args[0])
	if err != nil {
		return err
	}
	defer closeProblem(p, a.logger)

	c, ok := p.(config.Configurable)
	if !ok || !config.IsConfigurable(p) {
		return fmt.Errorf("%s is not configurable", args[0])
	}

	texts := map[string]string{}
	if file, _ := cmd.Flags().GetString("file"); file != "" {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		texts, err = config.LoadValues(f)
		f.Close()
		if err != nil {
			return err
		}
	}
	sets, _ := cmd.Flags().GetStringArray("set")
	for _, set := range sets {
		dest, value, err := splitPair(set)
		if err != nil {
			return err
		}
		texts[dest] = value
	}

	if len(texts) > 0 {
		if _, err := config.Apply(c, texts); err != nil {
			return err
		}
	}
	for _, f := range c.GetConfig().Fields() {
		fmt.Fprintf(a.out, "%s = %v", f.Dest, f.Value)
		if f.Range != nil {
			fmt.Fprintf(a.out, " [%g, %g]", f.Range.Low, f.Range.High)
		}
		if len(f.Choices) > 0 {
			fmt.Fprintf(a.out, " %v", f.Choices)
		}
		if f.Help != "" {
			fmt.Fprintf(a.out, "  # %s", f.Help)
		}
		fmt.Fprintln(a.out)
	}
	return nil
}

func (a *app) make(id string) (any, error) {
	opts := []registry.MakeOption{registry.WithRenderMode(a.renderMode)}
	for _, kv := range a.kwargs {
		key, value, err := splitPair(kv)
		if err != nil {
			return nil, err
		}
		opts = append(opts, registry.WithKwarg(key, value))
	}
	return a.reg.Make(id, opts...)
}

func splitPair(s string) (string, string, error) {
	key, value, ok := strings.Cut(s, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", "", fmt.Errorf("expected key=value, got %q", s)
	}
	return key, value, nil
}

func closeProblem(p any, logger *slog.Logger) {
	c, ok := p.(interface{ Close() error })
	if !ok {
		return
	}
	if err := c.Close(); err != nil {
		logger.Warn("closing problem", "error", err)
	}
}
