package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Rashteg/h-opc-rashteg/internal/coerce"
	"github.com/Rashteg/h-opc-rashteg/internal/config"
	"github.com/Rashteg/h-opc-rashteg/internal/logging"
	"github.com/Rashteg/h-opc-rashteg/internal/opc"
	"github.com/Rashteg/h-opc-rashteg/internal/shell"
)

var (
	Version = "0.1.0"
	cfgFile string
	verbose bool
	culture string
)

// errUnsupportedType ends startup quietly after the supported types have
// been listed.
var errUnsupportedType = errors.New("unsupported server type")

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}

var rootCmd = &cobra.Command{
	Use:   "hopc [type serverUrl]",
	Short: "Interactive shell for OPC UA and DA servers",
	Long: `hopc connects to an OPC server and opens a shell for browsing its
address space and reading, writing and monitoring tags.

Run with a server type (UA or DA) and URL to connect directly, or without
arguments to be asked for them.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 0 && len(args) != 2 {
			return fmt.Errorf("expected a server type and URL, got %d argument(s)", len(args))
		}
		return nil
	},
	Version:      Version,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context(), args, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is "+config.DefaultPath+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log diagnostics at debug level")
	rootCmd.PersistentFlags().StringVar(&culture, "culture", "", "culture for number parsing, e.g. de-DE (default from the environment)")
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	logCfg := logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output}
	if verbose {
		logCfg.Level = "debug"
	}
	log, err := logging.New(logCfg)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	lr, err := newLineReader(out)
	if err != nil {
		return fmt.Errorf("failed to open terminal: %w", err)
	}
	defer lr.Close()
	out = lr.Stdout()

	client, err := connect(ctx, args, lr, out, cfg, log)
	if errors.Is(err, errUnsupportedType) {
		return nil
	}
	if err != nil {
		printStartupFailure(out, cfg.Support)
		log.Error("startup failed", zap.Error(err))
		return err
	}

	s := shell.NewSession(client,
		shell.WithOutput(out),
		shell.WithLogger(log),
		shell.WithParser(coerce.NewParser(cultureFor(cfg))),
		shell.WithInterrupt(waitForLine(lr)),
	)
	fmt.Fprintf(out, "hopc %s, type 'help' for available commands.\n", Version)
	return StartREPL(ctx, s, lr, out)
}

// connect resolves the server type and URL from args or guided setup and
// dials the server.
func connect(ctx context.Context, args []string, lr LineReader, out io.Writer, cfg *config.Config, log *zap.Logger) (opc.Client, error) {
	var (
		st  opc.ServerType
		url string
		err error
	)
	if len(args) == 2 {
		st, err = opc.ParseServerType(args[0])
		if err != nil {
			printSupportedTypes(out, args[0])
			return nil, errUnsupportedType
		}
		url = args[1]
	} else {
		st, url, err = guidedSetup(ctx, lr, out, cfg, log)
		if err != nil {
			return nil, err
		}
	}

	log.Info("connecting", zap.String("type", string(st)), zap.String("url", url))
	client, err := opc.Dial(ctx, st, url, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	fmt.Fprintf(out, "Connected to %s (%s)\n", url, st)
	return client, nil
}

func cultureFor(cfg *config.Config) coerce.Culture {
	name := culture
	if name == "" {
		name = cfg.Culture
	}
	if name == "" {
		return coerce.CurrentCulture()
	}
	return coerce.CultureFor(name)
}

func printSupportedTypes(out io.Writer, got string) {
	names := make([]string, 0, len(opc.SupportedTypes()))
	for _, t := range opc.SupportedTypes() {
		names = append(names, string(t))
	}
	fmt.Fprintf(out, "Unsupported server type %q. Supported types: %s\n", got, strings.Join(names, ", "))
}

func printStartupFailure(out io.Writer, support string) {
	fmt.Fprintln(out, "Sorry, hopc could not start and has to close.")
	if support != "" {
		fmt.Fprintln(out, support)
	}
}
