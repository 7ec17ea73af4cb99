package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/greypolicy/internal/address"
	"github.com/eugenenazirov/greypolicy/internal/config"
	"github.com/eugenenazirov/greypolicy/internal/logging"
	"github.com/eugenenazirov/greypolicy/internal/policy"
	"github.com/eugenenazirov/greypolicy/internal/storage"
)

var newLogger = func(cfg config.Config) (*zap.Logger, error) {
	return logging.New(logging.Options{Stderr: true, Syslog: cfg.LogSyslog, SyslogTag: "greypolicy-lookup"})
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type lookupOutput struct {
	Settings      map[string]any `yaml:"settings"`
	CheckGreylist bool           `yaml:"checkGreylist"`
	CheckSPF      bool           `yaml:"checkSpf"`
	Fallback      bool           `yaml:"fallback"`
}

func run(args []string, stdout, stderr io.Writer) int {
	app := kingpin.New("greypolicy-lookup", "Inspect the policy store - resolve the settings of one message or convert path segments")
	app.UsageWriter(stdout).ErrorWriter(stderr)
	app.Terminate(nil)

	resolveCmd := app.Command("resolve", "Print the effective settings of a message as YAML")
	configFile := resolveCmd.Flag("config", "Path to the settings file (TOML or YAML)").Default(config.DefaultConfigFile).String()
	configPath := resolveCmd.Flag("config-path", "Policy store location (file:///absolute/dir)").String()
	debugLevel := resolveCmd.Flag("debug-level", "Diagnostic verbosity from 0 to 4").Default("-1").Int()
	sender := resolveCmd.Flag("sender", "Envelope sender address").String()
	recipient := resolveCmd.Flag("recipient", "Envelope recipient address").String()
	clientAddress := resolveCmd.Flag("client-address", "Client IP address").String()

	quoteCmd := app.Command("quote", "Encode a value into a policy path segment")
	quoteArg := quoteCmd.Arg("value", "Address, domain or local part").Required().String()

	unquoteCmd := app.Command("unquote", "Decode a policy path segment")
	unquoteArg := unquoteCmd.Arg("segment", "Encoded path segment").Required().String()

	command, err := app.Parse(args)
	if err != nil {
		fmt.Fprintf(stderr, "greypolicy-lookup: %v\n", err)
		return 2
	}

	switch command {
	case quoteCmd.FullCommand():
		fmt.Fprintln(stdout, address.Quote(*quoteArg))
		return 0
	case unquoteCmd.FullCommand():
		fmt.Fprintln(stdout, address.Unquote(*unquoteArg))
		return 0
	case resolveCmd.FullCommand():
		overrides := &config.CLIOverrides{ConfigFile: *configFile}
		if *configPath != "" {
			overrides.ConfigPath = configPath
		}
		if *debugLevel >= 0 {
			overrides.DebugLevel = debugLevel
		}
		attrs := policy.Attributes{
			Sender:        *sender,
			Recipient:     *recipient,
			ClientAddress: *clientAddress,
		}
		return resolve(overrides, attrs, stdout, stderr)
	default:
		fmt.Fprintf(stderr, "greypolicy-lookup: unknown command %q\n", command)
		return 2
	}
}

// resolve prints the effective settings of one message as YAML.
func resolve(overrides *config.CLIOverrides, attrs policy.Attributes, stdout, stderr io.Writer) int {
	cfg, err := config.Load(overrides)
	if err != nil {
		fmt.Fprintf(stderr, "greypolicy-lookup: %v\n", err)
		return 1
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "greypolicy-lookup: %v\n", err)
		return 1
	}
	defer func() {
		_ = logger.Sync()
	}()

	resolver := policy.NewResolver(cfg, logging.NewLeveled(logger, cfg.DebugLevel))
	settings, err := resolver.Resolve(attrs)

	out := lookupOutput{}
	switch {
	case errors.Is(err, storage.ErrUnsupportedScheme):
		fmt.Fprintf(stderr, "greypolicy-lookup: %v, showing defaults\n", err)
		out.Fallback = true
	case err != nil:
		fmt.Fprintf(stderr, "greypolicy-lookup: %v\n", err)
		return 1
	}

	out.Settings = settings.Export()
	out.CheckGreylist = settings.CheckGreylist()
	out.CheckSPF = settings.CheckSPF()

	enc := yaml.NewEncoder(stdout)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(stderr, "greypolicy-lookup: encode output: %v\n", err)
		return 1
	}
	if err := enc.Close(); err != nil {
		fmt.Fprintf(stderr, "greypolicy-lookup: encode output: %v\n", err)
		return 1
	}
	return 0
}
