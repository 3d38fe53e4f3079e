package cmd

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/Schleppy/fwenable"
	"github.com/Schleppy/fwenable/internal/ctxlog"
)

const envPrefix = "CHARITE_FIREWALL_"

// UsageError is returned for malformed command lines.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string { return e.Err.Error() }
func (e *UsageError) Unwrap() error { return e.Err }

// EnablerFactory builds the portal client for a resolved config.
type EnablerFactory func(conf fwenable.Config, out io.Writer) (fwenable.Enabler, fwenable.Delayer, error)

// Deps are the process collaborators of the command. Zero fields get the
// real implementations.
type Deps struct {
	Getenv     func(string) string
	Prompt     PromptFunc
	Stdout     io.Writer
	Stderr     io.Writer
	NewEnabler EnablerFactory

	// DefaultConfigPath is read when --config is not given. A missing file
	// there is not an error.
	DefaultConfigPath string
}

func (d Deps) withDefaults() Deps {
	if d.Getenv == nil {
		d.Getenv = os.Getenv
	}
	if d.Stdout == nil {
		d.Stdout = os.Stdout
	}
	if d.Stderr == nil {
		d.Stderr = os.Stderr
	}
	if d.Prompt == nil {
		d.Prompt = terminalPrompt(os.Stdin, d.Stderr)
	}
	if d.DefaultConfigPath == "" {
		d.DefaultConfigPath = defaultConfigPath()
	}
	if d.NewEnabler == nil {
		d.NewEnabler = newNegotiator
	}
	return d
}

// defaultConfigPath is config.yaml in the user's config directory, or empty
// when there is none.
func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "fwenable", "config.yaml")
}

func newNegotiator(conf fwenable.Config, out io.Writer) (fwenable.Enabler, fwenable.Delayer, error) {
	delay := fwenable.RandomDelay{Min: conf.MinDelay, Max: conf.MaxDelay, Out: out}
	n, err := fwenable.NewNegotiator(conf, fwenable.WithOutput(out), fwenable.WithDelayer(delay))
	if err != nil {
		return nil, nil, err
	}
	return n, delay, nil
}

type options struct {
	configPath string
	url        string
	timeout    int
	username   string
	password   string
	noStandard bool
	noSpecific bool
	services   [fwenable.HostSlots]string
	hosts      [fwenable.HostSlots]string
	minDelay   time.Duration
	maxDelay   time.Duration
	logLevel   string
	logFormat  string
}

// NewRootCommand returns the fwenable command.
func NewRootCommand(deps Deps) *cobra.Command {
	deps = deps.withDefaults()
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "fwenable",
		Short: "Enable firewall access to an external host",
		Long: `Enable firewall access through the campus firewall portal.

Standard rules are requested unless --noStandard is given. Specific rules are
requested for every --hostN (0-9), using --serviceN or "ssh" as the service.
Unset values are taken from CHARITE_FIREWALL_* environment variables, then
from the --config file or, without --config, from config.yaml in the user's
config directory when it exists.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cmd, opts, deps)
		},
	}
	cmd.SetOut(deps.Stdout)
	cmd.SetErr(deps.Stderr)
	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return &UsageError{Err: err}
	})

	f := cmd.Flags()
	f.StringVarP(&opts.configPath, "config", "c", "", "Config yaml file (default "+deps.DefaultConfigPath+", if present)")
	f.StringVar(&opts.url, "url", "", "Portal URL (default "+fwenable.DefaultURL+")")
	f.IntVar(&opts.timeout, "timeout", 0, "HTTP timeout in seconds, 0 for none")
	f.StringVar(&opts.username, "username", "", "The username. Taken from "+envPrefix+"USERNAME if not given.")
	f.StringVar(&opts.password, "password", "", "The password. Taken from "+envPrefix+"PASSWORD if not given.")
	f.BoolVar(&opts.noStandard, "noStandard", false, "If given, do not request standard rules.")
	f.BoolVar(&opts.noSpecific, "noSpecific", false, "If given, do not request specific firewall rules (specified using --service and --host).")
	for i := 0; i < fwenable.HostSlots; i++ {
		idx := strconv.Itoa(i)
		f.StringVar(&opts.services[i], "service"+idx, "", "Service name "+idx)
		f.StringVar(&opts.hosts[i], "host"+idx, "", "Host name "+idx)
	}
	f.DurationVar(&opts.minDelay, "min-delay", 0, "Minimum pause between portal requests (default 1s)")
	f.DurationVar(&opts.maxDelay, "max-delay", 0, "Maximum pause between portal requests (default 3s)")
	f.StringVar(&opts.logLevel, "log-level", "warn", "Log level: debug, info, warn or error")
	f.StringVar(&opts.logFormat, "log-format", "text", "Log format: text or json")

	return cmd
}

func run(ctx context.Context, cmd *cobra.Command, opts *options, deps Deps) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logLevel, logFormat := strings.ToLower(opts.logLevel), strings.ToLower(opts.logFormat)
	switch logLevel {
	case "debug", "info", "warn", "error":
	default:
		return &UsageError{Err: errors.New("invalid log-level: must be 'debug', 'info', 'warn', or 'error'")}
	}
	if logFormat != "text" && logFormat != "json" {
		return &UsageError{Err: errors.New("invalid log-format: must be 'text' or 'json'")}
	}
	logger := newLogger(logLevel, logFormat, deps.Stderr)
	ctx = ctxlog.WithLogger(ctx, logger)

	conf, err := resolveConfig(ctx, cmd, opts, deps)
	if err != nil {
		return err
	}
	if err := conf.Validate(); err != nil {
		return err
	}

	if conf.Password == "" {
		pw, err := deps.Prompt(fmt.Sprintf("Firewall password for %s: ", conf.Username))
		if err != nil {
			return err
		}
		conf.Password = pw
	}
	logger.Debug("Configuration resolved.", "url", conf.URL, "user", conf.Username, "standard", conf.Standard(), "specific", conf.Specific())

	enabler, delay, err := deps.NewEnabler(conf, deps.Stdout)
	if err != nil {
		return err
	}
	return fwenable.Run(ctx, conf, enabler, delay, deps.Stdout)
}

// resolveConfig merges, per value, flags over environment over config file.
func resolveConfig(ctx context.Context, cmd *cobra.Command, opts *options, deps Deps) (fwenable.Config, error) {
	var conf fwenable.Config
	flags := cmd.Flags()
	getenv := deps.Getenv

	path, explicit := deps.DefaultConfigPath, flags.Changed("config")
	if explicit {
		path = opts.configPath
	}
	if path != "" {
		loaded, err := fwenable.LoadConfigFile(path)
		switch {
		case err == nil:
			conf = loaded
		case !explicit && errors.Is(err, fs.ErrNotExist):
			ctxlog.FromContext(ctx).Debug("No default config file.", "path", path)
		default:
			return conf, err
		}
	}

	pick := func(flagVal, envName, fileVal string) string {
		if flagVal != "" {
			return flagVal
		}
		if v := getenv(envPrefix + envName); v != "" {
			return v
		}
		return fileVal
	}

	conf.Username = pick(opts.username, "USERNAME", conf.Username)
	conf.Password = pick(opts.password, "PASSWORD", conf.Password)

	if len(conf.Hosts) > fwenable.HostSlots {
		return conf, &fwenable.ConfigurationError{Reason: fmt.Sprintf("config file lists %d hosts, at most %d are allowed", len(conf.Hosts), fwenable.HostSlots)}
	}
	slots := conf.Slots()
	for i := range slots {
		idx := strconv.Itoa(i)
		slots[i].Service = pick(opts.services[i], "SERVICE"+idx, slots[i].Service)
		slots[i].Host = pick(opts.hosts[i], "HOST"+idx, slots[i].Host)
	}
	conf.Hosts = slots[:]

	if flags.Changed("noStandard") {
		conf.NoStandard = opts.noStandard
	}
	if flags.Changed("noSpecific") {
		conf.NoSpecific = opts.noSpecific
	}
	if opts.url != "" {
		conf.URL = opts.url
	}
	if flags.Changed("timeout") {
		conf.Timeout = opts.timeout
	}
	if flags.Changed("min-delay") || flags.Changed("max-delay") {
		minDelay, maxDelay := conf.MinDelay, conf.MaxDelay
		if flags.Changed("min-delay") {
			minDelay = opts.minDelay
		}
		if flags.Changed("max-delay") {
			maxDelay = opts.maxDelay
		}
		conf = conf.WithDelay(minDelay, maxDelay)
	}
	return conf.WithDefaults(), nil
}
