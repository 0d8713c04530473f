package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zberg/go-vcontrold/pkg/output"
	"github.com/zberg/go-vcontrold/pkg/publish"
	"github.com/zberg/go-vcontrold/pkg/vcontrold"
)

// v holds flags, environment and config file settings.
var v = viper.New()

// settings is the resolved configuration of one invocation.
type settings struct {
	Host           string
	Port           int
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	CatalogPath    string
	Fahrenheit     bool
	SwitchAsBool   bool
	ExcludeTimers  bool
	Format         output.Format
	Output         output.Options
	MQTT           publish.Config
	Schedule       string
	MetricsAddr    string
	Logger         *slog.Logger
}

var cfg settings

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default: ./vcontrold.yaml, ~/.config/vcontrold/vcontrold.yaml, /etc/vcontrold/vcontrold.yaml)")
	flags.String("host", "", "vcontrold host name or IP address")
	flags.Int("port", 3002, "vcontrold TCP port")
	flags.Duration("connect-timeout", 10*time.Second, "timeout for connecting to vcontrold")
	flags.Duration("read-timeout", 30*time.Second, "timeout for a single vcontrold reply")
	flags.String("catalog", "vcontrold_commands.yaml", "command catalog file, created from the default template if missing")
	flags.String("log-level", "warn", "log level (debug, info, warn, error)")
	flags.Bool("fahrenheit", false, "convert temperatures to Fahrenheit")
	flags.Bool("switch-as-bool", true, "render switch values as true/false instead of on/off")
	flags.Bool("exclude-timers", false, "leave execution times out of the output")
	flags.StringP("format", "o", "json", "output format ("+strings.Join(output.Formats(), ", ")+")")
	flags.String("csv-delimiter", ",", "CSV cell delimiter")
	flags.String("csv-linebreak", `\n`, "CSV line break, escapes like \\r\\n are understood")
	flags.Bool("csv-single-quotes", false, "quote CSV cells with single quotes")
	flags.Bool("color", false, "colored table output")

	if err := v.BindPFlags(flags); err != nil {
		panic(err)
	}
}

// loadSettings merges flags, VCONTROLD_* environment variables and the
// config file into cfg.
func loadSettings(cmd *cobra.Command) error {
	if err := readConfig(v); err != nil {
		return err
	}
	s, err := resolveSettings(v, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	cfg = s
	return nil
}

// readConfig enables the environment and reads the config file named by
// the config key, or the first vcontrold.yaml found. A missing default
// config file is not an error.
func readConfig(v *viper.Viper) error {
	v.SetEnvPrefix("vcontrold")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("vcontrold")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/vcontrold")
		v.AddConfigPath("/etc/vcontrold")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

func resolveSettings(v *viper.Viper, logOut io.Writer) (settings, error) {
	logger, err := newLogger(v.GetString("log-level"), logOut)
	if err != nil {
		return settings{}, err
	}
	format, err := output.ParseFormat(v.GetString("format"))
	if err != nil {
		return settings{}, err
	}

	mqtt := publish.DefaultConfig()
	mqtt.Broker = v.GetString("mqtt.broker")
	mqtt.ClientID = v.GetString("mqtt.client-id")
	mqtt.Username = v.GetString("mqtt.username")
	mqtt.Password = v.GetString("mqtt.password")
	if prefix := v.GetString("mqtt.topic-prefix"); prefix != "" {
		mqtt.TopicPrefix = prefix
	}

	return settings{
		Host:           v.GetString("host"),
		Port:           v.GetInt("port"),
		ConnectTimeout: v.GetDuration("connect-timeout"),
		ReadTimeout:    v.GetDuration("read-timeout"),
		CatalogPath:    v.GetString("catalog"),
		Fahrenheit:     v.GetBool("fahrenheit"),
		SwitchAsBool:   v.GetBool("switch-as-bool"),
		ExcludeTimers:  v.GetBool("exclude-timers"),
		Format:         format,
		Output: output.Options{
			CSV: output.CSVOptions{
				Delimiter:    v.GetString("csv-delimiter"),
				LineBreak:    unescape(v.GetString("csv-linebreak")),
				SingleQuotes: v.GetBool("csv-single-quotes"),
			},
			Color: v.GetBool("color"),
		},
		MQTT:        mqtt,
		Schedule:    v.GetString("schedule"),
		MetricsAddr: v.GetString("metrics-addr"),
		Logger:      logger,
	}, nil
}

// newLogger returns a text logger on w at the named level.
func newLogger(level string, w io.Writer) (*slog.Logger, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l})), nil
}

// clientOptions turns the settings into vcontrold client options.
func (s settings) clientOptions() []vcontrold.ClientOption {
	return []vcontrold.ClientOption{
		vcontrold.WithPort(s.Port),
		vcontrold.WithConnectTimeout(s.ConnectTimeout),
		vcontrold.WithReadTimeout(s.ReadTimeout),
		vcontrold.WithFahrenheit(s.Fahrenheit),
		vcontrold.WithSwitchAsBool(s.SwitchAsBool),
		vcontrold.WithExcludeTimers(s.ExcludeTimers),
		vcontrold.WithLogger(s.Logger),
	}
}

func (s settings) requireHost() error {
	if s.Host == "" {
		return errors.New("vcontrold host required: use --host or VCONTROLD_HOST")
	}
	return nil
}

var escapes = strings.NewReplacer(`\r`, "\r", `\n`, "\n", `\t`, "\t")

// unescape resolves backslash escapes typed on a command line.
func unescape(s string) string {
	return escapes.Replace(s)
}
