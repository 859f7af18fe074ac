package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fwessels/ppr"
	"github.com/fwessels/ppr/internal/logging"
	"github.com/fwessels/ppr/internal/logging/logfields"
	"github.com/fwessels/ppr/internal/preprocessor"
)

var log = logging.DefaultLogger.WithField(logfields.LogSubsys, "ppr")

func newRootCmd() *cobra.Command {
	v := viper.New()
	def := ppr.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "ppr [flags] [file]",
		Short: "Line oriented macro preprocessor",
		Long: `ppr expands the macros of a text document. The document is read from
file, or from stdin when file is missing or "-", and written to stdout unless
--output is given. Nothing is written when preprocessing fails.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(v)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), v, args, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.String("config", "", "config file (yaml, toml or json)")
	flags.StringSliceP("include", "I", def.IncludeDirs, "directories searched by load and require, in order")
	flags.StringArrayP("define", "D", nil, "set parameter name=value (value defaults to 1)")
	flags.StringP("output", "o", "", "output file (default stdout)")
	flags.Duration("timeout", 0, "maximum running time of a single macro (0 disables)")
	flags.Int("max-depth", def.MaxDepth, "maximum nesting of expansions and inclusions (0 disables)")
	flags.Bool("debug", false, "enable debug messages")
	flags.String("log-format", string(logging.DefaultLogFormat), "log format (text or json)")
	if err := v.BindPFlags(flags); err != nil {
		log.WithError(err).Fatal("Unable to bind flags")
	}
	return cmd
}

// initConfig reads the config file and environment and sets up logging.
func initConfig(v *viper.Viper) error {
	v.SetEnvPrefix("ppr")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if cfgFile := v.GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return errors.Wrapf(err, "reading config file %s", cfgFile)
		}
	}

	format, err := logging.ParseLogFormat(v.GetString("log-format"))
	if err != nil {
		return err
	}
	logging.SetLogFormat(format)
	if v.GetBool("debug") {
		logging.SetLogLevelToDebug()
	} else {
		logging.SetLogLevel(logging.DefaultLogLevel)
	}
	if f := v.ConfigFileUsed(); f != "" {
		log.WithField(logfields.Path, f).Debug("Using config file")
	}
	return nil
}

// loadConfig merges the defaults, the config file, the environment and the
// flags.
func loadConfig(v *viper.Viper) (ppr.Config, error) {
	cfg := ppr.DefaultConfig()
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, errors.Wrap(err, "decoding configuration")
	}
	params := make(map[string]string, len(cfg.Params))
	for k, val := range cfg.Params {
		params[k] = val
	}
	for _, d := range v.GetStringSlice("define") {
		name, value := preprocessor.ParseDefine(d)
		params[name] = value
	}
	cfg.Params = params
	return cfg, nil
}

func run(ctx context.Context, v *viper.Viper, args []string, stdin io.Reader, stdout io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig(v)
	if err != nil {
		return err
	}
	var opts []ppr.Option
	if t := v.GetDuration("timeout"); t > 0 {
		opts = append(opts, ppr.WithEngine(ppr.NewLuaEngine(ppr.LuaTimeout(t))))
	}
	p, err := ppr.New(cfg, opts...)
	if err != nil {
		return err
	}

	name, in := "<stdin>", stdin
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return errors.Wrap(err, "opening input")
		}
		defer f.Close()
		name, in = args[0], f
	}

	log.WithFields(logrus.Fields{
		logfields.Document: name,
		"includes":         cfg.IncludeDirs,
	}).Debug("Preprocessing")

	var out bytes.Buffer
	if err := p.Process(ctx, name, in, &out); err != nil {
		return err
	}
	if o := v.GetString("output"); o != "" {
		return errors.Wrapf(os.WriteFile(o, out.Bytes(), 0o644), "writing %s", o)
	}
	_, err = stdout.Write(out.Bytes())
	return err
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
