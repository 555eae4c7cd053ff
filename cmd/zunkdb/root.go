package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zunkfs/zunkdb/client"
	"github.com/zunkfs/zunkdb/libs/log"
)

// cliEnv holds what every subcommand needs, wired up once before the
// subcommand runs. Flags can also be given as environment variables with the
// ZUNKDB_ prefix, e.g. ZUNKDB_NODE and ZUNKDB_LOG_LEVEL.
type cliEnv struct {
	logger log.Logger
	client *client.Client
}

func rootCommand() *cobra.Command {
	env := &cliEnv{}

	cmd := &cobra.Command{
		Use:           "zunkdb",
		Short:         "client for a zunkdb chunk store network",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			v := viper.New()
			v.SetEnvPrefix("ZUNKDB")
			v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
			v.AutomaticEnv()
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}

			logger, err := log.NewDefaultLogger(os.Stderr,
				v.GetString("log-format"), v.GetString("log-level"))
			if err != nil {
				return err
			}
			env.logger = logger

			cfg, err := client.ParseSpec(v.GetString("node"))
			if err != nil {
				return fmt.Errorf("bad node spec: %w", err)
			}
			env.client, err = client.New(logger, cfg)
			return err
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if env.client != nil {
				return env.client.Close()
			}
			return nil
		},
	}

	cmd.PersistentFlags().String("node", "127.0.0.1:9876",
		"bootstrap node spec, ip:port[,timeout=SECONDS][,concurrency=N]")
	cmd.PersistentFlags().String("log-level", log.LogLevelInfo, "log level (debug|info|error)")
	cmd.PersistentFlags().String("log-format", log.LogFormatPlain, "log format (plain|json)")

	cmd.AddCommand(
		getCommand(env),
		putCommand(env),
	)
	return cmd
}
