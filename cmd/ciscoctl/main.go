package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/netdevops/ciscoctl/cmd/ciscoctl/commands"
	"github.com/netdevops/ciscoctl/internal/config"
	"github.com/netdevops/ciscoctl/internal/constants"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   constants.AppName,
	Short: "Cisco APIC-EM and IOS-XE REST CLI",
	Long: `A command-line interface for the Cisco APIC-EM controller and the IOS-XE REST API.

Service tickets and tokens are cached per host and reused until shortly
before they expire, so repeated invocations do not log in again.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.ciscoctl/config.yml)")
	rootCmd.PersistentFlags().String("output", constants.FormatTable, "output format (table, json, yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().String("log-format", constants.DefaultLogFormat, "log format on stderr (text, json)")
	rootCmd.PersistentFlags().String("metrics-textfile", "", "write credential metrics in Prometheus text format to this file")

	// Bind flags to viper
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("metrics_textfile", rootCmd.PersistentFlags().Lookup("metrics-textfile"))

	// Add commands
	rootCmd.AddCommand(commands.NewVersionCommand(version, commit, date))
	rootCmd.AddCommand(commands.NewLoginCommand())
	rootCmd.AddCommand(commands.NewConfigCommand())
	rootCmd.AddCommand(commands.NewCredentialsCommand())
	rootCmd.AddCommand(commands.NewAPICEMCommand())
	rootCmd.AddCommand(commands.NewIOSXECommand())
}

func initConfig() {
	config.SetDefaults(viper.GetViper())

	cfgFile := viper.GetString("config")

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Search config in ~/.ciscoctl/config.yml
		viper.AddConfigPath(config.Dir())
		viper.SetConfigType("yml")
		viper.SetConfigName(constants.ConfigFileName)
	}

	// Read in environment variables that match, e.g. CISCOCTL_APICEM_PASSWORD
	viper.SetEnvPrefix(constants.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

// execute runs the command line and then writes the metrics textfile, also
// when the command failed.
func execute() error {
	err := rootCmd.Execute()

	return errors.Join(err, writeMetrics(viper.GetString("metrics_textfile")))
}

func writeMetrics(path string) error {
	if path == "" {
		return nil
	}

	err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
	if err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}

	return nil
}

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
