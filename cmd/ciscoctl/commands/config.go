package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/netdevops/ciscoctl/internal/config"
	"github.com/netdevops/ciscoctl/internal/constants"
)

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
		Long:  "Show and change the ciscoctl configuration file",
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigSetCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  "Display the effective configuration from file, environment and flags. Passwords are masked.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			masked := cfg.Masked()

			return render(cmd.OutOrStdout(), masked, func(table *tablewriter.Table) {
				table.Header("Key", "Value")
				_ = table.Append("config file", orNotAvailable(viper.ConfigFileUsed()))

				keys := viper.AllKeys()
				slices.Sort(keys)

				for _, key := range keys {
					if !config.IsKnownKey(viper.GetViper(), key) {
						continue
					}

					value := viper.GetString(key)
					if strings.HasSuffix(key, ".password") && value != "" {
						value = constants.MaskedSecret
					}

					_ = table.Append(key, value)
				}
			})
		},
	}
}

func newConfigSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a configuration value",
		Long:  "Write a value to the configuration file, e.g. 'ciscoctl config set apicem.host 10.1.1.1'",
		Args:  cobra.ExactArgs(2), //nolint:mnd // key and value
		RunE: func(cmd *cobra.Command, args []string) error {
			key := strings.ToLower(args[0])
			value := args[1]

			if !config.IsKnownKey(viper.GetViper(), key) {
				return fmt.Errorf("%w: %s", constants.ErrUnknownConfigKey, key)
			}

			path := configFilePath()

			err := saveConfigValue(path, key, value)
			if err != nil {
				return err
			}

			viper.Set(key, value)

			_, err = loadConfig()
			if err != nil {
				return fmt.Errorf("saved %s, but the configuration is now invalid: %w", path, err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Set %s in %s\n", key, path)

			return nil
		},
	}
}

// configFilePath returns the file in use or the default location.
func configFilePath() string {
	if used := viper.ConfigFileUsed(); used != "" {
		return used
	}

	return filepath.Join(config.Dir(), constants.ConfigFileName+".yml")
}

// saveConfigValue rewrites the file with key set, keeping the other values
// stored in the file and leaving defaults out.
func saveConfigValue(path, key, value string) error {
	file := viper.New()
	file.SetConfigFile(path)
	file.SetConfigType("yaml")

	err := file.ReadInConfig()

	var pathErr *fs.PathError
	if err != nil && !errors.As(err, &pathErr) {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	file.Set(key, value)

	err = os.MkdirAll(filepath.Dir(path), constants.ConfigDirPerm)
	if err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	err = file.WriteConfigAs(path)
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	err = os.Chmod(path, constants.ConfigFilePerm)
	if err != nil {
		return fmt.Errorf("restricting %s: %w", path, err)
	}

	return nil
}
