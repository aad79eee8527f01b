package cli

import (
	"fmt"
	"net/url"
	"sort"

	"github.com/spf13/cobra"

	"github.com/alnah/go-diarist/internal/config"
)

// ConfigCmd creates the config command with get/set/list subcommands.
func ConfigCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage persistent configuration",
		Long: `Manage configuration stored in ~/.config/go-diarist/config.

Available keys:
  output-dir     Default output directory for results
  embedding-url  Speaker embedding service URL`,
	}

	cmd.AddCommand(configGetCmd(env))
	cmd.AddCommand(configSetCmd(env))
	cmd.AddCommand(configListCmd(env))

	return cmd
}

// validKey reports whether key is a known configuration key.
func validKey(key string) bool {
	switch key {
	case config.KeyOutputDir, config.KeyEmbeddingURL:
		return true
	}
	return false
}

func configGetCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			key := args[0]
			if !validKey(key) {
				return fmt.Errorf("unknown config key: %q", key)
			}

			value, err := config.Get(key)
			if err != nil {
				return fmt.Errorf("failed to read config: %w", err)
			}
			if value == "" {
				fmt.Fprintf(env.Stderr, "%s is not set\n", key)
				return nil
			}

			fmt.Fprintf(env.Stderr, "%s\n", value)
			return nil
		},
	}
}

func configSetCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Example: `  diarist config set output-dir ~/diarist-results
  diarist config set embedding-url http://localhost:8080`,
		Args: cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			key, value := args[0], args[1]

			switch key {
			case config.KeyOutputDir:
				if err := config.ValidOutputDir(value); err != nil {
					return fmt.Errorf("invalid output directory: %w", err)
				}
			case config.KeyEmbeddingURL:
				u, err := url.Parse(value)
				if err != nil || u.Scheme == "" || u.Host == "" {
					return fmt.Errorf("invalid embedding URL: %q (expected e.g. http://localhost:8080)", value)
				}
			default:
				return fmt.Errorf("unknown config key: %q", key)
			}

			if err := config.Save(key, value); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			fmt.Fprintf(env.Stderr, "%s set to %s\n", key, value)
			return nil
		},
	}
}

func configListCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print all configuration values",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			data, err := config.List()
			if err != nil {
				return fmt.Errorf("failed to read config: %w", err)
			}
			if len(data) == 0 {
				fmt.Fprintln(env.Stderr, "no configuration set")
				return nil
			}

			keys := make([]string, 0, len(data))
			for k := range data {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			for _, k := range keys {
				fmt.Fprintf(env.Stderr, "%s=%s\n", k, data[k])
			}
			return nil
		},
	}
}
