package cli

import (
	"github.com/spf13/cobra"
)

// extractCLIFlags copies every explicitly set flag into flags.
func extractCLIFlags(cmd *cobra.Command, flags map[string]any) {
	addFlag := func(flagName string, getter func(string) (any, error)) {
		if cmd.Flags().Lookup(flagName) == nil || !cmd.Flags().Changed(flagName) {
			return
		}
		if value, err := getter(flagName); err == nil {
			flags[flagName] = value
		}
	}

	getString := func(name string) (any, error) { return cmd.Flags().GetString(name) }
	getInt := func(name string) (any, error) { return cmd.Flags().GetInt(name) }
	getBool := func(name string) (any, error) { return cmd.Flags().GetBool(name) }
	getDuration := func(name string) (any, error) { return cmd.Flags().GetDuration(name) }

	flagDefs := []struct {
		flagName string
		getter   func(string) (any, error)
	}{
		{"cwd", getString},
		{"log-level", getString},
		{"log-json", getBool},
		{"fail-on-error", getBool},
		{"workers", getInt},
		{"debounce", getDuration},
		{"watch-sources", getBool},
		{"metrics-file", getString},
	}
	for _, def := range flagDefs {
		addFlag(def.flagName, def.getter)
	}
}
