package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	convertcmd "github.com/gearmap/gearmap-go/cmd/convert"
	"github.com/gearmap/gearmap-go/cmd/inspect"
	"github.com/gearmap/gearmap-go/cmd/serve"
	"github.com/gearmap/gearmap-go/internal/conf"
)

// RootCommand creates and returns the root command.
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gearmap",
		Short: "GearMap CLI",
		Long:  "Convert bid map PDF annotations into deployment map icons and manage the icon tuner service.",
	}

	setupFlags(rootCmd, settings)

	subcommands := []*cobra.Command{
		serve.Command(settings),
		convertcmd.Command(settings),
		inspect.Command(settings),
	}
	rootCmd.AddCommand(subcommands...)

	return rootCmd
}

// setupFlags configures the global flags for the root command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) {
	cmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")

	if err := viper.BindPFlags(cmd.PersistentFlags()); err != nil {
		cobra.CheckErr(err)
	}
}
