package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/notargets/pic/errs"
)

// rootCmd is the pic binary's entry point, following gocfd's cmd/1D.go
// and cmd/2D.go convention of a package-level Command with subcommands
// registered from their own init().
var rootCmd = &cobra.Command{
	Use:   "pic",
	Short: "Relativistic electromagnetic Particle-In-Cell engine",
	Long: `pic advances charged macro-particles coupled to electromagnetic
fields on a patched Cartesian grid, reading one or more parsed input
decks and running the time-step driver to completion or exit_asap.`,
}

func init() {
	cobra.OnInitialize(initViper)
}

// initViper sets viper's PIC_ environment-variable prefix and automatic
// env lookup. The deck record is read from its file alone; no viper key
// is bound onto it.
func initViper() {
	viper.SetEnvPrefix("PIC")
	viper.AutomaticEnv()
}

// Execute runs the root command; main calls this. On failure it exits
// with the errs Kind's exit code (1 for an error that carries no Kind).
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		code := 1
		var e *errs.Error
		if errors.As(err, &e) {
			code = e.Kind.ExitCode()
		}
		os.Exit(code)
	}
}
