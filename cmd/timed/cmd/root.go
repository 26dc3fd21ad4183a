package cmd

import (
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/kestrel-xyz/timed/pkg/preprocessor"
)

var (
	cfgFile string
	verbose bool
	logger  *slog.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "timed",
	Short: "Declarative function timing instrumentation for Go",
	Long: `timed rewrites Go source so that functions annotated with the
//timed:instrument directive measure their own wall-clock execution time
and report it, without changing their signature or behavior.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		if logger == nil {
			initLogger()
		}
		logger.Error("command failed", "error", err)
	}
	return err
}

func init() {
	cobra.OnInitialize(initLogger)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "manifest file (default <path>/"+preprocessor.ManifestFileName+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func initLogger() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger = slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
}

// loadOptions resolves the manifest for root, honoring --config.
func loadOptions(root string) (preprocessor.Options, error) {
	if cfgFile != "" {
		m, err := preprocessor.LoadManifest(cfgFile)
		if err != nil {
			return preprocessor.Options{}, err
		}
		return preprocessor.Options{Manifest: m}, nil
	}
	return preprocessor.LoadOptions(root)
}
