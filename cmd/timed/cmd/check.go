package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kestrel-xyz/timed/pkg/preprocessor"
)

var checkCmd = &cobra.Command{
	Use:   "check <path>",
	Short: "Validate every directive without rewriting anything",
	Long: `check parses every //timed:instrument directive under the given
path and reports all configuration errors: unknown or duplicate keys,
bad level values, and malformed thresholds. Nothing is written.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	root := args[0]

	info, err := os.Stat(root)
	if err != nil {
		return err
	}

	manifestRoot := root
	if !info.IsDir() {
		manifestRoot = filepath.Dir(root)
	}
	opts, err := loadOptions(manifestRoot)
	if err != nil {
		return err
	}

	var errs []error
	if info.IsDir() {
		errs = preprocessor.CheckTree(root, opts)
	} else if _, _, err := preprocessor.ProcessFile(root, opts); err != nil {
		errs = append(errs, err)
	}

	for _, e := range errs {
		logger.Error("invalid directive", "error", e)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%d invalid directive(s)", len(errs))
	}
	logger.Debug("all directives valid", "path", root)
	return nil
}
