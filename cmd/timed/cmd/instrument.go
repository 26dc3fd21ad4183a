package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kestrel-xyz/timed/pkg/preprocessor"
)

var (
	outputDir    string
	writeInPlace bool
)

var instrumentCmd = &cobra.Command{
	Use:   "instrument <path>",
	Short: "Rewrite annotated functions under a file or directory",
	Long: `instrument rewrites every function carrying a //timed:instrument
directive. By default the rewritten tree goes to a scratch directory;
use --output to pick one, or --write to rewrite files in place.`,
	Args: cobra.ExactArgs(1),
	RunE: runInstrument,
}

func init() {
	rootCmd.AddCommand(instrumentCmd)

	instrumentCmd.Flags().StringVarP(&outputDir, "output", "o", "", "write rewritten files into this directory, mirroring the tree")
	instrumentCmd.Flags().BoolVarP(&writeInPlace, "write", "w", false, "rewrite files in place")
}

func runInstrument(cmd *cobra.Command, args []string) error {
	root := args[0]

	if writeInPlace && outputDir != "" {
		return fmt.Errorf("--write and --output are mutually exclusive")
	}

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

	if !info.IsDir() {
		return instrumentFile(root, opts)
	}

	dir := outputDir
	if !writeInPlace && dir == "" {
		dir, err = preprocessor.TempOutputDir()
		if err != nil {
			return err
		}
	}

	results, err := preprocessor.ProcessTree(root, dir, opts)
	if err != nil {
		return err
	}
	for _, r := range results {
		logger.Info("instrumented", "file", r.Path, "output", r.Output)
	}
	if len(results) == 0 {
		logger.Info("no annotated functions found", "path", root)
	}
	return nil
}

// instrumentFile handles a single-file argument: --write rewrites it,
// otherwise the result goes to stdout.
func instrumentFile(path string, opts preprocessor.Options) error {
	if writeInPlace {
		return preprocessor.ProcessFileInPlace(path, opts)
	}
	content, modified, err := preprocessor.ProcessFile(path, opts)
	if err != nil {
		return err
	}
	if !modified {
		logger.Info("no annotated functions found", "path", path)
		return nil
	}
	_, err = os.Stdout.Write(content)
	return err
}
