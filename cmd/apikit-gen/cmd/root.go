package cmd

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kbukum/apikit/internal/stubgen"
	"github.com/kbukum/apikit/logger"
	"github.com/kbukum/apikit/version"
)

var (
	verbose   bool
	recursive bool
)

var rootCmd = &cobra.Command{
	Use:   "apikit-gen [file.go|dir]...",
	Short: "Generate stubs for apikit interface contracts",
	Long: `apikit-gen writes <file>_apikit.go next to every Go file declaring an
interface marked //apikit:contract. The generated stub registers itself
with proxy.DefaultStubs so apikit.Create can build clients of the interface.

Use it from a go:generate directive:

  //go:generate apikit-gen $GOFILE`,
	Args:          cobra.MinimumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.Get().Short())
	},
}

func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "apikit-gen: %v\n", err)
	}
	return err
}

func init() {
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log every file written")
	rootCmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "descend into sub-directories")
	rootCmd.AddCommand(versionCmd)
}

func run(cmd *cobra.Command, args []string) error {
	cfg := &logger.Config{Level: "info", Format: "console", Output: "stderr"}
	if verbose {
		cfg.Level = "debug"
	}
	log := logger.New(cfg, "apikit-gen")

	files, err := sources(args, recursive)
	if err != nil {
		return err
	}
	written := 0
	for _, path := range files {
		out, err := stubgen.GenerateFile(path)
		if err != nil {
			return err
		}
		if out == "" {
			continue
		}
		written++
		log.Debug("stub written", logger.Fields("source", path, "output", out))
	}
	log.Info("generation finished", logger.Fields("files", len(files), "written", written))
	return nil
}

// sources expands directories into the Go files they hold, skipping tests
// and generated stubs.
func sources(args []string, recursive bool) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != arg && (!recursive || strings.HasPrefix(d.Name(), ".") || strings.HasPrefix(d.Name(), "_")) {
					return filepath.SkipDir
				}
				return nil
			}
			if isSource(d.Name()) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

func isSource(name string) bool {
	return strings.HasSuffix(name, ".go") &&
		!strings.HasSuffix(name, "_test.go") &&
		!strings.HasSuffix(name, "_apikit.go")
}
