package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"gooze.dev/pkg/testbench/internal/adapter"
)

const (
	exampleUnitName    = "example.Counter"
	exampleProgramFile = "example.yaml"
)

const exampleUnit = `name: example.Counter
fields:
  count: 0
constructors:
  - params:
      - {name: start, type: int}
    init:
      count: start
methods:
  - name: add
    params:
      - {name: n, type: int}
    body: 'n < 0 ? fail("example.NegativeStep", "step must not be negative") : count + n'
    assign: count
    mutants:
      - 'count - n'
      - 'count * n'
  - name: reset
    body: '0'
    assign: count
    mutants:
      - '1'
`

const exampleProgram = `name: counter-adds
steps:
  - {unit: example.Counter, construct: true, params: [int], args: [1]}
  - {unit: example.Counter, invoke: add, args: [2]}
  - {unit: example.Counter, field: count}
`

// initCmd represents the init command.
var initCmd = newInitCmd()

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Generate a default testbench.yaml and an example unit and program",
		Long: `Create a testbench.yaml in the current working directory populated with the
current CLI defaults so it can be edited manually. An example unit and
program are added to the source and program directories unless they exist.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			targetPath := filepath.Join(configFolderPath, configFileName)

			err := viper.SafeWriteConfigAs(targetPath)
			if err != nil {
				return fmt.Errorf("failed to write config file: %w", err)
			}

			cmd.Println("Wrote", targetPath)

			return writeExamples(cmd, afero.NewOsFs())
		},
	}
}

type exampleFile struct {
	path    string
	content string
}

func writeExamples(cmd *cobra.Command, fsys afero.Fs) error {
	unitPath, err := adapter.UnitPath(viper.GetString(sourceDirKey), exampleUnitName)
	if err != nil {
		return err
	}

	files := []exampleFile{{path: unitPath, content: exampleUnit}}

	if programs := viper.GetStringSlice(programsKey); len(programs) > 0 {
		files = append(files, exampleFile{path: filepath.Join(programs[0], exampleProgramFile), content: exampleProgram})
	}

	for _, f := range files {
		written, err := writeIfMissing(fsys, f.path, f.content)
		if err != nil {
			return err
		}

		if written {
			cmd.Println("Wrote", f.path)
		}
	}

	return nil
}

func writeIfMissing(fsys afero.Fs, path, content string) (bool, error) {
	exists, err := afero.Exists(fsys, path)
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if exists {
		return false, nil
	}

	if err := fsys.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}

	if err := afero.WriteFile(fsys, path, []byte(content), os.FileMode(0o644)); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", path, err)
	}

	return true, nil
}

func init() {
	rootCmd.AddCommand(initCmd)
}
