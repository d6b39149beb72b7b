package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/explode/pkg/assembly"
	"github.com/matzehuels/explode/pkg/errors"
	"github.com/matzehuels/explode/pkg/loader"
)

// validateCommand creates the validate command, which checks an assembly
// file and optionally converts it to another format.
func (c *CLI) validateCommand() *cobra.Command {
	var (
		strict bool
		output string
	)

	cmd := &cobra.Command{
		Use:   "validate [assembly-file]",
		Short: "Check an assembly file for errors",
		Long: `Check an assembly file: names, parents, limits, relations and cycles.

References to unknown parts in blocks, attracts or followers are reported as
warnings; --strict turns them into an error. With -o the linked assembly is
written back out, which also converts between TOML, YAML and JSON.`,
		Example: `  explode validate gearbox.toml
  explode validate gearbox.toml -o gearbox.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.loadAssembly(args[0])
			if err != nil {
				return err
			}
			tree := res.Tree

			containers := 0
			tree.ForEachIf((*assembly.Part).IsContainer, func(*assembly.Part) { containers++ })

			printSuccess("%s is valid", filepath.Base(args[0]))
			printKeyValue("parts", fmt.Sprint(tree.Len()))
			printKeyValue("roots", fmt.Sprint(len(tree.RootIndices())))
			printKeyValue("containers", fmt.Sprint(containers))
			printKeyValue("propagated", fmt.Sprint(res.Propagated))
			for _, w := range res.Warnings {
				printWarning("%s", w)
			}

			if output != "" {
				if err := loader.Save(tree, output); err != nil {
					return err
				}
				printFile(output)
			}
			if strict && len(res.Warnings) > 0 {
				return errors.New(errors.ErrCodeInvalidAssembly, "%d unresolved references", len(res.Warnings))
			}
			if output == "" {
				printNextStep("Simulate it", "explode run "+args[0])
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "treat unresolved references as errors")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the linked assembly (.toml, .yaml or .json)")

	return cmd
}
