package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func getInspectCmd(gs *globalState) *cobra.Command {
	var jsonOut bool

	inspectCmd := &cobra.Command{
		Use:   "inspect <package>",
		Short: "Load a package and print its identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			registry, err := gs.newRegistry()
			if err != nil {
				return err
			}
			defer func() {
				if cerr := registry.Close(); cerr != nil {
					gs.logger.WithError(cerr).Warn("registry teardown")
				}
			}()

			m, err := registry.LoadModern(args[0])
			if err != nil {
				return err
			}
			defer registry.Unload(m)

			id := m.Identity()
			if jsonOut {
				enc := json.NewEncoder(gs.stdOut)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]interface{}{
					"package": m.Package(),
					"dev":     id.Dev,
					"ino":     id.Ino,
					"size":    id.Size,
					"mtime":   id.ModTime,
				})
			}
			fmt.Fprintf(gs.stdOut, "package: %s\nidentity: %s\n", m.Package(), id)
			return nil
		},
	}

	inspectCmd.Flags().BoolVar(&jsonOut, "json", false, "print machine-readable output")
	return inspectCmd
}
