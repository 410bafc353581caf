package cli

import (
	"fmt"

	"github.com/alexanderramin/waypoint/internal/cli/formatter"
	"github.com/alexanderramin/waypoint/internal/importer"
	"github.com/spf13/cobra"
)

func newImportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Import a trip with its activities and slots from a YAML or JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := importer.Load(args[0])
			if err != nil {
				return err
			}
			it, err := app.Engine.ImportTrip(cmd.Context(), principal(cmd), f)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatImport(it))
			return nil
		},
	}
}
