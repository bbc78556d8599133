package cli

import (
	"github.com/spf13/cobra"
)

func newWhatsAppCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "wa",
		Aliases: []string{"whatsapp"},
		Short:   "Inspect the WhatsApp bridge",
		Long:    "Check the local WhatsApp bridge, fetch its login QR code and list groups to use as recipients.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show whether the bridge is linked and ready",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.ensure(cmd.Context()); err != nil {
				return err
			}
			h, err := app.Bridge.Health(cmd.Context())
			if err != nil {
				output.Error("✗ Bridge unreachable: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(h)
			}
			if h.WhatsAppReady {
				output.Success("● Connected (%s)", h.Status)
			} else {
				output.Warning("● Not linked (%s). Run 'stocksignal wa qr' and scan the code.", h.Status)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "qr",
		Short: "Print the login QR payload",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.ensure(cmd.Context()); err != nil {
				return err
			}
			qr, err := app.Bridge.QR(cmd.Context())
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(qr)
			}
			if qr.QR == "" {
				output.Info("No QR code pending (%s)", qr.Status)
				return nil
			}
			output.Println(qr.QR)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "groups",
		Short: "List groups the linked account belongs to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.ensure(cmd.Context()); err != nil {
				return err
			}
			groups, err := app.Bridge.Groups(cmd.Context())
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]interface{}{"groups": groups})
			}
			if len(groups) == 0 {
				output.Dim("No groups found.")
				return nil
			}
			table := NewTable(output, "NAME", "ID")
			for _, g := range groups {
				table.AddRow(g.Name, g.ID)
			}
			table.Render()
			return nil
		},
	})

	return cmd
}
