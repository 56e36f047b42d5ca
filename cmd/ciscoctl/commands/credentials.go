package commands

import (
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/netdevops/ciscoctl/internal/constants"
)

const sourceMemory = "memory"

// NewCredentialsCommand creates the credentials command group.
func NewCredentialsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "credentials",
		Aliases: []string{"creds"},
		Short:   "Inspect cached credentials",
		Long:    "Inspect the APIC-EM tickets and IOS-XE tokens held in the credential store",
	}

	cmd.AddCommand(newCredentialsListCommand())

	return cmd
}

func newCredentialsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "list [apicem|iosxe]",
		Short:     "List cached credentials",
		Long:      "List cached credentials with their validity. Values are masked.",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{constants.VendorAPICEM, constants.VendorIOSXE},
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer sess.Close()

			vendors := []string{constants.VendorAPICEM, constants.VendorIOSXE}
			if len(args) == 1 {
				vendors = args
			}

			infos := make([]credentialInfo, 0)

			for _, vendor := range vendors {
				cache, err := sess.cache(cmd.Context(), vendor)
				if err != nil {
					return err
				}

				for _, entry := range cache.Entries(cmd.Context()) {
					info := newCredentialInfo(vendor, entry.Host, entry.Credential, entry.Expired)

					info.Source = sess.locations[vendor]
					if entry.InMemory {
						info.Source = sourceMemory
					}

					infos = append(infos, info)
				}
			}

			return render(cmd.OutOrStdout(), infos, func(table *tablewriter.Table) {
				table.Header("Vendor", "Host", "Credential", "Issued", "Last Used", "Valid Until", "Expired", "Source")

				for _, info := range infos {
					_ = table.Append(info.Vendor, info.Host, info.Preview, info.IssuedAt, info.LastUsed,
						info.ValidTill, strconv.FormatBool(info.Expired), info.Source)
				}
			})
		},
	}
}
