package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/netdevops/ciscoctl/internal/auth"
	"github.com/netdevops/ciscoctl/internal/constants"
	"github.com/netdevops/ciscoctl/internal/rest"
)

// credentialInfo is the printable form of a cached credential.
type credentialInfo struct {
	Vendor    string `json:"vendor"           yaml:"vendor"`
	Host      string `json:"host"             yaml:"host"`
	Preview   string `json:"credential"       yaml:"credential"`
	IssuedAt  string `json:"issued_at"        yaml:"issued_at"`
	LastUsed  string `json:"last_used"        yaml:"last_used"`
	ValidTill string `json:"valid_until"      yaml:"valid_until"`
	Expired   bool   `json:"expired"          yaml:"expired"`
	Source    string `json:"source,omitempty" yaml:"source,omitempty"`
}

func newCredentialInfo(vendor, host string, cred *auth.Credential, expired bool) credentialInfo {
	return credentialInfo{
		Vendor:    vendor,
		Host:      host,
		Preview:   cred.Preview(),
		IssuedAt:  formatTime(cred.IssuedAt),
		LastUsed:  formatTime(cred.LastUsed),
		ValidTill: formatTime(auth.Deadline(cred)),
		Expired:   expired,
	}
}

// NewLoginCommand creates the login command.
func NewLoginCommand() *cobra.Command {
	var host string

	cmd := &cobra.Command{
		Use:       "login apicem|iosxe",
		Short:     "Obtain and cache a credential",
		Long:      "Authenticate against APIC-EM or an IOS-XE device, unless a valid credential is already cached, and show it",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{constants.VendorAPICEM, constants.VendorIOSXE},
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer sess.Close()

			var client *rest.Client

			switch args[0] {
			case constants.VendorAPICEM:
				apicemClient, err := sess.apicem(cmd)
				if err != nil {
					return err
				}

				client = apicemClient.REST()
			case constants.VendorIOSXE:
				var hosts []string
				if host != "" {
					hosts = []string{host}
				}

				clients, err := sess.iosxe(cmd, hosts)
				if err != nil {
					return err
				}

				client = clients[0].REST()
			default:
				return fmt.Errorf("%w: %q", constants.ErrUnknownVendor, args[0])
			}

			cred, err := client.Credential(cmd.Context())
			if err != nil {
				return err
			}

			info := newCredentialInfo(args[0], client.Host(), cred, auth.Expired(cred, time.Now()))

			return render(cmd.OutOrStdout(), info, func(table *tablewriter.Table) {
				table.Header("Property", "Value")
				_ = table.Append("Vendor", info.Vendor)
				_ = table.Append("Host", info.Host)
				_ = table.Append("Credential", info.Preview)
				_ = table.Append("Issued", info.IssuedAt)
				_ = table.Append("Valid Until", info.ValidTill)
				_ = table.Append("Expired", strconv.FormatBool(info.Expired))
			})
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "IOS-XE device (default is iosxe.host)")

	return cmd
}
