package commands

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/netdevops/ciscoctl/internal/apicem"
)

// NewAPICEMCommand creates the apicem command group.
func NewAPICEMCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "apicem",
		Aliases: []string{"aem"},
		Short:   "Query the APIC-EM controller",
		Long:    "Query hosts, network devices, interfaces and path traces of the configured APIC-EM controller",
	}

	cmd.AddCommand(newAPICEMHostsCommand())
	cmd.AddCommand(newAPICEMDevicesCommand())
	cmd.AddCommand(newAPICEMDeviceConfigCommand())
	cmd.AddCommand(newAPICEMInterfacesCommand())
	cmd.AddCommand(newAPICEMIPListCommand())
	cmd.AddCommand(newAPICEMPathTraceCommand())
	cmd.AddCommand(newAPICEMGetCommand())

	return cmd
}

// withAPICEM runs fn with a client for the configured controller.
func withAPICEM(cmd *cobra.Command, fn func(client *apicem.Client) error) error {
	sess, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	client, err := sess.apicem(cmd)
	if err != nil {
		return err
	}

	return fn(client)
}

func newAPICEMHostsCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "hosts",
		Short: "List end hosts",
		Long:  "List the end hosts known to APIC-EM with their connected network device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAPICEM(cmd, func(client *apicem.Client) error {
				hosts, err := client.Hosts(cmd.Context(), limitQuery(limit))
				if err != nil {
					return err
				}

				return render(cmd.OutOrStdout(), hosts, func(table *tablewriter.Table) {
					table.Header("Number", "Host IP", "Host Type", "Connected Network Device")

					for i, host := range hosts {
						_ = table.Append(strconv.Itoa(i+1), host.HostIP, host.HostType, host.ConnectedNetworkDeviceIPAddress)
					}
				})
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of hosts to list")

	return cmd
}

func newAPICEMDevicesCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List network devices",
		Long:  "List the network device inventory of APIC-EM",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAPICEM(cmd, func(client *apicem.Client) error {
				devices, err := client.NetworkDevices(cmd.Context(), limitQuery(limit))
				if err != nil {
					return err
				}

				return render(cmd.OutOrStdout(), devices, func(table *tablewriter.Table) {
					table.Header("Number", "Hostname", "Management IP", "Type", "ID")

					for i, device := range devices {
						_ = table.Append(strconv.Itoa(i+1), device.Hostname, device.ManagementIPAddress, device.Type, device.ID)
					}
				})
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of devices to list")

	return cmd
}

func newAPICEMDeviceConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "device-config DEVICE_ID",
		Short: "Show the configuration of a network device",
		Long:  "Print the running configuration APIC-EM collected from a network device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAPICEM(cmd, func(client *apicem.Client) error {
				config, err := client.DeviceConfig(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				_, err = fmt.Fprintln(cmd.OutOrStdout(), config)

				return err
			})
		},
	}
}

func newAPICEMInterfacesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "interfaces DEVICE_ID",
		Short: "List the interfaces of a network device",
		Long:  "List the interfaces APIC-EM knows for a network device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAPICEM(cmd, func(client *apicem.Client) error {
				interfaces, err := client.DeviceInterfaces(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				return render(cmd.OutOrStdout(), interfaces, func(table *tablewriter.Table) {
					table.Header("Port", "Status", "Admin Status", "IPv4 Address", "IPv4 Mask", "VLAN")

					for _, iface := range interfaces {
						_ = table.Append(iface.PortName, iface.Status, iface.AdminStatus,
							orNotAvailable(iface.IPv4Address), orNotAvailable(iface.IPv4Mask), orNotAvailable(iface.VLANID))
					}
				})
			})
		},
	}
}

func newAPICEMIPListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ip-list",
		Short: "List host and network device addresses",
		Long:  "List the addresses of every host and network device, numbered for use with path-trace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAPICEM(cmd, func(client *apicem.Client) error {
				inv, err := client.Inventory(cmd.Context())
				if err != nil {
					return err
				}

				return render(cmd.OutOrStdout(), inv, fillInventory(inv))
			})
		},
	}
}

func fillInventory(inv apicem.Inventory) func(table *tablewriter.Table) {
	return func(table *tablewriter.Table) {
		table.Header("Number", "Type", "IP")

		for _, item := range inv {
			_ = table.Append(strconv.Itoa(item.Number), item.Kind, item.IP)
		}
	}
}

func newAPICEMPathTraceCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path-trace SOURCE DESTINATION",
		Short: "Trace the path between two addresses",
		Long: `Run a flow analysis between two addresses and show the path.

SOURCE and DESTINATION are IP addresses or numbers from 'ciscoctl apicem ip-list'.
Not every pair has a routing path.`,
		Args: cobra.ExactArgs(2), //nolint:mnd // source and destination
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAPICEM(cmd, func(client *apicem.Client) error {
				source, destination, err := resolvePair(cmd, client, args[0], args[1])
				if err != nil {
					return err
				}

				flow, err := client.PathTrace(cmd.Context(), source, destination)
				if err != nil {
					return err
				}

				return render(cmd.OutOrStdout(), flow, func(table *tablewriter.Table) {
					table.Header("Hop", "Name", "IP", "Type")

					for i, element := range flow.NetworkElementsInfo {
						_ = table.Append(strconv.Itoa(i+1), orNotAvailable(element.Name), element.IP, element.Type)
					}
				})
			})
		},
	}
}

// resolvePair only fetches the inventory when a selection is a number.
func resolvePair(cmd *cobra.Command, client *apicem.Client, source, destination string) (string, string, error) {
	_, srcErr := strconv.Atoi(source)
	_, dstErr := strconv.Atoi(destination)

	if srcErr != nil && dstErr != nil {
		return source, destination, nil
	}

	inv, err := client.Inventory(cmd.Context())
	if err != nil {
		return "", "", err
	}

	source, err = inv.Resolve(source)
	if err != nil {
		return "", "", fmt.Errorf("source: %w", err)
	}

	destination, err = inv.Resolve(destination)
	if err != nil {
		return "", "", fmt.Errorf("destination: %w", err)
	}

	return source, destination, nil
}

func newAPICEMGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get PATH",
		Short: "Send an authenticated GET",
		Long:  "Send a GET to any APIC-EM path below the API version prefix, e.g. 'ciscoctl apicem get /network-device/count'",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAPICEM(cmd, func(client *apicem.Client) error {
				return renderResult(cmd.OutOrStdout(), client.Get(cmd.Context(), args[0], nil))
			})
		},
	}
}

func limitQuery(limit int) url.Values {
	if limit <= 0 {
		return nil
	}

	return url.Values{"limit": {strconv.Itoa(limit)}}
}
