package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/netdevops/ciscoctl/internal/iosxe"
)

// NewIOSXECommand creates the iosxe command group.
func NewIOSXECommand() *cobra.Command {
	var hosts []string

	cmd := &cobra.Command{
		Use:     "iosxe",
		Aliases: []string{"xe"},
		Short:   "Query IOS-XE devices",
		Long:    "Query the running configuration, interfaces, routing table and CPU of IOS-XE devices",
	}

	cmd.PersistentFlags().StringSliceVar(&hosts, "host", nil, "device to query, repeatable (default is iosxe.host)")

	cmd.AddCommand(newIOSXERunningConfigCommand(&hosts))
	cmd.AddCommand(newIOSXEInterfacesCommand(&hosts))
	cmd.AddCommand(newIOSXERoutesCommand(&hosts))
	cmd.AddCommand(newIOSXECPUCommand(&hosts))
	cmd.AddCommand(newIOSXEGetCommand(&hosts))

	return cmd
}

// hostResult pairs a device with what was fetched from it.
type hostResult[T any] struct {
	Host   string `json:"host"   yaml:"host"`
	Result T      `json:"result" yaml:"result"`
}

// collect queries every device concurrently, keeping the order of hosts.
func collect[T any](cmd *cobra.Command, hosts []string, fetch func(ctx context.Context, client *iosxe.Client) (T, error)) ([]hostResult[T], error) {
	sess, err := newSession(cmd)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	clients, err := sess.iosxe(cmd, hosts)
	if err != nil {
		return nil, err
	}

	results := make([]hostResult[T], len(clients))
	g, ctx := errgroup.WithContext(cmd.Context())

	for i, client := range clients {
		g.Go(func() error {
			value, err := fetch(ctx, client)
			if err != nil {
				return fmt.Errorf("%s: %w", client.REST().Host(), err)
			}

			results[i] = hostResult[T]{Host: client.REST().Host(), Result: value}

			return nil
		})
	}

	err = g.Wait()
	if err != nil {
		return nil, err
	}

	return results, nil
}

func newIOSXERunningConfigCommand(hosts *[]string) *cobra.Command {
	return &cobra.Command{
		Use:   "running-config",
		Short: "Show the running configuration",
		Long:  "Print the running configuration of each device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := collect(cmd, *hosts, func(ctx context.Context, client *iosxe.Client) (string, error) {
				return client.RunningConfig(ctx)
			})
			if err != nil {
				return err
			}

			for _, result := range results {
				if len(results) > 1 {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "! ---- %s ----\n", result.Host)
				}

				_, err = fmt.Fprintln(cmd.OutOrStdout(), result.Result)
				if err != nil {
					return err
				}
			}

			return nil
		},
	}
}

func newIOSXEInterfacesCommand(hosts *[]string) *cobra.Command {
	return &cobra.Command{
		Use:   "interfaces",
		Short: "List interfaces",
		Long:  "List the interfaces of each device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := collect(cmd, *hosts, func(ctx context.Context, client *iosxe.Client) ([]iosxe.Interface, error) {
				return client.Interfaces(ctx)
			})
			if err != nil {
				return err
			}

			return render(cmd.OutOrStdout(), results, func(table *tablewriter.Table) {
				table.Header("Host", "Interface", "IP Address", "Subnet Mask", "Admin Status", "Description")

				for _, result := range results {
					for _, iface := range result.Result {
						_ = table.Append(result.Host, iface.Name, orNotAvailable(iface.IPAddress),
							orNotAvailable(iface.SubnetMask), iface.AdminStatus, iface.Description)
					}
				}
			})
		},
	}
}

func newIOSXERoutesCommand(hosts *[]string) *cobra.Command {
	return &cobra.Command{
		Use:     "routes",
		Aliases: []string{"routing-table"},
		Short:   "Show the routing table",
		Long:    "Show the routing table of each device",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := collect(cmd, *hosts, func(ctx context.Context, client *iosxe.Client) ([]iosxe.Route, error) {
				return client.RoutingTable(ctx)
			})
			if err != nil {
				return err
			}

			return render(cmd.OutOrStdout(), results, func(table *tablewriter.Table) {
				table.Header("Host", "Destination", "Next Hop", "Interface", "Distance", "Metric")

				for _, result := range results {
					for _, route := range result.Result {
						_ = table.Append(result.Host, route.DestinationNetwork, orNotAvailable(route.NextHopRouter),
							orNotAvailable(route.OutgoingInterface), strconv.Itoa(route.AdminDistance), strconv.Itoa(route.Metric))
					}
				}
			})
		},
	}
}

func newIOSXECPUCommand(hosts *[]string) *cobra.Command {
	return &cobra.Command{
		Use:   "cpu",
		Short: "Show CPU utilization",
		Long:  "Show the 5 second, 1 minute and 5 minute CPU utilization of each device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := collect(cmd, *hosts, func(ctx context.Context, client *iosxe.Client) (*iosxe.CPU, error) {
				return client.CPU(ctx)
			})
			if err != nil {
				return err
			}

			return render(cmd.OutOrStdout(), results, func(table *tablewriter.Table) {
				table.Header("Host", "5 Seconds", "1 Minute", "5 Minutes")

				for _, result := range results {
					_ = table.Append(result.Host,
						percent(result.Result.Last5SecsUtilization),
						percent(result.Result.Last1MinUtilization),
						percent(result.Result.Last5MinsUtilization))
				}
			})
		},
	}
}

func newIOSXEGetCommand(hosts *[]string) *cobra.Command {
	return &cobra.Command{
		Use:   "get PATH",
		Short: "Send an authenticated GET",
		Long:  "Send a GET to any IOS-XE REST path, e.g. 'ciscoctl iosxe get /api/v1/global/host-name'",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer sess.Close()

			clients, err := sess.iosxe(cmd, *hosts)
			if err != nil {
				return err
			}

			for _, client := range clients {
				if len(clients) > 1 {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", client.REST().Host())
				}

				err = renderResult(cmd.OutOrStdout(), client.Get(cmd.Context(), args[0], nil))
				if err != nil {
					return fmt.Errorf("%s: %w", client.REST().Host(), err)
				}
			}

			return nil
		},
	}
}

func percent(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64) + "%"
}
