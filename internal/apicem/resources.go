package apicem

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/netdevops/ciscoctl/internal/constants"
)

// Host is an end host known to the controller.
type Host struct {
	ID                              string `json:"id"                              yaml:"id"`
	HostIP                          string `json:"hostIp"                          yaml:"hostIp"`
	HostMAC                         string `json:"hostMac"                         yaml:"hostMac"`
	HostType                        string `json:"hostType"                        yaml:"hostType"`
	ConnectedNetworkDeviceIPAddress string `json:"connectedNetworkDeviceIpAddress" yaml:"connectedNetworkDeviceIpAddress"`
	ConnectedInterfaceName          string `json:"connectedInterfaceName"          yaml:"connectedInterfaceName"`
	VLANID                          string `json:"vlanId,omitempty"                yaml:"vlanId,omitempty"`
}

// NetworkDevice is a switch, router or access point in the inventory.
type NetworkDevice struct {
	ID                  string `json:"id"                  yaml:"id"`
	InstanceUUID        string `json:"instanceUuid"        yaml:"instanceUuid"`
	Hostname            string `json:"hostname"            yaml:"hostname"`
	ManagementIPAddress string `json:"managementIpAddress" yaml:"managementIpAddress"`
	Type                string `json:"type"                yaml:"type"`
	PlatformID          string `json:"platformId"          yaml:"platformId"`
	SoftwareVersion     string `json:"softwareVersion"     yaml:"softwareVersion"`
	SerialNumber        string `json:"serialNumber"        yaml:"serialNumber"`
	ReachabilityStatus  string `json:"reachabilityStatus"  yaml:"reachabilityStatus"`
	UpTime              string `json:"upTime"              yaml:"upTime"`
}

// Interface is a port of a network device.
type Interface struct {
	ID            string `json:"id"            yaml:"id"`
	DeviceID      string `json:"deviceId"      yaml:"deviceId"`
	PortName      string `json:"portName"      yaml:"portName"`
	InterfaceType string `json:"interfaceType" yaml:"interfaceType"`
	Status        string `json:"status"        yaml:"status"`
	AdminStatus   string `json:"adminStatus"   yaml:"adminStatus"`
	IPv4Address   string `json:"ipv4Address"   yaml:"ipv4Address"`
	IPv4Mask      string `json:"ipv4Mask"      yaml:"ipv4Mask"`
	MACAddress    string `json:"macAddress"    yaml:"macAddress"`
	Speed         string `json:"speed"         yaml:"speed"`
	VLANID        string `json:"vlanId"        yaml:"vlanId"`
	Description   string `json:"description"   yaml:"description"`
}

// Inventory kinds.
const (
	KindHost          = "host"
	KindNetworkDevice = "network device"
)

// InventoryItem is one numbered address of the inventory list.
type InventoryItem struct {
	Number int    `json:"number" yaml:"number"`
	Kind   string `json:"kind"   yaml:"kind"`
	IP     string `json:"ip"     yaml:"ip"`
}

// Inventory lists host addresses followed by network device addresses,
// numbered from 1.
type Inventory []InventoryItem

// Resolve turns a selection into an address. A number picks an entry of the
// inventory, anything else is taken as an address.
func (inv Inventory) Resolve(selection string) (string, error) {
	selection = strings.TrimSpace(selection)

	number, err := strconv.Atoi(selection)
	if err != nil {
		return selection, nil
	}

	if number < 1 || number > len(inv) {
		return "", fmt.Errorf("%w: %d not in 1..%d", constants.ErrSelectionOutOfRange, number, len(inv))
	}

	return inv[number-1].IP, nil
}

// Hosts lists end hosts.
func (c *Client) Hosts(ctx context.Context, query url.Values) ([]Host, error) {
	return decode[[]Host](c.rest.Get(ctx, "/host", query), "hosts")
}

// NetworkDevices lists the network device inventory.
func (c *Client) NetworkDevices(ctx context.Context, query url.Values) ([]NetworkDevice, error) {
	return decode[[]NetworkDevice](c.rest.Get(ctx, "/network-device", query), "network devices")
}

// DeviceConfig returns the running configuration text of a network device.
func (c *Client) DeviceConfig(ctx context.Context, deviceID string) (string, error) {
	return decode[string](c.rest.Get(ctx, "/network-device/"+url.PathEscape(deviceID)+"/config", nil), "device config")
}

// DeviceInterfaces lists the interfaces of a network device.
func (c *Client) DeviceInterfaces(ctx context.Context, deviceID string) ([]Interface, error) {
	return decode[[]Interface](c.rest.Get(ctx, "/interface/network-device/"+url.PathEscape(deviceID), nil), "interfaces")
}

// Inventory fetches hosts and network devices concurrently and numbers
// their addresses.
func (c *Client) Inventory(ctx context.Context) (Inventory, error) {
	var (
		hosts   []Host
		devices []NetworkDevice
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error

		hosts, err = c.Hosts(gctx, nil)

		return err
	})

	g.Go(func() error {
		var err error

		devices, err = c.NetworkDevices(gctx, nil)

		return err
	})

	err := g.Wait()
	if err != nil {
		return nil, err
	}

	inv := make(Inventory, 0, len(hosts)+len(devices))

	for _, host := range hosts {
		inv = append(inv, InventoryItem{Number: len(inv) + 1, Kind: KindHost, IP: host.HostIP})
	}

	for _, device := range devices {
		inv = append(inv, InventoryItem{Number: len(inv) + 1, Kind: KindNetworkDevice, IP: device.ManagementIPAddress})
	}

	if len(inv) == 0 {
		return nil, constants.ErrInventoryEmpty
	}

	return inv, nil
}
