package rest

import (
	"strconv"
	"strings"

	"github.com/netdevops/ciscoctl/internal/constants"
)

// BaseURL builds the HTTPS prefix for host. The port is omitted when it is
// 443 or unset. A host may carry a path, e.g. "sandbox.example.com/apic_em",
// in which case the port goes before the path.
func BaseURL(host string, port int) string {
	name, path, _ := strings.Cut(host, "/")

	if port > 0 && port != constants.HTTPSDefaultPort {
		name += ":" + strconv.Itoa(port)
	}

	if path == "" {
		return "https://" + name
	}

	return "https://" + name + "/" + strings.TrimSuffix(path, "/")
}
