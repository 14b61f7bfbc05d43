package portal

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Joiner attaches the host to a WiFi network.
type Joiner interface {
	Join(ctx context.Context, creds Credentials) error
}

// NMCLI joins through NetworkManager.
type NMCLI struct {
	// Interface restricts the join to one device. Empty lets NetworkManager pick.
	Interface string
}

func (n NMCLI) Join(ctx context.Context, creds Credentials) error {
	cmd := exec.CommandContext(ctx, "nmcli", n.args(creds)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return fmt.Errorf("nmcli join %q: %w", creds.SSID, err)
		}
		return fmt.Errorf("nmcli join %q: %w: %s", creds.SSID, err, msg)
	}
	return nil
}

func (n NMCLI) args(creds Credentials) []string {
	args := []string{"device", "wifi", "connect", creds.SSID}
	if creds.Password != "" {
		args = append(args, "password", creds.Password)
	}
	if n.Interface != "" {
		args = append(args, "ifname", n.Interface)
	}
	return args
}
