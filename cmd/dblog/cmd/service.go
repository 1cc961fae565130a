/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"text/template"

	"github.com/spf13/cobra"

	"github.com/ssargent/dblog/pkg/config"
)

const (
	serviceName    = "dblog.service"
	defaultUnitDir = "/etc/systemd/system"
)

// runCommand runs a system command with its output attached to ours.
var runCommand = func(command string, args ...string) error {
	cmd := exec.Command(command, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func runSystemctl(args ...string) error {
	return runCommand("systemctl", args...)
}

var unitTemplate = template.Must(template.New("unit").Parse(`[Unit]
Description=dblog authorship record server
After=network-online.target
Wants=network-online.target

[Service]
User={{.User}}
Group={{.User}}
ExecStart={{.Binary}} up --config {{.ConfigPath}}
Restart=on-failure
NoNewPrivileges=true
UMask=0077
ReadWritePaths={{.DataDir}}
ReadWritePaths={{.ConfigDir}}

[Install]
WantedBy=multi-user.target
`))

type unitParams struct {
	User       string
	Binary     string
	ConfigPath string
	ConfigDir  string
	DataDir    string
}

// writeSystemdUnit renders the unit for cfg into unitDir and returns its
// path.
func writeSystemdUnit(unitDir string, cfg *config.Config, configPath, user, binary string) (string, error) {
	dataDir, err := filepath.Abs(cfg.DataDir)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := unitTemplate.Execute(&buf, unitParams{
		User:       user,
		Binary:     binary,
		ConfigPath: configPath,
		ConfigDir:  filepath.Dir(configPath),
		DataDir:    dataDir,
	}); err != nil {
		return "", err
	}

	unitPath := filepath.Join(unitDir, serviceName)
	if err := os.WriteFile(unitPath, buf.Bytes(), 0600); err != nil {
		return "", fmt.Errorf("failed to write unit file: %w", err)
	}
	return unitPath, nil
}

func newServiceCmd(c *cli) *cobra.Command {
	serviceCmd := &cobra.Command{
		Use:   "service",
		Short: "Manage dblog as a systemd service",
	}

	var unitDir, user string
	var startNow bool
	installCmd := &cobra.Command{
		Use:   "install",
		Short: "Install dblog as a systemd service",
		Long: `Write a systemd unit that runs "dblog up" with the current config, creating
the config first if needed, then enable the service.

Examples:
  sudo dblog service install
  sudo dblog service install --data-dir /var/lib/dblog --user dblog`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !config.ConfigExists(c.configPath) {
				if _, err := config.BootstrapConfig(c.configPath, c.cfg.DataDir); err != nil {
					return err
				}
				if err := c.resolve(cmd); err != nil {
					return err
				}
				cmd.Printf("Created new configuration at %s\n", c.configPath)
			} else if err := config.SaveConfig(c.cfg, c.configPath); err != nil {
				return err
			}

			binary, err := os.Executable()
			if err != nil {
				return err
			}
			unitPath, err := writeSystemdUnit(unitDir, c.cfg, c.configPath, user, binary)
			if err != nil {
				return err
			}
			cmd.Printf("Unit written to %s\n", unitPath)

			if err := runSystemctl("daemon-reload"); err != nil {
				return fmt.Errorf("failed to reload systemd: %w", err)
			}
			if err := runSystemctl("enable", serviceName); err != nil {
				return fmt.Errorf("failed to enable service: %w", err)
			}
			if startNow {
				if err := runSystemctl("start", serviceName); err != nil {
					return fmt.Errorf("failed to start service: %w", err)
				}
				cmd.Printf("Service started\n")
			}
			cmd.Printf("To check status: sudo systemctl status %s\n", serviceName)
			return nil
		},
	}
	installCmd.Flags().StringVar(&unitDir, "unit-dir", defaultUnitDir, "Directory the unit file is written to")
	installCmd.Flags().StringVar(&user, "user", "dblog", "User to run the service as")
	installCmd.Flags().BoolVar(&startNow, "start", true, "Start the service after installation")

	uninstallCmd := &cobra.Command{
		Use:   "uninstall",
		Short: "Uninstall the dblog service",
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = runSystemctl("stop", serviceName) // already stopped is fine
			if err := runSystemctl("disable", serviceName); err != nil {
				cmd.Printf("Warning: could not disable service: %v\n", err)
			}
			unitPath := filepath.Join(unitDir, serviceName)
			if err := os.Remove(unitPath); err != nil && !os.IsNotExist(err) {
				return err
			}
			if err := runSystemctl("daemon-reload"); err != nil {
				return fmt.Errorf("failed to reload systemd: %w", err)
			}
			cmd.Printf("Service uninstalled. Configuration and data were not removed.\n")
			return nil
		},
	}
	uninstallCmd.Flags().StringVar(&unitDir, "unit-dir", defaultUnitDir, "Directory the unit file was written to")

	serviceCmd.AddCommand(installCmd, uninstallCmd)
	for _, action := range []string{"start", "stop", "restart", "status"} {
		serviceCmd.AddCommand(systemctlCmd(action))
	}

	var follow bool
	var lines int
	logsCmd := &cobra.Command{
		Use:   "logs",
		Short: "Show dblog service logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			journalArgs := []string{"-u", serviceName}
			if follow {
				journalArgs = append(journalArgs, "-f")
			}
			if lines > 0 {
				journalArgs = append(journalArgs, fmt.Sprintf("-n%d", lines))
			}
			return runCommand("journalctl", journalArgs...)
		},
	}
	logsCmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow log output")
	logsCmd.Flags().IntVarP(&lines, "lines", "n", 0, "Number of lines to show")
	serviceCmd.AddCommand(logsCmd)

	return serviceCmd
}

func systemctlCmd(action string) *cobra.Command {
	return &cobra.Command{
		Use:   action,
		Short: fmt.Sprintf("Run systemctl %s on the dblog service", action),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSystemctl(action, serviceName)
		},
	}
}
