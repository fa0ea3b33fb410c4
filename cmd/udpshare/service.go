package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/postalsys/udpshare/internal/config"
	"github.com/postalsys/udpshare/internal/service"
)

func serviceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage the systemd service",
	}

	cmd.AddCommand(serviceInstallCmd())
	cmd.AddCommand(serviceUninstallCmd())
	cmd.AddCommand(serviceStatusCmd())

	return cmd
}

func serviceInstallCmd() *cobra.Command {
	var (
		configPath string
		name       string
		user       string
		group      string
	)

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install and start udpshare as a systemd service",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Refuse to install a unit that would fail on its first start.
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			svc := service.DefaultConfig(configPath)
			svc.Name = name
			svc.User = user
			svc.Group = group
			svc.BindPrivileged = needsPrivilegedPort(cfg)

			if err := service.Install(svc); err != nil {
				return err
			}

			fmt.Printf("Installed and started service %s\n", svc.Name)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "./udpshare.yaml", "Path to configuration file")
	cmd.Flags().StringVarP(&name, "name", "n", "udpshare", "Service name")
	cmd.Flags().StringVar(&user, "user", "", "User to run the daemon as (default root)")
	cmd.Flags().StringVar(&group, "group", "", "Group to run the daemon as")

	return cmd
}

func serviceUninstallCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "uninstall",
		Short: "Stop and remove the systemd service",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := service.Uninstall(name); err != nil {
				return err
			}
			fmt.Printf("Removed service %s\n", name)
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "udpshare", "Service name")

	return cmd
}

func serviceStatusCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the systemd service state",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !service.IsInstalled(name) {
				fmt.Printf("Service %s is not installed\n", name)
				return nil
			}
			status, err := service.Status(name)
			if err != nil {
				return err
			}
			printField("Service", name)
			printField("State", status)
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "udpshare", "Service name")

	return cmd
}

// needsPrivilegedPort reports whether any listen address uses a port below
// 1024.
func needsPrivilegedPort(cfg *config.Config) bool {
	addrs, err := cfg.ListenAddrs()
	if err != nil {
		return false
	}
	for _, a := range addrs {
		if a.Port() != 0 && a.Port() < 1024 {
			return true
		}
	}
	return false
}
