// Package main provides the CLI entry point for the udpshare daemon.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/postalsys/udpshare/internal/config"
	"github.com/postalsys/udpshare/internal/control"
	"github.com/postalsys/udpshare/internal/daemon"
	"github.com/postalsys/udpshare/internal/sysinfo"
	"github.com/postalsys/udpshare/internal/wizard"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "udpshare",
		Short: "udpshare - shared UDP socket daemon",
		Long: `udpshare binds UDP sockets once and shares each of them between any
number of listeners in the same process. Every datagram that arrives on a
shared socket is delivered to every listener registered on it.`,
		Version:       sysinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(socketsCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(sendCmd())
	rootCmd.AddCommand(addrCmd())
	rootCmd.AddCommand(serviceCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a configuration file interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := wizard.New().Run()
			return err
		},
	}
}

func runCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the daemon",
		Long:  "Bind every configured listen address and serve until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			d, err := daemon.New(cfg)
			if err != nil {
				return fmt.Errorf("failed to create daemon: %w", err)
			}

			fmt.Println("Starting udpshare...")

			if err := d.Start(); err != nil {
				return fmt.Errorf("failed to start daemon: %w", err)
			}

			for _, a := range d.LocalAddrs() {
				fmt.Printf("Listening on %s\n", a)
			}
			if addr := d.HealthAddress(); addr != nil {
				fmt.Printf("Health server: http://%s/health\n", addr)
			}
			if cfg.Control.Enabled {
				fmt.Printf("Control socket: %s\n", cfg.Control.SocketPath)
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			sig := <-sigCh
			fmt.Printf("\nReceived signal %v, shutting down...\n", sig)

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := d.StopWithContext(ctx); err != nil {
				fmt.Printf("Shutdown error: %v\n", err)
				return err
			}

			fmt.Println("udpshare stopped.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "./udpshare.yaml", "Path to configuration file")

	return cmd
}

func statusCmd() *cobra.Command {
	var socketPath string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		Long:  "Query a running daemon over its control socket.",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := control.NewClient(socketPath)
			defer client.Close()

			status, err := client.Status(cmd.Context())
			if err != nil {
				return fmt.Errorf("query daemon: %w", err)
			}

			st := status.Stats
			fmt.Println(headingStyle.Render("udpshare status"))
			printField("Running", fmt.Sprintf("%v", status.Running))
			printField("Uptime", status.Uptime)
			printField("Host", fmt.Sprintf("%s (%s/%s, %s)",
				status.System.Hostname, status.System.OS, status.System.Arch, status.System.Version))
			printField("Sockets", humanize.Comma(int64(st.Sockets)))
			printField("Listeners", humanize.Comma(int64(st.Listeners)))
			printField("Binds", humanize.Comma(int64(st.Binds)))
			printField("Received", fmt.Sprintf("%s datagrams, %s",
				humanize.Comma(int64(st.DatagramsReceived)), humanize.IBytes(st.BytesReceived)))
			printField("Sent", fmt.Sprintf("%s datagrams, %s",
				humanize.Comma(int64(st.DatagramsSent)), humanize.IBytes(st.BytesSent)))
			printField("Dispatch errors", humanize.Comma(int64(st.DispatchErrors)))
			printField("Send errors", humanize.Comma(int64(st.SendErrors)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&socketPath, "socket", "s", "./data/control.sock", "Path to control socket")

	return cmd
}

func socketsCmd() *cobra.Command {
	var socketPath string

	cmd := &cobra.Command{
		Use:   "sockets",
		Short: "List shared sockets",
		Long:  "List the sockets a running daemon has bound, with their listener counts.",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := control.NewClient(socketPath)
			defer client.Close()

			resp, err := client.Sockets(cmd.Context())
			if err != nil {
				return fmt.Errorf("query daemon: %w", err)
			}

			if len(resp.Sockets) == 0 {
				fmt.Println("No sockets bound.")
				return nil
			}

			fmt.Println(headingStyle.Render(fmt.Sprintf("%-46s %9s %12s %10s  %s",
				"LOCAL", "LISTENERS", "DATAGRAMS", "BYTES", "OPENED")))
			for _, s := range resp.Sockets {
				fmt.Printf("%-46s %9d %12s %10s  %s\n",
					s.Local, s.Listeners,
					humanize.Comma(int64(s.Datagrams)),
					humanize.IBytes(s.Bytes),
					humanize.Time(s.Opened))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&socketPath, "socket", "s", "./data/control.sock", "Path to control socket")

	return cmd
}

func printField(label, value string) {
	fmt.Printf("  %s %s\n", labelStyle.Render(fmt.Sprintf("%-16s", label+":")), value)
}
