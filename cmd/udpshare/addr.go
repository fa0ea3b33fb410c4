package main

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/postalsys/udpshare/internal/config"
	"github.com/postalsys/udpshare/internal/sockaddr"
)

func addrCmd() *cobra.Command {
	var port uint16

	cmd := &cobra.Command{
		Use:   "addr <address>",
		Short: "Parse and describe an endpoint",
		Long:  "Parse an endpoint the way listen entries are parsed and show its family, flags and native layout.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := sockaddr.Parse(args[0], port)
			if err != nil {
				return err
			}
			describeAddr(cmd.OutOrStdout(), a)
			return nil
		},
	}

	cmd.Flags().Uint16VarP(&port, "port", "p", config.DefaultPort, "Port used when the address has none")

	return cmd
}

func describeAddr(w io.Writer, a sockaddr.Addr) {
	fmt.Fprintln(w, headingStyle.Render(a.String()))
	field := func(label, value string) {
		fmt.Fprintf(w, "  %s %s\n", labelStyle.Render(fmt.Sprintf("%-10s", label+":")), value)
	}
	field("Family", a.Family().String())
	field("Host", a.IP().String())
	field("Port", fmt.Sprintf("%d", a.Port()))
	field("Wildcard", fmt.Sprintf("%v", a.IsAny()))
	field("Loopback", fmt.Sprintf("%v", a.IsLoopback()))
	field("Network", a.Network())
	field("Size", fmt.Sprintf("%d bytes", a.Size()))
	field("Raw", hex.EncodeToString(a.Raw()))
}
