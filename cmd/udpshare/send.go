package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/postalsys/udpshare/internal/config"
	"github.com/postalsys/udpshare/internal/logging"
	"github.com/postalsys/udpshare/internal/metrics"
	"github.com/postalsys/udpshare/internal/sockaddr"
	"github.com/postalsys/udpshare/internal/udpmgr"

	"github.com/prometheus/client_golang/prometheus"
)

func sendCmd() *cobra.Command {
	var (
		from     string
		port     uint16
		wait     time.Duration
		logLevel string
	)

	cmd := &cobra.Command{
		Use:   "send <destination> [payload]",
		Short: "Send one datagram and print replies",
		Long: `Send one datagram to destination. The payload is the second argument or,
when stdin is not a terminal, everything read from stdin. Replies arriving on
the sending socket are printed until --wait elapses.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dst, err := sockaddr.Parse(args[0], port)
			if err != nil {
				return err
			}

			payload, err := readPayload(args[1:], os.Stdin, term.IsTerminal(int(os.Stdin.Fd())))
			if err != nil {
				return err
			}

			local, err := sourceAddr(from, dst.Family())
			if err != nil {
				return err
			}

			logger := logging.NewLogger(logLevel, "text")
			mgr := udpmgr.New(udpmgr.DefaultConfig(), logger, metrics.NewMetricsWithRegistry(prometheus.NewRegistry()))
			defer mgr.Close()

			out := cmd.OutOrStdout()
			l, err := mgr.Subscribe(local, udpmgr.HandlerFunc(func(d udpmgr.Datagram) error {
				fmt.Fprintf(out, "%s  %s  %q\n", d.Src, humanize.IBytes(uint64(len(d.Payload))), d.Payload)
				return nil
			}))
			if err != nil {
				return err
			}
			defer l.Close()

			if err := l.Send(dst, payload); err != nil {
				return err
			}
			fmt.Fprintf(out, "sent %s from %s to %s\n", humanize.IBytes(uint64(len(payload))), l.LocalAddr(), dst)

			if wait > 0 {
				time.Sleep(wait)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Local address to send from (default: wildcard of the destination family, ephemeral port)")
	cmd.Flags().Uint16VarP(&port, "port", "p", config.DefaultPort, "Port used when the destination has none")
	cmd.Flags().DurationVarP(&wait, "wait", "w", time.Second, "How long to wait for replies")
	cmd.Flags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	return cmd
}

// maxPayload is the largest payload a single UDP datagram can carry.
const maxPayload = 0xffff - 8 - 20

// readPayload returns args[0] when present, otherwise stdin when it is not a
// terminal. Input longer than maxPayload is rejected.
func readPayload(args []string, stdin io.Reader, isTerminal bool) ([]byte, error) {
	if len(args) > 0 {
		return []byte(args[0]), nil
	}
	if isTerminal {
		return nil, errors.New("no payload: pass it as an argument or pipe it on stdin")
	}
	data, err := io.ReadAll(io.LimitReader(stdin, maxPayload+1))
	if err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}
	if len(data) > maxPayload {
		return nil, fmt.Errorf("payload on stdin exceeds %d bytes", maxPayload)
	}
	return data, nil
}

// sourceAddr parses --from, defaulting to the wildcard address of family
// with an ephemeral port.
func sourceAddr(from string, family sockaddr.Family) (sockaddr.Addr, error) {
	if from == "" {
		return sockaddr.Any(family, 0)
	}
	return sockaddr.Parse(from, 0)
}
