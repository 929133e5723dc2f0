// Command devcfg talks to a control-panel device and works with its
// settings blob: print identity, fetch the blob into a snapshot file,
// and inspect snapshots offline.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tactum/devcfg"
	devhttp "github.com/tactum/devcfg/http"
	"github.com/tactum/devcfg/internal/profile"
	"github.com/tactum/devcfg/mock"
	"github.com/tactum/devcfg/serial"
	"github.com/tactum/devcfg/snapshot"
)

type options struct {
	profilePath string
	port        string
	baudRate    int
	url         string
	timeoutMs   int
	useMock     bool
	verbose     bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "devcfg:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "devcfg",
		Short:         "access the settings blob of a control-panel device",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.profilePath, "profile", "", "YAML device profile")
	pf.StringVar(&opts.port, "port", "", "serial port (e.g. /dev/ttyUSB0)")
	pf.IntVar(&opts.baudRate, "baud", profile.DefaultBaudRate, "serial baud rate")
	pf.StringVar(&opts.url, "url", "", "HTTP bridge base URL")
	pf.IntVar(&opts.timeoutMs, "timeout-ms", int(profile.DefaultTimeout/time.Millisecond), "per-response deadline")
	pf.BoolVar(&opts.useMock, "mock", false, "use the in-memory reference device")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(newInfoCmd(opts), newFetchCmd(opts), newInspectCmd(opts))
	return root
}

func newInfoCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "print device identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, err := openTransport(opts)
			if err != nil {
				return err
			}
			defer t.Close()

			id, err := t.Info(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("schema:    %s\n", id.SchemaID)
			fmt.Printf("settings:  v%d.%d\n", id.SettingsMajor, id.SettingsMinor)
			fmt.Printf("blob size: %d bytes\n", id.BlobSize)
			fmt.Printf("max chunk: %d bytes\n", id.MaxChunk)
			return nil
		},
	}
}

func newFetchCmd(opts *options) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "assemble the settings blob and write a snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, err := openTransport(opts)
			if err != nil {
				return err
			}
			defer t.Close()

			settings, err := devcfg.Assemble(cmd.Context(), t, devcfg.WithLogger(opts.logger()))
			if err != nil {
				return err
			}
			if err := snapshot.Save(output, settings); err != nil {
				return err
			}
			fmt.Printf("wrote %s: %d bytes, generation %d\n", output, settings.Size(), settings.Generation())
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "snapshot file to write")
	cmd.MarkFlagRequired("output")
	return cmd
}

func newInspectCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect FILE",
		Short: "print header fields of a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			settings, err := snapshot.Load(args[0])
			if err != nil {
				return err
			}
			h := settings.Header()
			fmt.Printf("format:         v%d.%d (header %d bytes)\n", h.VersionMajor, h.VersionMinor, h.Size)
			fmt.Printf("generation:     %d\n", h.Generation)
			fmt.Printf("active profile: %d\n", h.ActiveProfile)
			fmt.Printf("flags:          %#08b\n", h.Flags)
			fmt.Printf("payload:        %d bytes\n", len(settings.Payload()))
			return nil
		},
	}
}

// logger builds the CLI logger: info-level text on stderr, debug with
// --verbose.
func (o *options) logger() *slog.Logger {
	level := slog.LevelInfo
	if o.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// openTransport picks the device link: an explicit profile wins, then
// the mock, then direct --port/--url flags.
func openTransport(o *options) (devcfg.Transport, error) {
	if o.profilePath != "" {
		p, err := profile.Load(o.profilePath)
		if err != nil {
			return nil, err
		}
		profile.Normalize(p)
		if p.Port != "" {
			return serial.Open(p.Port,
				serial.WithBaudRate(p.BaudRate),
				serial.WithTimeout(p.Timeout()),
				serial.WithLogger(o.logger()),
			)
		}
		return devhttp.New(p.URL, devhttp.WithLogger(o.logger())), nil
	}
	if o.useMock {
		return mock.NewDevice(), nil
	}
	if o.port != "" {
		return serial.Open(o.port,
			serial.WithBaudRate(o.baudRate),
			serial.WithTimeout(time.Duration(o.timeoutMs)*time.Millisecond),
			serial.WithLogger(o.logger()),
		)
	}
	if o.url != "" {
		return devhttp.New(o.url, devhttp.WithLogger(o.logger())), nil
	}
	return nil, fmt.Errorf("no device selected: use --profile, --mock, --port, or --url")
}
