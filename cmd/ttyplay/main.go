// Command ttyplay plays back ttyrec recordings with keyboard navigation,
// the way cmd/wt's single cobra root binds flags and dispatches to RunE.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ehrlich-b/ttyplay/internal/logger"
)

func main() {
	var opts playOptions

	root := &cobra.Command{
		Use:   "ttyplay [files...]",
		Short: "Navigable ttyrec terminal session player",
		Long:  "Plays one or more ttyrec recordings with seek, jump, speed, and pause controls.\nWith zero files, reads a single session from stdin (navigation disabled).",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := logger.Init(opts.logLevel, opts.logFile); err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			opts.files = args
			if !cmd.Flags().Changed("speed") {
				// Zero lets runPlay fall back to the configured default_speed.
				opts.speed = 0
			}
			if opts.peek {
				return runPeek(opts)
			}
			return runPlay(opts)
		},
	}

	root.Flags().Float64VarP(&opts.speed, "speed", "s", 1.0, "initial playback speed multiplier")
	root.Flags().BoolVarP(&opts.noWait, "no-wait", "n", false, "disable timing; emit every record immediately")
	root.Flags().BoolVarP(&opts.peek, "peek", "p", false, "tail the last file for appended records, no pacing")
	root.Flags().BoolVarP(&opts.utf8, "utf8", "u", false, "select the UTF-8 terminal character set at startup")
	root.Flags().BoolVarP(&opts.eightbit, "eightbit", "8", false, "select the 8-bit terminal character set at startup")
	root.Flags().StringVar(&opts.listen, "listen", "", "serve mode: mirror playback to browser viewers at this address")
	root.Flags().BoolVar(&opts.noCache, "no-cache", false, "bypass the index cache")
	root.Flags().BoolVar(&opts.resume, "resume", false, "resume from a saved bookmark, if one exists")
	root.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "expose Prometheus metrics at this address")
	root.Flags().StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	root.Flags().StringVar(&opts.logFile, "log-file", "", "also write logs to this file")

	root.AddCommand(tokenCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// playOptions collects every flag the root command binds, threaded into
// runPlay/runPeek as a single value rather than as a long parameter list.
type playOptions struct {
	files []string

	speed    float64
	noWait   bool
	peek     bool
	utf8     bool
	eightbit bool

	listen      string
	noCache     bool
	resume      bool
	metricsAddr string

	logLevel string
	logFile  string
}
