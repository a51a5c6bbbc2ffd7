package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var (
	flagPath   string
	flagOutput string

	rootCtx    context.Context
	rootCancel context.CancelFunc
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "wk",
		Short:         "An offline-first, collaborative issue tracker",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flagPath, "path", "", "project directory whose .wk store to use, instead of discovering one from the current directory")
	root.PersistentFlags().StringVarP(&flagOutput, "output", "o", "text", "output mode: text, id, or json")

	root.AddCommand(
		newInitCmd(),
		newNewCmd(),
		newShowCmd(),
		newListCmd(),
		newReadyCmd(),
		newSearchCmd(),
		newTransitionCmd("start"),
		newTransitionCmd("done"),
		newTransitionCmd("close"),
		newTransitionCmd("reopen"),
		newEditCmd(),
		newDepCmd(),
		newUndepCmd(),
		newLabelCmd(),
		newUnlabelCmd(),
		newNoteCmd(),
		newLinkCmd(),
		newUnlinkCmd(),
		newLogCmd(),
		newTreeCmd(),
		newExportCmd(),
		newImportCmd(),
		newIntegrityCmd(),
		newRemoteCmd(),
		newBrokerCmd(),
	)
	return root
}

func main() {
	applyColorPolicy()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	rootCtx, rootCancel = ctx, cancel
	defer rootCancel()

	start := time.Now()
	root := newRootCmd()
	err := root.ExecuteContext(rootCtx)
	if os.Getenv("WK_TIMINGS") == "1" {
		fmt.Fprintf(os.Stderr, "wk: %s in %s\n", root.CalledAs(), time.Since(start))
	}
	if err != nil {
		reportErr(err)
		os.Exit(exitCode(err))
	}
}
