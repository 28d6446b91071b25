package node

import (
	"os"
	"runtime"
	"syscall"

	"github.com/vrecan/death/v3"
)

// WaitForShutdown blocks until SIGINT, SIGTERM, or os.Interrupt, then runs
// cleanup and exits — the teacher's CloseDB (utils.go), generalized from
// closing the blockchain database to closing whatever resources a Node
// owns (reputation store, session manager has nothing to flush).
func WaitForShutdown(cleanup func()) {
	d := death.NewDeath(syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	d.WaitForDeathWithFunc(func() {
		defer os.Exit(1)
		defer runtime.Goexit()
		cleanup()
	})
}
