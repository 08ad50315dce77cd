// Command projfsd hosts a single virtualization instance: it mounts
// virt_root over storage_root and answers on-demand hydration with a
// pass-through provider that simply reads bytes back out of storage_root.
//
// This is ambient tooling around the provider/driver packages, not part of
// their tested contract (spec.md §1 scopes the core down to the event
// engine, not a CLI).
package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/projfs-go/projfs/common"
	"github.com/projfs-go/projfs/lib/chunkio"
	"github.com/projfs-go/projfs/provider"
)

var (
	storageRoot string
	virtRoot    string
	poolThreads int
	initStorage bool
	verbose     bool
)

var commandDefinition = &cobra.Command{
	Use:   "projfsd storage_root virt_root",
	Short: "Mount virt_root as a projected view of storage_root",
	Long: `projfsd starts one virtualization instance bound to a passthrough
provider: directory enumeration and file hydration are served straight out
of storage_root, so the daemon is useful on its own as a reference
implementation of the provider contract, or as a smoke test for a driver
binding.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		storageRoot, virtRoot = args[0], args[1]
		return run()
	},
}

func init() {
	flags := commandDefinition.Flags()
	flags.IntVar(&poolThreads, "pool-threads", 0, "worker thread hint passed to the driver (0 = 2x NumCPU)")
	flags.BoolVar(&initStorage, "init", false, "create storage_root if it doesn't already exist")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func main() {
	if err := commandDefinition.Execute(); err != nil {
		logrus.WithError(err).Fatal("projfsd exiting")
	}
}

func run() error {
	if verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}
	log := logrus.WithFields(logrus.Fields{
		"storage_root": storageRoot,
		"virt_root":    virtRoot,
	})

	inst := provider.NewInstance(passthroughProvider(log))

	log.Info("starting virtualization instance")
	if res := inst.Start(storageRoot, virtRoot, poolThreads, initStorage); res != common.Success {
		return fmt.Errorf("start: %w", res)
	}
	log.Info("mounted")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("stopping virtualization instance")
	inst.Stop()
	return nil
}

// passthroughProvider answers every on-demand hydration request by reading
// the corresponding file straight out of storage_root (CreateProjFile
// already created the placeholder file there, sized but without content) and logs every
// notification it receives, so projfsd doubles as a way to watch the event
// engine's decisions against a real mount.
func passthroughProvider(log *logrus.Entry) provider.Provider {
	return provider.Provider{
		EnumerateDirectory: func(path string, pid int32, procName string) common.Result {
			log.WithFields(logrus.Fields{"path": path, "pid": pid, "proc": procName}).Debug("enumerate")
			return common.Success
		},
		GetFileStream: func(path string, providerID, contentID common.PlaceholderID, pid int32, procName string, fd uintptr) common.Result {
			log.WithFields(logrus.Fields{"path": path, "pid": pid, "proc": procName}).Debug("hydrate")
			data, err := os.ReadFile(filepath.Join(storageRoot, filepath.FromSlash(path)))
			if err != nil {
				return common.IOError
			}
			if !chunkio.TryWrite(fd, data) {
				return common.IOError
			}
			return common.Success
		},
		PreDelete: func(path string, isDir bool) common.Result {
			log.WithFields(logrus.Fields{"path": path, "is_dir": isDir}).Debug("pre-delete")
			return common.Success
		},
		PreRename: func(path, dest string, isDir bool) common.Result {
			log.WithFields(logrus.Fields{"path": path, "dest": dest, "is_dir": isDir}).Debug("pre-rename")
			return common.Success
		},
		PreConvertToFull: func(path string) common.Result {
			log.WithField("path", path).Debug("pre-convert-to-full")
			return common.Success
		},
		NotifyPathEvent: func(kind common.NotificationType, path string, isDir bool) {
			log.WithFields(logrus.Fields{"kind": kind, "path": path, "is_dir": isDir}).Info("notify")
		},
		NotifyPathPairEvent: func(kind common.NotificationType, path, dest string, isDir bool) {
			log.WithFields(logrus.Fields{"kind": kind, "path": path, "dest": dest, "is_dir": isDir}).Info("notify")
		},
	}
}
