// Copyright (c) 2013 Uwe Hoffmann. All rights reserved.

/*
Redistribution and use in source and binary forms, with or without
modification, are permitted provided that the following conditions are
met:

   * Redistributions of source code must retain the above copyright
notice, this list of conditions and the following disclaimer.
   * Redistributions in binary form must reproduce the above
copyright notice, this list of conditions and the following disclaimer
in the documentation and/or other materials provided with the
distribution.
   * Neither the name of Google Inc. nor the names of its
contributors may be used to endorse or promote products derived from
this software without specific prior written permission.

THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS
"AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT
LIMITED TO, THE IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR
A PARTICULAR PURPOSE ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT
OWNER OR CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT
LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR SERVICES; LOSS OF USE,
DATA, OR PROFITS; OR BUSINESS INTERRUPTION) HOWEVER CAUSED AND ON ANY
THEORY OF LIABILITY, WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT
(INCLUDING NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH DAMAGE.
*/

// romcat is a thin CLI wrapping the catalogue-and-match core: it submits
// work to the DAT ingest pipeline and the filesystem scanner, and prints
// the aggregate query surface. It is not part of the core's contract; a
// dashboard or any other collaborator can drive the same internal packages
// directly.
package main

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	humanize "github.com/dustin/go-humanize"
	"github.com/golang/glog"
	"github.com/urfave/cli/v2"

	"github.com/uwedeportivo/romcat/internal/category"
	"github.com/uwedeportivo/romcat/internal/catalog"
	"github.com/uwedeportivo/romcat/internal/config"
	"github.com/uwedeportivo/romcat/internal/datparser"
	"github.com/uwedeportivo/romcat/internal/eventbus"
	"github.com/uwedeportivo/romcat/internal/scanner"
	"github.com/uwedeportivo/romcat/internal/store"
)

func main() {
	app := &cli.App{
		Name:  "romcat",
		Usage: "ROM collection catalogue and match core",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Value:   "romcat.db",
				Usage:   "path to the catalogue database",
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "path to a .gcfg config file; its db setting overrides --db, its worker count applies when --workers is unset",
			},
		},
		Commands: []*cli.Command{
			importCommand(),
			scanCommand(),
			statsCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		glog.Errorf("romcat: %v", err)
		os.Exit(1)
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	if path := c.String("config"); path != "" {
		return config.Load(path)
	}
	cfg := config.Default()
	cfg.Index.Db = c.String("db")
	return cfg, nil
}

func openStore(c *cli.Context) (*store.Store, *config.Config, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, nil, err
	}
	dbPath := cfg.Index.Db
	if dbPath == "" {
		dbPath = c.String("db")
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, nil, err
	}
	return st, cfg, nil
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "ingest one or more DAT files into the catalogue",
		ArgsUsage: "DAT [DAT...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "root",
				Usage: "import root used to derive directory-based categories",
			},
			&cli.StringFlag{
				Name:  "category",
				Usage: "explicit category path, overrides directory/TOSEC detection",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return cli.ShowCommandHelp(c, "import")
			}

			st, _, err := openStore(c)
			if err != nil {
				return err
			}
			defer st.Close()

			bus := eventbus.New()
			defer bus.Close()
			sub := bus.Subscribe()
			done := make(chan struct{})
			go func() {
				defer close(done)
				for ev := range sub {
					logImportEvent(ev)
				}
			}()

			root := c.String("root")
			for _, path := range c.Args().Slice() {
				if err := importOne(st, bus, path, root, c.String("category")); err != nil {
					bus.Publish(eventbus.Error{Message: path + ": " + err.Error()})
				}
			}

			bus.Close()
			<-done
			return nil
		},
	}
}

func importOne(st *store.Store, bus *eventbus.Bus, path, root, explicitCategory string) error {
	bus.Publish(eventbus.Started{Path: path})
	started := time.Now()

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	h := sha1.New()
	tee := io.TeeReader(f, h)
	parsed, err := datparser.Parse(tee, path)
	if err != nil {
		return err
	}

	dat := catalog.Dat{
		Sha1:     hex.EncodeToString(h.Sum(nil)),
		Name:     parsed.Header.Name,
		Dialect:  parsed.Dialect,
		Path:     path,
		Size:     info.Size(),
		ModTime:  info.ModTime(),
		Category: category.Derive(path, root, explicitCategory),
	}
	bus.Publish(eventbus.DatDetected{Name: dat.Name, Format: string(dat.Dialect)})

	res, err := st.UpsertDat(dat, parsed)
	if err != nil {
		return err
	}
	if res.Outcome == store.SkippedDuplicate {
		bus.Publish(eventbus.Skipped{Reason: "duplicate sha1"})
		return nil
	}

	entryCount := 0
	for _, se := range parsed.Sets {
		entryCount += len(se.Entries)
	}
	elapsed := time.Since(started)
	var eps float64
	if elapsed > 0 {
		eps = float64(entryCount) / elapsed.Seconds()
	}
	bus.Publish(eventbus.ImportCompleted{
		Name:          dat.Name,
		EntryCount:    entryCount,
		DurationMs:    elapsed.Milliseconds(),
		EntriesPerSec: eps,
	})
	return nil
}

func logImportEvent(ev eventbus.Event) {
	switch e := ev.(type) {
	case eventbus.Started:
		glog.Infof("import: starting %s", e.Path)
	case eventbus.DatDetected:
		glog.Infof("import: detected %s (%s)", e.Name, e.Format)
	case eventbus.Skipped:
		fmt.Printf("skipped: %s\n", e.Reason)
	case eventbus.ImportCompleted:
		fmt.Printf("imported %s: %d entries in %dms (%.0f entries/sec)\n",
			e.Name, e.EntryCount, e.DurationMs, e.EntriesPerSec)
	case eventbus.Error:
		glog.Errorf("import: %s", e.Message)
	}
}

func scanCommand() *cli.Command {
	return &cli.Command{
		Name:      "scan",
		Usage:     "scan a filesystem tree and resolve matches against the catalogue",
		ArgsUsage: "ROOT",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "workers",
				Aliases: []string{"w"},
				Usage:   "worker pool size (0 = available parallelism)",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.ShowCommandHelp(c, "scan")
			}
			root, err := filepath.Abs(c.Args().First())
			if err != nil {
				return err
			}

			st, cfg, err := openStore(c)
			if err != nil {
				return err
			}
			defer st.Close()

			workers := c.Int("workers")
			if workers == 0 {
				workers = cfg.General.Workers
			}

			bus := eventbus.New()
			defer bus.Close()
			sub := bus.Subscribe()
			done := make(chan struct{})
			go func() {
				defer close(done)
				for ev := range sub {
					logScanEvent(ev)
				}
			}()

			ctx, cancel := context.WithCancel(context.Background())
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt)
			go func() {
				if _, ok := <-sigCh; ok {
					glog.Infof("scan: interrupt received, cancelling")
					cancel()
				}
			}()
			defer signal.Stop(sigCh)

			sc := scanner.New(st, bus, workers)
			_, err = sc.Scan(ctx, root)
			bus.Close()
			<-done
			return err
		},
	}
}

func logScanEvent(ev eventbus.Event) {
	switch e := ev.(type) {
	case eventbus.Discovery:
		glog.V(2).Infof("scan: entering %s", e.Directory)
	case eventbus.FileStarted:
		glog.V(4).Infof("scan: %s (%s)", e.Path, humanize.IBytes(uint64(e.Size)))
	case eventbus.FileCompleted:
		glog.V(4).Infof("scan: done %s", e.Path)
	case eventbus.Summary:
		fmt.Printf("scanned %d files (%d processed), %s in %dms (%.1f files/sec, %s/sec)\n",
			e.DiscoveredFiles, e.ProcessedFiles, humanize.IBytes(uint64(e.TotalBytes)),
			e.DurationMs, e.FilesPerSec, humanize.IBytes(uint64(e.BytesPerSec)))
	case eventbus.Error:
		glog.Errorf("scan: %s", e.Message)
	}
}

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "print aggregate catalogue and collection statistics",
		Action: func(c *cli.Context) error {
			st, _, err := openStore(c)
			if err != nil {
				return err
			}
			defer st.Close()

			stats, err := st.Stats()
			if err != nil {
				return err
			}

			fmt.Printf("dats:     %d\n", stats.DatCount)
			fmt.Printf("entries:  %d\n", stats.EntryCount)
			fmt.Printf("files:    %d\n", stats.FileCount)
			fmt.Printf("matched:  %d\n", stats.MatchedCount)
			fmt.Printf("bytes:    %s\n", humanize.IBytes(uint64(stats.TotalBytes)))
			return nil
		},
	}
}
