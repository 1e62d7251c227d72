package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/Explosion-Scratch/clippy-sub000/internal/apperr"
	"github.com/Explosion-Scratch/clippy-sub000/internal/api"
	"github.com/Explosion-Scratch/clippy-sub000/internal/config"
	"github.com/Explosion-Scratch/clippy-sub000/internal/index"
	"github.com/Explosion-Scratch/clippy-sub000/internal/logging"
	"github.com/Explosion-Scratch/clippy-sub000/internal/model"
	"github.com/Explosion-Scratch/clippy-sub000/internal/plugin"
	cache "github.com/Explosion-Scratch/clippy-sub000/internal/previewcache"
	"github.com/Explosion-Scratch/clippy-sub000/internal/store"
	"github.com/Explosion-Scratch/clippy-sub000/internal/supervisor"
	"github.com/Explosion-Scratch/clippy-sub000/internal/watcher"
)

var (
	dataDirFlag = flag.String("data-dir", "", "clipboard history data directory (overrides DATA_DIR and config.json)")
	portFlag    = flag.Int("port", 0, "API port (overrides config.json apiPort, default 3016)")
	verFlag     = flag.Bool("version", false, "print version and exit")
)

func main() {
	flag.Parse()
	if *verFlag {
		fmt.Println(api.Version)
		return
	}

	log := logging.New("main")
	if err := run(log); err != nil {
		log.Log("fatal", err.Error())
		os.Exit(1)
	}
}

func run(log logging.Logger) error {
	root, isDefault, err := config.ResolveDataDir(*dataDirFlag)
	if err != nil {
		return fmt.Errorf("resolve data dir: %w", err)
	}
	osDefault := root
	if !isDefault {
		if def, derr := config.ResolveDataDir(""); derr == nil {
			osDefault = def
		}
	}

	lock, err := config.Acquire(root)
	if err != nil {
		return fmt.Errorf("acquire instance lock: %w", err)
	}
	defer lock.Release()

	cfg, err := config.Load(root)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *portFlag != 0 {
		cfg.APIPort = *portFlag
	}

	st := store.New(root, cfg.InlineThresholdBytes, logging.New("store"))
	ix := index.New(logging.New("index"))

	if err := st.Scrub(time.Hour); err != nil {
		log.Log("warn", fmt.Sprintf("orphan tmp-file scrub failed: %v", err))
	}

	good, err := loadEntries(st, log)
	if err != nil {
		return fmt.Errorf("startup integrity scan: %w", err)
	}
	records := make([]*index.Record, 0, len(good))
	for _, e := range good {
		records = append(records, index.FromEntry(e, ""))
	}
	ix.Load(records)

	registry := plugin.NewDefaultRegistry()
	pollInterval := time.Duration(cfg.PollIntervalMs) * time.Millisecond
	w := watcher.New(st, ix, registry, logging.New("watcher"), pollInterval, cfg.ExcludedApps)

	cch := cache.New(cache.DefaultMaxSize, logging.New("previewcache"))

	onRelocate := func(newRoot string) error {
		cfg.DataDir = newRoot
		return config.Save(root, cfg)
	}
	srv := api.New(api.Deps{
		Store:        st,
		Index:        ix,
		Registry:     registry,
		Watcher:      w,
		Cache:        cch,
		Log:          logging.New("api"),
		Root:         root,
		OSDefaultDir: osDefault,
		InstanceID:   lock.InstanceID(),
		OnRelocate:   onRelocate,
	})

	cfgWatcher, err := config.NewWatcher(root, logging.New("config"), func(next config.Config) {
		w.SetExcludedApps(next.ExcludedApps)
		w.SetPollInterval(time.Duration(next.PollIntervalMs) * time.Millisecond)
	})
	if err != nil {
		log.Log("warn", fmt.Sprintf("config hot-reload disabled: %v", err))
	} else {
		defer cfgWatcher.Close()
	}

	snapshotCtx, stopSnapshots := context.WithCancel(context.Background())
	go runPeriodicSnapshots(snapshotCtx, st, ix, log)
	defer stopSnapshots()

	sv := supervisor.New(log, w, srv, cfg.APIPort)
	runErr := sv.Run(context.Background())

	stopSnapshots()
	if entries, rerr := readAllForSnapshot(st, ix); rerr == nil {
		if werr := st.WriteSnapshot(entries); werr != nil {
			log.Log("warn", fmt.Sprintf("final snapshot write failed: %v", werr))
		}
	}

	if runErr != nil {
		return apperr.Wrap(apperr.KindFatal, "supervisor run", runErr)
	}
	return nil
}

// loadEntries tries the cached index/ snapshot (cheap directory-listing
// digest against the stored one) before paying for a full WalkAll, and
// quarantines anything the full walk finds broken (SPEC_FULL.md's
// "compressed index snapshot" and quarantine-report supplements).
func loadEntries(st *store.Store, log logging.Logger) ([]*model.Entry, error) {
	if quick, qerr := st.QuickDigest(); qerr == nil {
		if cached, ok, rerr := st.ReadSnapshot(quick); rerr == nil && ok {
			log.Log("info", fmt.Sprintf("loaded %d entries from cached snapshot", len(cached)))
			return cached, nil
		}
	}

	good, broken, err := st.WalkAll()
	if err != nil {
		return nil, err
	}
	for _, b := range broken {
		if qerr := st.Quarantine(b); qerr != nil {
			log.Log("warn", fmt.Sprintf("failed to quarantine %s: %v", b.Hash, qerr))
		}
	}
	if len(broken) > 0 {
		log.Log("warn", fmt.Sprintf("startup scan quarantined %d broken entries", len(broken)))
	}
	return good, nil
}

// snapshotTick is how often a clean-running process refreshes index/'s
// cached snapshot (SPEC_FULL.md: "written on clean shutdown and on a
// 5-minute tick").
const snapshotTick = 5 * time.Minute

func runPeriodicSnapshots(ctx context.Context, st *store.Store, ix *index.Index, log logging.Logger) {
	ticker := time.NewTicker(snapshotTick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			entries, err := readAllForSnapshot(st, ix)
			if err != nil {
				log.Log("warn", fmt.Sprintf("periodic snapshot read failed: %v", err))
				continue
			}
			if err := st.WriteSnapshot(entries); err != nil {
				log.Log("warn", fmt.Sprintf("periodic snapshot write failed: %v", err))
			}
		}
	}
}

// readAllForSnapshot re-reads every entry the index currently knows about,
// for serializing into the cached index/ snapshot.
func readAllForSnapshot(st *store.Store, ix *index.Index) ([]*model.Entry, error) {
	recs, _, err := ix.Run(index.Query{})
	if err != nil {
		return nil, err
	}
	out := make([]*model.Entry, 0, len(recs))
	for _, r := range recs {
		e, err := st.Read(r.Hash)
		if err != nil {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
