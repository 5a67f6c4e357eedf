// Package pipeline runs Selector → download → Cleaner → Loader for one
// invocation, in either the polling or the event-driven variant.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvka-141/payetl/internal/checksum"
	"github.com/vvka-141/payetl/internal/cleaner"
	"github.com/vvka-141/payetl/internal/config"
	"github.com/vvka-141/payetl/internal/db"
	"github.com/vvka-141/payetl/internal/loader"
	"github.com/vvka-141/payetl/internal/logging"
	"github.com/vvka-141/payetl/internal/selector"
	"github.com/vvka-141/payetl/internal/store"
	"github.com/vvka-141/payetl/pkg/payetl"
)

// Pipeline wires the stages to their collaborators. Build it once per
// process; each Run call is independent.
type Pipeline struct {
	Store     payetl.ObjectStore
	Connector payetl.Connector
	Cleaner   *cleaner.Cleaner
	Loader    *loader.Loader
	Logger    payetl.Logger

	Bucket     string
	Prefix     string
	ScratchDir string
	Timeout    time.Duration

	// Now stamps the completion marker.
	Now func() time.Time
}

// New builds a Pipeline from the process configuration.
func New(cfg *config.Config, objects payetl.ObjectStore, connector payetl.Connector, logger payetl.Logger) *Pipeline {
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	c := cleaner.New(cfg.ScratchDir, logger)
	c.SkipRows = cfg.HeaderSkipRows

	return &Pipeline{
		Store:      objects,
		Connector:  connector,
		Cleaner:    c,
		Loader:     loader.New(cfg.BatchSize, cfg.Atomic, logger),
		Logger:     logger,
		Bucket:     cfg.Bucket,
		Prefix:     cfg.Prefix,
		ScratchDir: cfg.ScratchDir,
		Timeout:    cfg.Timeout,
		Now:        time.Now,
	}
}

// run is the per-invocation state.
type run struct {
	id      string
	log     payetl.Logger
	workDir string
	cleaner cleaner.Cleaner
	loader  loader.Loader
}

func (p *Pipeline) begin(ctx context.Context) (context.Context, *run, func(), error) {
	id := uuid.NewString()
	log := p.Logger
	if cl, ok := log.(*logging.ConsoleLogger); ok {
		log = cl.WithRunID(id)
	}

	workDir := filepath.Join(p.ScratchDir, "payetl-"+id)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}

	r := &run{id: id, log: log, workDir: workDir, cleaner: *p.Cleaner, loader: *p.Loader}
	r.cleaner.OutDir = workDir
	r.cleaner.Logger = log
	r.loader.Logger = log

	cancel := func() {}
	if p.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
	}
	done := func() {
		cancel()
		if err := os.RemoveAll(workDir); err != nil {
			log.Verbose("Failed to remove %s: %v", workDir, err)
		}
	}
	return ctx, r, done, nil
}

// RunPolling loads the newest object of every category under the
// configured prefix.
func (p *Pipeline) RunPolling(ctx context.Context) (payetl.PollResult, error) {
	ctx, r, done, err := p.begin(ctx)
	if err != nil {
		return payetl.PollResult{}, err
	}
	defer done()
	r.log.Info("Polling s3://%s/%s", p.Bucket, p.Prefix)

	sel, err := selector.PickNewest(ctx, p.Store, p.Bucket, p.Prefix, r.log)
	if err != nil {
		return payetl.PollResult{}, err
	}

	files, err := p.prepare(ctx, r, p.Bucket, sel)
	if err != nil {
		return payetl.PollResult{}, err
	}

	pool, err := p.Connector.Connect(ctx)
	if err != nil {
		return payetl.PollResult{}, err
	}
	defer pool.Close()

	stats, err := p.load(ctx, r, pool, files)
	if err != nil {
		return payetl.PollResult{}, err
	}
	return payetl.PollResult{OK: true, Picked: sel.Keys(), Stats: stats}, nil
}

// RunEvent handles one object-created notification. An empty bucket means
// the configured one.
func (p *Pipeline) RunEvent(ctx context.Context, bucket, key string) (payetl.EventResult, error) {
	if bucket == "" {
		bucket = p.Bucket
	}

	date, err := selector.ExtractDate(key)
	if err != nil {
		return payetl.EventResult{}, err
	}

	ctx, r, done, err := p.begin(ctx)
	if err != nil {
		return payetl.EventResult{}, err
	}
	defer done()
	r.log.Info("Event for s3://%s/%s, processing date %s", bucket, key, date)

	result := payetl.EventResult{Date: date}
	expected := selector.ExpectedKeys(p.Prefix, date)
	marker := selector.MarkerKey(p.Prefix, date)

	finished, err := p.Store.Exists(ctx, bucket, marker)
	if err != nil {
		return result, err
	}
	if finished {
		r.log.Info("%s already processed (%s exists)", date, marker)
		result.OK, result.Ready, result.AlreadyDone = true, true, true
		return result, nil
	}

	missing, err := selector.CheckReady(ctx, p.Store, bucket, expected)
	if err != nil {
		return result, err
	}
	if len(missing) > 0 {
		r.log.Info("%s not ready, waiting for %v", date, missing)
		result.OK, result.Missing = true, missing
		return result, nil
	}
	result.Ready = true

	pool, err := p.Connector.Connect(ctx)
	if err != nil {
		return result, err
	}
	defer pool.Close()

	lock, err := db.TryLockDate(ctx, pool, date)
	if err != nil {
		return result, fmt.Errorf("%w: %w", payetl.ErrConnectionFailed, err)
	}
	if lock == nil {
		r.log.Info("%s is being loaded by another run", date)
		result.OK, result.InProgress = true, true
		return result, nil
	}
	defer func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			r.log.Error("%v", err)
		}
	}()

	// The marker may have appeared while we waited on the lock.
	finished, err = p.Store.Exists(ctx, bucket, marker)
	if err != nil {
		return result, err
	}
	if finished {
		r.log.Info("%s finished by another run", date)
		result.OK, result.AlreadyDone = true, true
		return result, nil
	}

	sel := make(payetl.Selection, len(expected))
	for c, k := range expected {
		sel[c] = payetl.ObjectInfo{Key: k}
	}

	files, err := p.prepare(ctx, r, bucket, sel)
	if err != nil {
		return result, err
	}
	stats, err := p.load(ctx, r, pool, files)
	if err != nil {
		return result, err
	}

	body := fmt.Sprintf("processed %s at %s\n", date, p.Now().UTC().Format(time.RFC3339))
	if err := p.Store.PutIfAbsent(ctx, bucket, marker, []byte(body)); err != nil {
		if !errors.Is(err, payetl.ErrMarkerExists) {
			return result, fmt.Errorf("loaded %s but failed to write marker: %w", date, err)
		}
		r.log.Info("Marker %s was already written", marker)
	} else {
		r.log.Info("Wrote marker %s", marker)
	}

	result.OK = true
	result.Picked = sel.Keys()
	result.Stats = &stats
	return result, nil
}

// stagedFiles are the local inputs for the loader.
type stagedFiles struct {
	providerCSV string
	staffCSV    string
	labor       string
}

// prepare downloads the selected objects and cleans the provider and
// staff exports.
func (p *Pipeline) prepare(ctx context.Context, r *run, bucket string, sel payetl.Selection) (stagedFiles, error) {
	local := make(map[payetl.Category]string, len(sel))
	sums := make(map[string]string, len(sel))
	var names []string
	for _, c := range payetl.AllCategories() {
		key := sel[c].Key
		path := store.LocalPath(r.workDir, key)
		if err := p.Store.Download(ctx, bucket, key, path); err != nil {
			return stagedFiles{}, err
		}
		r.log.Verbose("Downloaded s3://%s/%s to %s", bucket, key, path)
		local[c] = path

		sum, err := checksum.File(path)
		if err != nil {
			return stagedFiles{}, err
		}
		r.log.Verbose("%s sha256 %s", key, sum)
		sums[c.String()] = sum
		names = append(names, c.String())
	}
	for _, group := range checksum.Duplicates(names, sums) {
		r.log.Info("WARNING: identical content for %s", strings.Join(group, ", "))
	}

	provider, staff, err := r.cleaner.CleanProviderAndStaff(
		[]string{local[payetl.CategoryProvider1], local[payetl.CategoryProvider2]},
		[]string{local[payetl.CategoryStaff]},
	)
	if err != nil {
		return stagedFiles{}, err
	}
	return stagedFiles{providerCSV: provider, staffCSV: staff, labor: local[payetl.CategoryLabor]}, nil
}

func (p *Pipeline) load(ctx context.Context, r *run, pool *pgxpool.Pool, files stagedFiles) (payetl.LoadStats, error) {
	stats, err := r.loader.LoadFiles(ctx, pool, files.providerCSV, files.staffCSV, files.labor)
	if err != nil {
		return stats, err
	}
	r.log.Info("Loaded %d rows", stats.Inserted())
	return stats, nil
}
