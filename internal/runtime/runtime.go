// Package runtime implements the Module Runtime: load a module, prepare a
// sandbox, feed it seed entities from the workspace, and collect the
// observations it records into one transaction per seed.
package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dop251/goja"

	"github.com/rcpklmc/sn0int/internal/entity"
	"github.com/rcpklmc/sn0int/internal/host"
	"github.com/rcpklmc/sn0int/internal/keyringstore"
	"github.com/rcpklmc/sn0int/internal/modmeta"
	"github.com/rcpklmc/sn0int/pkg/logger"
	"github.com/rcpklmc/sn0int/pkg/metrics"
)

// Module is a loaded, parsed module ready to run: its metadata plus the
// executable script body that follows the metadata header.
type Module struct {
	Ref      string // author/name@version, for logging
	Metadata *modmeta.Metadata
	Source   string
}

// RunSummary reports the outcome of one run across every seed it processed,
// per spec.md §7.
type RunSummary struct {
	SeedsProcessed int
	Added          int
	Updated        int
	Errors         int
}

// SeedError pairs a seed's canonical value with the failure it hit, for
// callers that want the detail behind RunSummary.Errors.
type SeedError struct {
	SeedValue string
	Err       error
}

// Options configures one run.
type Options struct {
	Workers     int
	Keyring     *keyringstore.Store
	ScriptLog   *logger.ScriptLog
	Interactive bool
	Stdin       func() (string, error)
}

// Runner drives a single module against the seeds a workspace exposes for
// its declared source family.
type Runner struct {
	ws  *entity.Workspace
	mod *Module
	opt Options
}

// New constructs a Runner for mod against ws.
func New(ws *entity.Workspace, mod *Module, opt Options) *Runner {
	if opt.Workers <= 0 {
		opt.Workers = 1
	}
	return &Runner{ws: ws, mod: mod, opt: opt}
}

// Run selects the module's seeds and executes it against each, respecting
// ctx for cancellation between seeds (and, cooperatively, inside a seed at
// the next host-API suspension point).
func (r *Runner) Run(ctx context.Context) (RunSummary, []SeedError) {
	seeds, err := r.selectSeeds(ctx)
	if err != nil {
		return RunSummary{}, []SeedError{{Err: err}}
	}

	pool := NewPool(r.opt.Workers)
	results := pool.Run(ctx, seeds, func(ctx context.Context, seed Seed) seedOutcome {
		return r.runOneSeed(ctx, seed)
	})

	var summary RunSummary
	var errs []SeedError
	for _, res := range results {
		summary.SeedsProcessed++
		if res.err != nil {
			summary.Errors++
			errs = append(errs, SeedError{SeedValue: res.seed.Value, Err: res.err})
			continue
		}
		summary.Added += res.added
		summary.Updated += res.updated
	}
	return summary, errs
}

// Seed is one row fed to the module's run() entry point.
type Seed struct {
	Value  string
	Record map[string]interface{}
}

func (r *Runner) selectSeeds(ctx context.Context) ([]Seed, error) {
	if r.mod.Metadata.Source == "" {
		return []Seed{{}}, nil
	}
	return selectSeedsForFamily(ctx, r.ws, r.mod.Metadata.Source)
}

// selectSeedsForFamily runs the named family's DefaultSelect (the in-scope
// rows, unscoped = 0) and remarshals each row through JSON into the
// map[string]interface{} shape a module's run() receives, using the same
// json tags the host API's db_insert/db_select already rely on.
func selectSeedsForFamily(ctx context.Context, ws *entity.Workspace, family string) ([]Seed, error) {
	switch family {
	case "domain":
		rows, err := ws.Domains.DefaultSelect(ctx)
		if err != nil {
			return nil, err
		}
		return rowsToSeeds(rows, func(r entity.DomainRow) string { return r.Value })
	case "subdomain":
		rows, err := ws.Subdomains.DefaultSelect(ctx)
		if err != nil {
			return nil, err
		}
		return rowsToSeeds(rows, func(r entity.SubdomainRow) string { return r.Value })
	case "ipaddr":
		rows, err := ws.IpAddrs.DefaultSelect(ctx)
		if err != nil {
			return nil, err
		}
		return rowsToSeeds(rows, func(r entity.IpAddrRow) string { return r.Value })
	case "subdomain_ipaddr":
		rows, err := ws.SubdomainIpAddrs.DefaultSelect(ctx)
		if err != nil {
			return nil, err
		}
		return rowsToSeeds(rows, func(r entity.SubdomainIpAddrRow) string { return r.Value })
	case "url":
		rows, err := ws.Urls.DefaultSelect(ctx)
		if err != nil {
			return nil, err
		}
		return rowsToSeeds(rows, func(r entity.UrlRow) string { return r.Value })
	case "email":
		rows, err := ws.Emails.DefaultSelect(ctx)
		if err != nil {
			return nil, err
		}
		return rowsToSeeds(rows, func(r entity.EmailRow) string { return r.Value })
	case "phonenumber":
		rows, err := ws.PhoneNumbers.DefaultSelect(ctx)
		if err != nil {
			return nil, err
		}
		return rowsToSeeds(rows, func(r entity.PhoneNumberRow) string { return r.Value })
	case "device":
		rows, err := ws.Devices.DefaultSelect(ctx)
		if err != nil {
			return nil, err
		}
		return rowsToSeeds(rows, func(r entity.DeviceRow) string { return r.Value })
	case "network":
		rows, err := ws.Networks.DefaultSelect(ctx)
		if err != nil {
			return nil, err
		}
		return rowsToSeeds(rows, func(r entity.NetworkRow) string { return r.Value })
	case "network_device":
		rows, err := ws.NetworkDevices.DefaultSelect(ctx)
		if err != nil {
			return nil, err
		}
		return rowsToSeeds(rows, func(r entity.NetworkDeviceRow) string { return r.Value })
	case "account":
		rows, err := ws.Accounts.DefaultSelect(ctx)
		if err != nil {
			return nil, err
		}
		return rowsToSeeds(rows, func(r entity.AccountRow) string { return r.Value })
	case "breach":
		rows, err := ws.Breaches.DefaultSelect(ctx)
		if err != nil {
			return nil, err
		}
		return rowsToSeeds(rows, func(r entity.BreachRow) string { return r.Value })
	case "breach_email":
		rows, err := ws.BreachEmails.DefaultSelect(ctx)
		if err != nil {
			return nil, err
		}
		return rowsToSeeds(rows, func(r entity.BreachEmailRow) string { return r.Value })
	case "image":
		rows, err := ws.Images.DefaultSelect(ctx)
		if err != nil {
			return nil, err
		}
		return rowsToSeeds(rows, func(r entity.ImageRow) string { return r.Value })
	default:
		return nil, fmt.Errorf("module declares unknown source family %q", family)
	}
}

// rowsToSeeds remarshals a slice of family Row structs into Seeds, reusing
// each Row's json tags (the same ones the host API's JSON remarshal already
// depends on) to build the record a module's run() receives.
func rowsToSeeds[Row any](rows []Row, valueOf func(Row) string) ([]Seed, error) {
	seeds := make([]Seed, 0, len(rows))
	for _, row := range rows {
		data, err := json.Marshal(row)
		if err != nil {
			return nil, err
		}
		var record map[string]interface{}
		if err := json.Unmarshal(data, &record); err != nil {
			return nil, err
		}
		seeds = append(seeds, Seed{Value: valueOf(row), Record: record})
	}
	return seeds, nil
}

type seedOutcome struct {
	seed    Seed
	added   int
	updated int
	err     error
}

func (r *Runner) runOneSeed(ctx context.Context, seed Seed) seedOutcome {
	started := time.Now()
	tx, err := r.ws.BeginTx(ctx)
	if err != nil {
		return seedOutcome{seed: seed, err: err}
	}

	added, updated, runErr := r.execute(ctx, tx, seed)
	if runErr != nil {
		tx.Rollback()
		metrics.RecordExecution("error", time.Since(started))
		return seedOutcome{seed: seed, err: runErr}
	}
	if err := tx.Commit(); err != nil {
		metrics.RecordExecution("error", time.Since(started))
		return seedOutcome{seed: seed, err: err}
	}
	metrics.RecordExecution("ok", time.Since(started))
	return seedOutcome{seed: seed, added: added, updated: updated}
}

func (r *Runner) execute(ctx context.Context, tx *entity.Tx, seed Seed) (added, updated int, err error) {
	rt := goja.New()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			rt.Interrupt(ctx.Err())
		case <-stop:
		}
	}()

	st := host.NewState(ctx)
	st.Tx = tx
	st.Metadata = r.mod.Metadata
	st.Keyring = r.opt.Keyring
	st.ScriptLog = r.opt.ScriptLog
	st.ModuleRef = r.mod.Ref
	st.SeedValue = seed.Value
	st.Interactive = r.opt.Interactive
	st.Stdin = r.opt.Stdin

	host.BindJSON(rt, st)
	host.BindHash(rt, st)
	host.BindEncoding(rt, st)
	host.BindNet(rt, st)
	host.BindDB(rt, st)
	host.BindKeyring(rt, st)
	host.BindControl(rt, st)

	if _, err := rt.RunString(r.mod.Source); err != nil {
		return 0, 0, wrapScriptError(err)
	}

	runFn, ok := goja.AssertFunction(rt.Get("run"))
	if !ok {
		return 0, 0, fmt.Errorf("module %s does not define a run() entry point", r.mod.Ref)
	}

	result, err := runFn(goja.Undefined(), rt.ToValue(seed.Record))
	if err != nil {
		return 0, 0, wrapScriptError(err)
	}
	result, err = resolvePromise(ctx, result)
	if err != nil {
		return 0, 0, wrapScriptError(err)
	}

	if slotErr := st.Err(); slotErr != nil {
		return 0, 0, slotErr
	}

	_ = result // a module's return value is advisory console/debug data, not the counted observations
	added, updated = st.Counts()
	return added, updated, nil
}

func resolvePromise(ctx context.Context, val goja.Value) (goja.Value, error) {
	exported := val.Export()
	promise, ok := exported.(*goja.Promise)
	if !ok {
		return val, nil
	}
	switch promise.State() {
	case goja.PromiseStateFulfilled:
		return promise.Result(), nil
	case goja.PromiseStateRejected:
		return nil, fmt.Errorf("module promise rejected: %v", promise.Result())
	default:
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("module returned a promise that did not settle")
	}
}

func wrapScriptError(err error) error {
	if interrupted, ok := err.(*goja.InterruptedError); ok {
		return fmt.Errorf("module interrupted: %v", interrupted.Value())
	}
	return fmt.Errorf("module script error: %w", err)
}
