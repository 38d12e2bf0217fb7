// SPDX-License-Identifier: MPL-2.0

package workspace

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/invowk/monorun/internal/manifest"
	"github.com/invowk/monorun/internal/scripts"
	"github.com/invowk/monorun/pkg/task"
)

// DefaultCacheSize bounds the number of memoized project outcomes.
const DefaultCacheSize = 256

type (
	// Outcome is the inference result for one project.
	Outcome struct {
		Project Project
		Tasks   *task.Collection
		// Residual is what remains of the scripts in convert mode, nil when
		// every script converted. Wrap mode leaves the scripts untouched.
		Residual task.ScriptMap
		Skipped  []scripts.Skipped
		// Cached reports that the outcome was served from the cache.
		Cached bool
	}

	// Inferrer runs script inference for workspace projects without touching
	// their manifests. Outcomes are memoized by manifest content, so watch
	// mode only recomputes projects whose scripts changed. It is safe for
	// concurrent use.
	Inferrer struct {
		mode  scripts.Mode
		opts  scripts.Options
		cache *lru.Cache[string, *Outcome]
	}
)

// NewInferrer creates an Inferrer caching up to cacheSize outcomes.
func NewInferrer(mode scripts.Mode, opts scripts.Options, cacheSize int) (*Inferrer, error) {
	if ok, errs := mode.IsValid(); !ok {
		return nil, errs[0]
	}
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, *Outcome](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create outcome cache: %w", err)
	}
	return &Inferrer{mode: mode, opts: opts, cache: cache}, nil
}

// Infer loads the project manifest and infers its tasks.
func (in *Inferrer) Infer(ctx context.Context, p Project) (*Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pkg, err := manifest.Load(p.Dir)
	if err != nil {
		return nil, err
	}

	key := in.cacheKey(p.ID, pkg.Scripts)
	if cached, ok := in.cache.Get(key); ok {
		slog.Debug("workspace: cached outcome", "project", p.ID)
		out := *cached
		out.Project = p
		out.Cached = true
		return &out, nil
	}

	out := &Outcome{Project: p}
	switch in.mode {
	case scripts.ModeWrap:
		out.Tasks, err = scripts.InferTasksFromScripts(p.ID, pkg.Scripts, in.opts)
		out.Residual = pkg.Scripts
	default:
		var res *scripts.Result
		res, err = scripts.CreateTasksFromScripts(p.ID, pkg, in.opts)
		if res != nil {
			out.Tasks, out.Skipped, out.Residual = res.Tasks, res.Skipped, pkg.Scripts
		}
	}
	if err != nil {
		return nil, err
	}

	in.cache.Add(key, out)
	return out, nil
}

// Forget drops every memoized outcome.
func (in *Inferrer) Forget() {
	in.cache.Purge()
}

// cacheKey hashes everything an outcome depends on: the project id, the
// mode, the binary and the scripts in name order.
func (in *Inferrer) cacheKey(project string, s task.ScriptMap) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00", project, in.mode, in.opts.Binary)
	for _, name := range s.Names() {
		fmt.Fprintf(h, "%s\x00%s\x00", name, s[name])
	}
	return hex.EncodeToString(h.Sum(nil))
}
