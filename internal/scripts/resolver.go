// SPDX-License-Identifier: MPL-2.0

package scripts

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/invowk/monorun/internal/manifest"
	"github.com/invowk/monorun/pkg/task"
)

type (
	// Result is the outcome of converting a project's scripts.
	Result struct {
		// Tasks holds the converted tasks in insertion order.
		Tasks *task.Collection
		// Skipped lists scripts left in the manifest, sorted by name.
		Skipped []Skipped
	}

	// Skipped records a script that could not be converted and why. Reason is
	// an *UnsupportedSyntaxError or an *UnresolvedTargetError.
	Skipped struct {
		Script string
		Reason error
	}

	readiness int

	plannedStep struct {
		step
		ind *indirection
	}

	plan struct {
		name  string
		steps []plannedStep
	}

	resolver struct {
		project   string
		scripts   task.ScriptMap
		opts      Options
		tasks     *task.Collection
		plans     map[string]*plan
		converted map[string]string
		skipped   map[string]error
	}
)

const (
	waiting readiness = iota
	ready
	blocked
)

// CreateTasksFromScripts converts the scripts of pkg into tasks of project.
//
// Scripts are visited in sorted name order. "&&" chains become a task per
// step linked in order; "<manager> run <script>" steps become orchestrator
// invocations of the referenced task, resolved repeatedly until no further
// script converts so that forward references succeed. Pre/post hooks are
// linked to the script they wrap. Lifecycle scripts stay in the manifest with
// their resolvable run steps rewritten; scripts using unsupported syntax or
// referencing unconvertible scripts stay untouched and are reported in
// Result.Skipped. Converted scripts are removed from pkg.Scripts, which
// becomes nil once empty.
//
// Output path and empty command errors abort the call; pkg is left
// unmodified in that case.
func CreateTasksFromScripts(project string, pkg *manifest.PackageJSON, opts Options) (*Result, error) {
	r := &resolver{
		project:   project,
		scripts:   pkg.Scripts,
		opts:      opts,
		tasks:     task.NewCollection(),
		plans:     make(map[string]*plan),
		converted: make(map[string]string),
		skipped:   make(map[string]error),
	}

	if err := r.resolve(); err != nil {
		return nil, err
	}

	pkg.Scripts = r.residual()
	return &Result{Tasks: r.tasks, Skipped: r.skippedList()}, nil
}

func (r *resolver) resolve() error {
	var pending []string
	for _, name := range r.scripts.Names() {
		if IsLifecycle(name) {
			continue
		}
		p, err := r.plan(name)
		if err != nil {
			if errors.Is(err, ErrUnsupportedSyntax) {
				r.skip(name, err)
				continue
			}
			return err
		}
		r.plans[name] = p
		pending = append(pending, name)
	}

	for progressed := true; progressed && len(pending) > 0; {
		progressed = false
		next := make([]string, 0, len(pending))
		for _, name := range pending {
			p := r.plans[name]
			state, reason := r.readiness(p)
			switch state {
			case ready:
				if err := r.emit(p); err != nil {
					return err
				}
				progressed = true
			case blocked:
				r.skip(name, reason)
				progressed = true
			default:
				next = append(next, name)
			}
		}
		pending = next
	}

	for _, name := range pending {
		r.skip(name, &UnresolvedTargetError{
			Script: name,
			Target: r.firstUnconverted(r.plans[name]),
			Reason: "scripts reference each other in a cycle",
		})
	}

	r.linkHooks()
	return nil
}

func (r *resolver) plan(name string) (*plan, error) {
	script := r.scripts[name]
	taskID := task.ID(r.project, TaskName(name))

	steps, err := parseChain(name, script)
	if err != nil {
		return nil, err
	}
	if len(steps) == 0 {
		return nil, &EmptyCommandError{Script: name, TaskID: taskID}
	}

	p := &plan{name: name}
	for _, st := range steps {
		if _, rest := ExtractEnv(Tokenize(st.text)); len(rest) == 0 || len(st.words) == 0 {
			return nil, &EmptyCommandError{Script: name, TaskID: taskID}
		}
		if st.command() == "cd" {
			return nil, unsupported(name, "changes directory with cd")
		}
		ps := plannedStep{step: st}
		if ind, ok := st.indirection(script); ok {
			ps.ind = &ind
		}
		p.steps = append(p.steps, ps)
	}
	return p, nil
}

func (r *resolver) readiness(p *plan) (readiness, error) {
	state := ready
	for _, ps := range p.steps {
		if ps.ind == nil {
			continue
		}
		target := ps.ind.target
		var reason string
		switch {
		case target == p.name:
			reason = "script runs itself"
		case !r.scripts.Has(target):
			reason = "no such script"
		case IsLifecycle(target):
			reason = "lifecycle scripts are not converted"
		case r.skipped[target] != nil:
			reason = "referenced script was not converted"
		}
		if reason != "" {
			return blocked, &UnresolvedTargetError{Script: p.name, Target: target, Reason: reason}
		}
		if _, ok := r.converted[target]; !ok {
			state = waiting
		}
	}
	return state, nil
}

// emit adds the tasks of a ready plan: one synthetic "-depN" task per
// leading step and the named task for the last step.
func (r *resolver) emit(p *plan) error {
	steps := p.steps
	if len(steps) > 1 {
		preHook := prePrefix + p.name
		steps = slices.DeleteFunc(slices.Clone(steps), func(ps plannedStep) bool {
			return ps.ind != nil && ps.ind.target == preHook
		})
		if len(steps) == 0 {
			steps = p.steps[len(p.steps)-1:]
		}
	}

	base := TaskName(p.name)
	if _, exists := r.tasks.Get(base); exists {
		slog.Debug("scripts collapse to the same task name", "script", p.name, "task", base)
	}

	prev := ""
	for i, ps := range steps {
		local := base
		if i < len(steps)-1 {
			local = fmt.Sprintf("%s-dep%d", base, i+1)
		}
		t, err := r.stepTask(task.ID(r.project, local), p.name, ps)
		if err != nil {
			return err
		}
		if prev != "" {
			t.AddDep(task.SelfTarget(prev))
		}
		r.tasks.Add(local, t)
		prev = local
	}

	r.converted[p.name] = base
	return nil
}

func (r *resolver) stepTask(taskID, scriptName string, ps plannedStep) (*task.Task, error) {
	if ps.ind == nil {
		return CreateTask(taskID, scriptName, ps.text, ConvertCommand, r.opts)
	}

	targetName := r.converted[ps.ind.target]
	env, _ := ExtractEnv(Tokenize(ps.text))

	t := task.New(taskID)
	t.Command = r.opts.binary()
	t.Args = []string{"run", task.ID(r.project, targetName)}
	if len(ps.ind.tail) > 0 {
		t.Args = append(t.Args, "--")
		t.Args = append(t.Args, ps.ind.tail...)
	}
	t.Env = env

	outputs, err := DetectOutputs(taskID, ps.ind.tail)
	if err != nil {
		return nil, err
	}
	t.Outputs = outputs

	t.Options.RunInCI = ShouldRunInCI(scriptName, ps.text)
	if target, ok := r.tasks.Get(targetName); ok && !target.Options.RunInCI {
		t.Options.RunInCI = false
	}
	return t, nil
}

// linkHooks makes X depend on preX and postX depend on X, after any chain
// dependencies. Only converted hooks are linked.
func (r *resolver) linkHooks() {
	for _, name := range slices.Sorted(maps.Keys(r.converted)) {
		t, ok := r.tasks.Get(r.converted[name])
		if !ok {
			continue
		}
		if pre, ok := r.converted[prePrefix+name]; ok {
			t.AddDep(task.SelfTarget(pre))
		}
		if base, found := strings.CutPrefix(name, postPrefix); found && base != "" {
			if target, ok := r.converted[base]; ok {
				t.AddDep(task.SelfTarget(target))
			}
		}
	}
}

// residual returns the scripts that stay in the manifest: lifecycle scripts,
// with resolvable run steps rewritten, and unconverted scripts. A converted
// hook whose base script stays is kept as a run of its task, so the package
// manager still invokes it around the base.
func (r *resolver) residual() task.ScriptMap {
	out := make(task.ScriptMap)
	for name, script := range r.scripts {
		if taskName, done := r.converted[name]; done {
			if base, ok := hookBase(name, r.scripts.Has); ok && !r.isConverted(base) {
				out[name] = r.opts.binary() + " run " + task.ID(r.project, taskName)
			}
			continue
		}
		if IsLifecycle(name) {
			script = r.rewriteLifecycle(name, script)
		}
		out[name] = script
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// rewriteLifecycle replaces each resolvable "<manager> run <script>" step of
// a lifecycle script with "<binary> run <project>:<task>", forwarding the
// step's arguments after "--". Everything outside those steps is kept
// byte for byte. Scripts the chain parser refuses are returned unchanged.
func (r *resolver) rewriteLifecycle(name, script string) string {
	steps, err := parseChain(name, script)
	if err != nil {
		return script
	}

	out := script
	for i := len(steps) - 1; i >= 0; i-- {
		ind, ok := steps[i].indirection(script)
		if !ok {
			continue
		}
		target, ok := r.converted[ind.target]
		if !ok {
			continue
		}
		replacement := r.opts.binary() + " run " + task.ID(r.project, target)
		if ind.tailStart >= 0 {
			replacement += " -- " + script[ind.tailStart:steps[i].end]
		}
		out = out[:ind.commandStart] + replacement + out[steps[i].end:]
	}
	return out
}

func (r *resolver) isConverted(name string) bool {
	_, ok := r.converted[name]
	return ok
}

func (r *resolver) skip(name string, reason error) {
	slog.Debug("script left unconverted", "script", name, "reason", reason)
	r.skipped[name] = reason
}

func (r *resolver) skippedList() []Skipped {
	out := make([]Skipped, 0, len(r.skipped))
	for _, name := range slices.Sorted(maps.Keys(r.skipped)) {
		out = append(out, Skipped{Script: name, Reason: r.skipped[name]})
	}
	return out
}

func (r *resolver) firstUnconverted(p *plan) string {
	for _, ps := range p.steps {
		if ps.ind == nil {
			continue
		}
		if _, ok := r.converted[ps.ind.target]; !ok {
			return ps.ind.target
		}
	}
	return ""
}
