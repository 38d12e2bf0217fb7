// SPDX-License-Identifier: MPL-2.0

package scripts

import (
	"github.com/invowk/monorun/pkg/task"
)

// InferTasksFromScripts creates one task per script that delegates to the
// package manager through "<binary> node run-script <name>". Lifecycle
// scripts and pre/post hooks of existing scripts are left out, since the
// package manager runs them itself. The script map is not modified.
func InferTasksFromScripts(project string, scripts task.ScriptMap, opts Options) (*task.Collection, error) {
	tasks := task.NewCollection()
	for _, name := range scripts.Names() {
		if IsLifecycle(name) {
			continue
		}
		if _, isHook := hookBase(name, scripts.Has); isHook {
			continue
		}

		local := TaskName(name)
		t, err := CreateTask(task.ID(project, local), name, scripts[name], WrapRunScript, opts)
		if err != nil {
			return nil, err
		}
		tasks.Add(local, t)
	}
	return tasks, nil
}
