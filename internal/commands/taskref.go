package commands

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"tasksync/internal/app"
	"tasksync/internal/exitcode"
	"tasksync/internal/service"
)

// ErrTaskRefRequired indicates no task reference was provided.
var ErrTaskRefRequired = errors.New("task reference required")

// IDPrefix marks a reference as an exact task ID, e.g. "id:42".
const IDPrefix = "id:"

// ResolveTaskRef finds the task that ref names in tasks.
//
// Resolution rules:
// 1. Empty ref → ErrTaskRefRequired
// 2. "id:<ID>" → the task with exactly that ID
// 3. ref all digits → the task at that 1-based position in tasks
// 4. Otherwise ref must equal a task ID
//
// Positions count the full collection, so numbers printed by a filtered
// list still resolve to the same task. A number is never read as an ID;
// numeric IDs need the prefix.
func ResolveTaskRef(tasks []service.Task, ref string) (service.Task, error) {
	if ref == "" {
		return service.Task{}, ErrTaskRefRequired
	}

	if id, ok := strings.CutPrefix(ref, IDPrefix); ok {
		return findByID(tasks, id, ref)
	}

	if !isAllDigits(ref) {
		return findByID(tasks, ref, ref)
	}
	num, err := strconv.Atoi(ref)
	if err != nil {
		return service.Task{}, fmt.Errorf("invalid task reference: %s", ref)
	}
	if num < 1 || num > len(tasks) {
		return service.Task{}, fmt.Errorf("task number out of range: %d", num)
	}
	task := tasks[num-1]
	if task.ID == "" {
		return service.Task{}, fmt.Errorf("task %d has no id", num)
	}
	return task, nil
}

func findByID(tasks []service.Task, id, ref string) (service.Task, error) {
	if id == "" {
		return service.Task{}, ErrTaskRefRequired
	}
	for _, t := range tasks {
		if t.ID == id {
			return t, nil
		}
	}
	return service.Task{}, fmt.Errorf("task not found: %s", ref)
}

// resolveArg resolves the single task reference in args against the
// store, printing any error.
func resolveArg(a *app.App, args []string, errOut io.Writer) (service.Task, int) {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "error: task reference required")
		return service.Task{}, exitcode.UserError
	}
	if len(args) > 1 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[1])
		return service.Task{}, exitcode.UserError
	}

	task, err := ResolveTaskRef(a.Tasks.Tasks(), args[0])
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return service.Task{}, exitcode.UserError
	}
	return task, exitcode.Success
}

// isAllDigits returns true if s consists only of ASCII digits and is non-empty.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
