package executor

import (
	"fmt"
	"strings"
)

// Priority is the scheduling class requested for a dedicated thread.
type Priority int

const (
	PriorityDefault Priority = iota
	PriorityBackground
	PriorityUtility
	PriorityUserInitiated
	PriorityUserInteractive
)

var priorityNames = map[Priority]string{
	PriorityDefault:         "default",
	PriorityBackground:      "background",
	PriorityUtility:         "utility",
	PriorityUserInitiated:   "user-initiated",
	PriorityUserInteractive: "user-interactive",
}

func (p Priority) String() string {
	if name, ok := priorityNames[p]; ok {
		return name
	}
	return fmt.Sprintf("priority(%d)", int(p))
}

// Nice maps the class onto a Unix nice value. Raising priority above the
// default usually needs CAP_SYS_NICE.
func (p Priority) Nice() int {
	switch p {
	case PriorityBackground:
		return 10
	case PriorityUtility:
		return 5
	case PriorityUserInitiated:
		return -5
	case PriorityUserInteractive:
		return -10
	default:
		return 0
	}
}

// ParsePriority accepts the names returned by Priority.String. An empty
// string means PriorityDefault.
func ParsePriority(s string) (Priority, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return PriorityDefault, nil
	}
	s = strings.ReplaceAll(s, "_", "-")
	for p, name := range priorityNames {
		if name == s {
			return p, nil
		}
	}
	return PriorityDefault, fmt.Errorf("executor: unknown priority %q", s)
}
