package pipeline

// Pipeline represents a parsed deployment pipeline file.
type Pipeline struct {
	Path        string            `json:"path"`
	Name        string            `json:"name"`
	On          Trigger           `json:"on"`
	Permissions Permissions       `json:"permissions"`
	Env         map[string]string `json:"env,omitempty"`
	Defaults    Defaults          `json:"defaults"`
	Steps       []Step            `json:"steps"`
}

// Trigger captures the events that cause the pipeline to fire.
type Trigger struct {
	Push     PushTrigger `json:"push"`
	Dispatch bool        `json:"dispatch"`
}

// PushTrigger restricts push events to the named branches.
type PushTrigger struct {
	Branches []string `json:"branches,omitempty"`
}

// Permissions declare the rights the pipeline needs from its host.
type Permissions struct {
	Contents string `json:"contents,omitempty"`
	IDToken  string `json:"id_token,omitempty"`
	Pages    string `json:"pages,omitempty"`
}

// Defaults capture shared configuration for steps.
type Defaults struct {
	RunShell         string `json:"run_shell,omitempty"`
	WorkingDirectory string `json:"working_directory,omitempty"`
}

// Step represents an individual pipeline step. Exactly one of Uses or Run
// is set: Uses names a builtin, Run is a shell command.
type Step struct {
	Name             string            `json:"name"`
	Uses             string            `json:"uses,omitempty"`
	Run              string            `json:"run,omitempty"`
	Shell            string            `json:"shell,omitempty"`
	WorkingDirectory string            `json:"working_directory,omitempty"`
	Env              map[string]string `json:"env,omitempty"`
	If               Condition         `json:"if,omitempty"`
	RetentionDays    int               `json:"retention_days,omitempty"`
}

// Warning captures non-fatal issues encountered while parsing a pipeline.
type Warning struct {
	Pipeline string `json:"pipeline"`
	Step     string `json:"step,omitempty"`
	Message  string `json:"message"`
}

// Builtin step names dispatched in-process by the runner.
const (
	UsesAnalyze  = "analyze"
	UsesInspect  = "inspect"
	UsesArtifact = "artifact"
	UsesPublish  = "publish"
)

// KnownBuiltin reports whether uses names a builtin step.
func KnownBuiltin(uses string) bool {
	switch uses {
	case UsesAnalyze, UsesInspect, UsesArtifact, UsesPublish:
		return true
	}
	return false
}

// Condition is a step-level execution condition. Only the conditions the
// runner understands survive parsing; anything else becomes a warning and
// the default condition.
type Condition string

const (
	// CondSuccess runs the step only when no prior step failed. The default.
	CondSuccess Condition = ""
	// CondNotCancelled runs the step even after an ordinary failure, but
	// not after the run was cancelled.
	CondNotCancelled Condition = "!cancelled()"
	// CondAlways runs the step unconditionally, cancellation included.
	CondAlways Condition = "always()"
)

// Event describes the occurrence being tested against the trigger.
type Event struct {
	Kind   EventKind
	Branch string
}

// EventKind discriminates trigger event types.
type EventKind string

const (
	// EventPush is a push to a branch.
	EventPush EventKind = "push"
	// EventDispatch is a manual invocation.
	EventDispatch EventKind = "dispatch"
)

// Fires reports whether the trigger matches the supplied event.
func (t Trigger) Fires(ev Event) bool {
	switch ev.Kind {
	case EventDispatch:
		return t.Dispatch
	case EventPush:
		if len(t.Push.Branches) == 0 {
			return false
		}
		for _, b := range t.Push.Branches {
			if b == ev.Branch {
				return true
			}
		}
	}
	return false
}
