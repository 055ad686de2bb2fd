package engine

type EventType int

const (
	EventUpstreamConnected EventType = iota + 1
	EventUpstreamDisconnected
	EventMessagingConnected
	EventMessagingDisconnected
	EventProcessStarted
	EventProcessStopped
	EventProcessExited
	EventBuildComplete
	EventConfigWritten
	EventConfigChanged
	EventTaskDispatched
)

var eventNames = map[EventType]string{
	EventUpstreamConnected:     "upstream_connected",
	EventUpstreamDisconnected:  "upstream_disconnected",
	EventMessagingConnected:    "messaging_connected",
	EventMessagingDisconnected: "messaging_disconnected",
	EventProcessStarted:        "process_started",
	EventProcessStopped:        "process_stopped",
	EventProcessExited:         "process_exited",
	EventBuildComplete:         "build_complete",
	EventConfigWritten:         "config_written",
	EventConfigChanged:         "config_changed",
	EventTaskDispatched:        "task_dispatched",
}

func (t EventType) String() string {
	if s, ok := eventNames[t]; ok {
		return s
	}
	return "unknown"
}

// --- Event payloads ---

type ConnectionEvent struct {
	Detail string
}

type ProcessEvent struct {
	Target string
	PID    int
	Code   int
	Actor  string
}

type BuildCompleteEvent struct {
	Package string
	Code    int
}

type ConfigWrittenEvent struct {
	Filename string
	Action   string // "update", "create", "add_robot", "remove_robot"
	Actor    string
}

// ConfigChangedEvent reports a config file changed on disk.
type ConfigChangedEvent struct {
	Filename string
}

type TaskDispatchedEvent struct {
	Category    string
	Destination string
	Actor       string
}
