package rmf

import (
	"encoding/json"
	"fmt"
	"strings"
)

// badIDChars are characters an id may not contain. Fleet names and task ids
// end up in room names and SSE event names, where a line break would split
// the frame.
const badIDChars = "\r\n"

func validID(kind, id string) error {
	if id == "" {
		return fmt.Errorf("%s is empty", kind)
	}
	if strings.ContainsAny(id, badIDChars) {
		return fmt.Errorf("%s %q contains a line break", kind, id)
	}
	return nil
}

// RobotStatus is the operating status RMF reports for a robot.
type RobotStatus string

const (
	RobotUninitialized RobotStatus = "uninitialized"
	RobotOffline       RobotStatus = "offline"
	RobotShutdown      RobotStatus = "shutdown"
	RobotIdle          RobotStatus = "idle"
	RobotCharging      RobotStatus = "charging"
	RobotWorking       RobotStatus = "working"
	RobotError         RobotStatus = "error"
)

func (s RobotStatus) Valid() bool {
	switch s {
	case RobotUninitialized, RobotOffline, RobotShutdown, RobotIdle,
		RobotCharging, RobotWorking, RobotError:
		return true
	}
	return false
}

// TaskStatus is the lifecycle status of a task.
type TaskStatus string

const (
	TaskUninitialized TaskStatus = "uninitialized"
	TaskBlocked       TaskStatus = "blocked"
	TaskError         TaskStatus = "error"
	TaskFailed        TaskStatus = "failed"
	TaskQueued        TaskStatus = "queued"
	TaskStandby       TaskStatus = "standby"
	TaskUnderway      TaskStatus = "underway"
	TaskDelayed       TaskStatus = "delayed"
	TaskSkipped       TaskStatus = "skipped"
	TaskCanceled      TaskStatus = "canceled"
	TaskKilled        TaskStatus = "killed"
	TaskCompleted     TaskStatus = "completed"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskUninitialized, TaskBlocked, TaskError, TaskFailed, TaskQueued,
		TaskStandby, TaskUnderway, TaskDelayed, TaskSkipped, TaskCanceled,
		TaskKilled, TaskCompleted:
		return true
	}
	return false
}

func (s TaskStatus) IsTerminal() bool {
	return s == TaskCompleted || s == TaskCanceled || s == TaskFailed || s == TaskKilled
}

// --- Fleet state ---

type FleetState struct {
	Name   string                `json:"name"`
	Robots map[string]RobotState `json:"robots"`
}

type RobotState struct {
	Name           string      `json:"name"`
	Status         RobotStatus `json:"status,omitempty"`
	TaskID         string      `json:"task_id,omitempty"`
	Battery        *float64    `json:"battery,omitempty"`
	Location       *Location   `json:"location,omitempty"`
	UnixMillisTime int64       `json:"unix_millis_time,omitempty"`
}

type Location struct {
	Map string  `json:"map"`
	X   float64 `json:"x"`
	Y   float64 `json:"y"`
	Yaw float64 `json:"yaw"`
}

func (f *FleetState) Validate() error {
	if err := validID("fleet name", f.Name); err != nil {
		return err
	}
	for key, r := range f.Robots {
		if strings.ContainsAny(key, badIDChars) {
			return fmt.Errorf("robot %q: name contains a line break", key)
		}
		if r.Battery != nil && (*r.Battery < 0 || *r.Battery > 1) {
			return fmt.Errorf("robot %s: battery %v out of range", key, *r.Battery)
		}
		if r.Status != "" && !r.Status.Valid() {
			return fmt.Errorf("robot %s: unknown status %q", key, r.Status)
		}
	}
	return nil
}

// DecodeFleetState parses and validates a fleet state payload.
func DecodeFleetState(data []byte) (*FleetState, error) {
	var f FleetState
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode fleet state: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// --- Task state ---

type TaskRecord struct {
	Booking    Booking     `json:"booking"`
	Category   string      `json:"category,omitempty"`
	Status     TaskStatus  `json:"status,omitempty"`
	AssignedTo *AssignedTo `json:"assigned_to,omitempty"`
}

type Booking struct {
	ID                    string `json:"id"`
	Requester             string `json:"requester,omitempty"`
	UnixMillisRequestTime int64  `json:"unix_millis_request_time,omitempty"`
}

type AssignedTo struct {
	Group string `json:"group"`
	Name  string `json:"name"`
}

func (t *TaskRecord) Validate() error {
	if err := validID("task booking id", t.Booking.ID); err != nil {
		return err
	}
	if t.Status != "" && !t.Status.Valid() {
		return fmt.Errorf("task %s: unknown status %q", t.Booking.ID, t.Status)
	}
	return nil
}

// DecodeTaskRecord parses and validates a task state payload.
func DecodeTaskRecord(data []byte) (*TaskRecord, error) {
	var t TaskRecord
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode task state: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// --- Building map ---

type BuildingMap struct {
	Name   string  `json:"name"`
	Levels []Level `json:"levels"`
}

type Level struct {
	Name      string     `json:"name"`
	Elevation float64    `json:"elevation"`
	Images    []MapImage `json:"images,omitempty"`
	NavGraphs []NavGraph `json:"nav_graphs,omitempty"`
}

type MapImage struct {
	Name     string  `json:"name"`
	XOffset  float64 `json:"x_offset"`
	YOffset  float64 `json:"y_offset"`
	Yaw      float64 `json:"yaw"`
	Scale    float64 `json:"scale"`
	Encoding string  `json:"encoding"`
	Data     string  `json:"data"`
}

type NavGraph struct {
	Name     string   `json:"name"`
	Vertices []Vertex `json:"vertices"`
	Edges    []Edge   `json:"edges"`
}

type Vertex struct {
	X      float64           `json:"x"`
	Y      float64           `json:"y"`
	Name   string            `json:"name"`
	Params []json.RawMessage `json:"params,omitempty"`
}

type Edge struct {
	V1       int `json:"v1_idx"`
	V2       int `json:"v2_idx"`
	EdgeType int `json:"edge_type"`
}

func (m *BuildingMap) Validate() error {
	if len(m.Levels) == 0 {
		return fmt.Errorf("building map %q has no levels", m.Name)
	}
	for _, lvl := range m.Levels {
		for _, g := range lvl.NavGraphs {
			n := len(g.Vertices)
			for i, e := range g.Edges {
				if e.V1 < 0 || e.V1 >= n || e.V2 < 0 || e.V2 >= n {
					return fmt.Errorf("level %s graph %s: edge %d references missing vertex", lvl.Name, g.Name, i)
				}
			}
		}
	}
	return nil
}

// DecodeBuildingMap parses and validates a building map payload.
func DecodeBuildingMap(data []byte) (*BuildingMap, error) {
	var m BuildingMap
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode building map: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// --- Dispatch ---

type DispatchTaskRequest struct {
	Type    string      `json:"type"`
	Request TaskRequest `json:"request"`
}

type TaskRequest struct {
	UnixMillisEarliestStartTime int64           `json:"unix_millis_earliest_start_time"`
	UnixMillisRequestTime       int64           `json:"unix_millis_request_time"`
	Priority                    Priority        `json:"priority"`
	Category                    string          `json:"category"`
	Description                 TaskDescription `json:"description"`
	Labels                      []string        `json:"labels"`
	Requester                   string          `json:"requester"`
}

type Priority struct {
	Type  string `json:"type"`
	Value int    `json:"value"`
}

type TaskDescription struct {
	Places []string `json:"places"`
	Rounds int      `json:"rounds"`
}
