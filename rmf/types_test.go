package rmf

import "testing"

func TestDecodeBuildingMap(t *testing.T) {
	good := `{"name":"building","levels":[{"name":"L1","elevation":0,"nav_graphs":[{"name":"0",
		"vertices":[{"x":0,"y":0,"name":"a"},{"x":1,"y":1,"name":"b"}],
		"edges":[{"v1_idx":0,"v2_idx":1,"edge_type":1}]}]}]}`
	m, err := DecodeBuildingMap([]byte(good))
	if err != nil {
		t.Fatalf("DecodeBuildingMap: %v", err)
	}
	if len(m.Levels) != 1 || m.Levels[0].Name != "L1" {
		t.Errorf("levels = %+v", m.Levels)
	}

	tests := []struct {
		name string
		data string
	}{
		{"no levels", `{"name":"building","levels":[]}`},
		{"dangling edge", `{"name":"b","levels":[{"name":"L1","nav_graphs":[{"name":"0","vertices":[{"x":0,"y":0}],"edges":[{"v1_idx":0,"v2_idx":3}]}]}]}`},
		{"not json", `<html>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeBuildingMap([]byte(tt.data)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestFleetStateValidate(t *testing.T) {
	half := 0.5
	neg := -0.1
	tests := []struct {
		name    string
		fleet   FleetState
		wantErr bool
	}{
		{"ok", FleetState{Name: "f", Robots: map[string]RobotState{"r": {Status: RobotIdle, Battery: &half}}}, false},
		{"no battery", FleetState{Name: "f", Robots: map[string]RobotState{"r": {}}}, false},
		{"empty name", FleetState{}, true},
		{"bad battery", FleetState{Name: "f", Robots: map[string]RobotState{"r": {Battery: &neg}}}, true},
		{"bad status", FleetState{Name: "f", Robots: map[string]RobotState{"r": {Status: "dancing"}}}, true},
		{"newline in name", FleetState{Name: "f\nevent: forged"}, true},
		{"carriage return in name", FleetState{Name: "f\r"}, true},
		{"newline in robot", FleetState{Name: "f", Robots: map[string]RobotState{"r\n": {}}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.fleet.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTaskRecordValidate(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr bool
	}{
		{"ok", `{"booking":{"id":"patrol-1"},"status":"underway"}`, false},
		{"empty id", `{"booking":{"id":""}}`, true},
		{"newline in id", `{"booking":{"id":"patrol-1\n\nevent: forged"}}`, true},
		{"carriage return in id", `{"booking":{"id":"patrol-1\r"}}`, true},
		{"bad status", `{"booking":{"id":"p"},"status":"dancing"}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeTaskRecord([]byte(tt.data))
			if (err != nil) != tt.wantErr {
				t.Errorf("DecodeTaskRecord err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTaskStatusIsTerminal(t *testing.T) {
	for _, s := range []TaskStatus{TaskCompleted, TaskCanceled, TaskFailed, TaskKilled} {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []TaskStatus{TaskQueued, TaskUnderway, TaskStandby} {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}
