package fleetconfig

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	return NewStore(filepath.Join(dir, "config"), filepath.Join(dir, "maps"), "building.building.yaml")
}

func sampleDoc() Document {
	return Document{
		"rmf_fleet": map[string]any{
			"name":               "tinyRobot",
			"reversible":         true,
			"recharge_threshold": 0.02,
			"limits": map[string]any{
				"linear": []any{0.5, 2.5},
			},
		},
		"robots": map[string]any{
			"tinyRobot1": map[string]any{
				"robot_config": map[string]any{"max_delay": 15},
			},
		},
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	s := testStore(t)
	require.NoError(t, os.MkdirAll(s.Dir(), 0o755))

	doc := sampleDoc()
	require.NoError(t, s.Write("fleet.yaml", doc))

	got, err := s.Read("fleet.yaml")
	require.NoError(t, err)
	require.Equal(t, doc, got)
}

func TestWrite_DefaultFilename(t *testing.T) {
	s := testStore(t)
	require.NoError(t, os.MkdirAll(s.Dir(), 0o755))

	require.NoError(t, s.Write("", sampleDoc()))
	_, err := os.Stat(filepath.Join(s.Dir(), DefaultFilename))
	require.NoError(t, err)
}

func TestRead_Missing(t *testing.T) {
	s := testStore(t)
	_, err := s.Read("nope.yaml")
	require.Error(t, err)
	require.True(t, errors.Is(err, os.ErrNotExist))
}

func TestRead_DuplicateRobotKey(t *testing.T) {
	s := testStore(t)
	require.NoError(t, os.MkdirAll(s.Dir(), 0o755))
	data := "robots:\n  r1: {}\n  r1: {}\n"
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "dup.yaml"), []byte(data), 0o644))

	_, err := s.Read("dup.yaml")
	require.Error(t, err)
}

func TestPath_RejectsNonLocal(t *testing.T) {
	s := testStore(t)
	for _, name := range []string{"../secrets.yaml", "/etc/passwd", "a/../../b.yaml"} {
		_, err := s.Path(name)
		require.ErrorIs(t, err, ErrNotLocal, name)
	}
	_, err := s.Path("sub/fleet.yaml")
	require.NoError(t, err)
}

func TestCreateFromTemplate(t *testing.T) {
	s := testStore(t)

	err := s.CreateFromTemplate("deliveryRobot.yaml", TemplateParams{
		FleetName: "deliveryRobot",
		Address:   "http://10.0.0.7:22011",
	})
	require.NoError(t, err)

	doc, err := s.Read("deliveryRobot.yaml")
	require.NoError(t, err)

	fleet := doc["rmf_fleet"].(map[string]any)
	require.Equal(t, "deliveryRobot", fleet["name"])
	manager := fleet["fleet_manager"].(map[string]any)
	require.Equal(t, "http://10.0.0.7:22011", manager["prefix"])
	caps := fleet["task_capabilities"].(map[string]any)
	require.Equal(t, FinishNothing, caps["finishing_request"])
	require.Equal(t, map[string]any{}, doc["robots"])
	require.Equal(t, 0.02, fleet["recharge_threshold"])
}

func TestCreate_RefusesOverwrite(t *testing.T) {
	s := testStore(t)
	require.NoError(t, s.Create("fleet.yaml", sampleDoc()))
	err := s.Create("fleet.yaml", Document{"rmf_fleet": map[string]any{"name": "other"}})
	require.ErrorIs(t, err, ErrExists)

	doc, err := s.Read("fleet.yaml")
	require.NoError(t, err)
	require.Equal(t, "tinyRobot", doc["rmf_fleet"].(map[string]any)["name"])
}

func TestNewFleetTemplate_Validation(t *testing.T) {
	_, err := NewFleetTemplate(TemplateParams{})
	require.Error(t, err)

	_, err = NewFleetTemplate(TemplateParams{FleetName: "f", FinishingRequest: "dance"})
	require.Error(t, err)

	tmpl, err := NewFleetTemplate(TemplateParams{
		FleetName:        "f",
		FinishingRequest: FinishCharge,
		ActionCategories: []string{"teleop"},
	})
	require.NoError(t, err)
	require.Equal(t, FinishCharge, tmpl.RMFFleet.TaskCapabilities.FinishingRequest)
	require.Equal(t, []string{"teleop"}, tmpl.RMFFleet.TaskCapabilities.ActionCategories)
	require.Len(t, tmpl.ReferenceCoordinates.RMF, 4)
}

func TestAddRemoveRobot(t *testing.T) {
	s := testStore(t)
	require.NoError(t, s.CreateFromTemplate("fleet.yaml", TemplateParams{FleetName: "f", Address: "a"}))

	entry := NewRobotEntry("pantry", 1.57, "charger_1")
	require.NoError(t, s.AddRobot("fleet.yaml", "r1", entry))
	require.ErrorIs(t, s.AddRobot("fleet.yaml", "r1", entry), ErrRobotExists)

	doc, err := s.Read("fleet.yaml")
	require.NoError(t, err)
	r1 := doc["robots"].(map[string]any)["r1"].(map[string]any)
	rmfCfg := r1["rmf_config"].(map[string]any)
	require.Equal(t, 10, rmfCfg["robot_state_update_frequency"])
	require.Equal(t, "pantry", rmfCfg["start"].(map[string]any)["waypoint"])
	require.Equal(t, "L1", rmfCfg["start"].(map[string]any)["map_name"])

	require.NoError(t, s.RemoveRobot("fleet.yaml", "r1"))
	require.ErrorIs(t, s.RemoveRobot("fleet.yaml", "r1"), ErrRobotNotFound)
}

func TestConcurrentAddRobot(t *testing.T) {
	s := testStore(t)
	require.NoError(t, s.CreateFromTemplate("fleet.yaml", TemplateParams{FleetName: "f"}))

	names := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	var wg sync.WaitGroup
	for _, n := range names {
		wg.Add(1)
		go func(n string) {
			defer wg.Done()
			if err := s.AddRobot("fleet.yaml", n, NewRobotEntry("wp", 0, "")); err != nil {
				t.Errorf("AddRobot(%s): %v", n, err)
			}
		}(n)
	}
	wg.Wait()

	doc, err := s.Read("fleet.yaml")
	require.NoError(t, err)
	require.Len(t, doc["robots"].(map[string]any), len(names))
}
