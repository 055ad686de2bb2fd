package fleetconfig

import (
	"errors"
	"fmt"
)

// ErrInvalidTemplate is returned for template parameters that cannot build a fleet config.
var ErrInvalidTemplate = errors.New("invalid fleet template")

// Finishing requests a fleet can perform when a task completes.
const (
	FinishPark    = "park"
	FinishCharge  = "charge"
	FinishNothing = "nothing"
)

// TemplateParams fills in a new fleet config.
type TemplateParams struct {
	FleetName        string   `json:"fleet_name"`
	Address          string   `json:"address"`
	FinishingRequest string   `json:"finishing_request"`
	ActionCategories []string `json:"action_categories"`
}

type FleetTemplate struct {
	RMFFleet             FleetSection         `yaml:"rmf_fleet"`
	Robots               map[string]any       `yaml:"robots"`
	ReferenceCoordinates ReferenceCoordinates `yaml:"reference_coordinates"`
}

type FleetSection struct {
	Name                   string           `yaml:"name"`
	FleetManager           FleetManager     `yaml:"fleet_manager"`
	Limits                 Limits           `yaml:"limits"`
	Profile                Profile          `yaml:"profile"`
	Reversible             bool             `yaml:"reversible"`
	BatterySystem          BatterySystem    `yaml:"battery_system"`
	MechanicalSystem       MechanicalSystem `yaml:"mechanical_system"`
	AmbientSystem          PowerSystem      `yaml:"ambient_system"`
	ToolSystem             PowerSystem      `yaml:"tool_system"`
	RechargeThreshold      float64          `yaml:"recharge_threshold"`
	RechargeSOC            float64          `yaml:"recharge_soc"`
	PublishFleetState      bool             `yaml:"publish_fleet_state"`
	AccountForBatteryDrain bool             `yaml:"account_for_battery_drain"`
	TaskCapabilities       TaskCapabilities `yaml:"task_capabilities"`
}

type FleetManager struct {
	Prefix   string `yaml:"prefix"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

type Limits struct {
	Linear  [2]float64 `yaml:"linear,flow"`
	Angular [2]float64 `yaml:"angular,flow"`
}

type Profile struct {
	Footprint float64 `yaml:"footprint"`
	Vicinity  float64 `yaml:"vicinity"`
}

type BatterySystem struct {
	Voltage         float64 `yaml:"voltage"`
	Capacity        float64 `yaml:"capacity"`
	ChargingCurrent float64 `yaml:"charging_current"`
}

type MechanicalSystem struct {
	Mass                float64 `yaml:"mass"`
	MomentOfInertia     float64 `yaml:"moment_of_inertia"`
	FrictionCoefficient float64 `yaml:"friction_coefficient"`
}

type PowerSystem struct {
	Power float64 `yaml:"power"`
}

type TaskCapabilities struct {
	Loop             bool     `yaml:"loop"`
	Delivery         bool     `yaml:"delivery"`
	Clean            bool     `yaml:"clean"`
	FinishingRequest string   `yaml:"finishing_request"`
	ActionCategories []string `yaml:"action_categories"`
}

type ReferenceCoordinates struct {
	RMF   [][2]float64 `yaml:"rmf"`
	Robot [][2]float64 `yaml:"robot"`
}

// RobotEntry is one robot under a fleet config's robots mapping.
type RobotEntry struct {
	RobotConfig RobotConfig    `yaml:"robot_config" json:"robot_config"`
	RMFConfig   RobotRMFConfig `yaml:"rmf_config" json:"rmf_config"`
}

type RobotConfig struct {
	MaxDelay float64 `yaml:"max_delay" json:"max_delay"`
}

type RobotRMFConfig struct {
	RobotStateUpdateFrequency float64      `yaml:"robot_state_update_frequency" json:"robot_state_update_frequency"`
	Start                     RobotStart   `yaml:"start" json:"start"`
	Charger                   RobotCharger `yaml:"charger" json:"charger"`
}

type RobotStart struct {
	MapName     string  `yaml:"map_name" json:"map_name"`
	Waypoint    string  `yaml:"waypoint" json:"waypoint"`
	Orientation float64 `yaml:"orientation" json:"orientation"`
}

type RobotCharger struct {
	Waypoint string `yaml:"waypoint" json:"waypoint"`
}

// NewRobotEntry returns an entry with the console's defaults: 15s max delay,
// 10Hz state updates, starting on map L1.
func NewRobotEntry(waypoint string, orientation float64, charger string) RobotEntry {
	return RobotEntry{
		RobotConfig: RobotConfig{MaxDelay: 15},
		RMFConfig: RobotRMFConfig{
			RobotStateUpdateFrequency: 10,
			Start: RobotStart{
				MapName:     "L1",
				Waypoint:    waypoint,
				Orientation: orientation,
			},
			Charger: RobotCharger{Waypoint: charger},
		},
	}
}

// NewFleetTemplate builds the default fleet config for a new fleet.
func NewFleetTemplate(p TemplateParams) (*FleetTemplate, error) {
	if p.FleetName == "" {
		return nil, fmt.Errorf("%w: fleet name is required", ErrInvalidTemplate)
	}
	finishing := p.FinishingRequest
	switch finishing {
	case "":
		finishing = FinishNothing
	case FinishPark, FinishCharge, FinishNothing:
	default:
		return nil, fmt.Errorf("%w: unknown finishing request %q", ErrInvalidTemplate, finishing)
	}
	categories := p.ActionCategories
	if categories == nil {
		categories = []string{}
	}
	ref := [][2]float64{{0, 0}, {1, 1}, {2, 2}, {3, 3}}

	return &FleetTemplate{
		RMFFleet: FleetSection{
			Name: p.FleetName,
			FleetManager: FleetManager{
				Prefix:   p.Address,
				User:     "some_user",
				Password: "some_password",
			},
			Limits:                 Limits{Linear: [2]float64{0.5, 2.5}, Angular: [2]float64{0.7, 3.2}},
			Profile:                Profile{Footprint: 0.5, Vicinity: 0.6},
			Reversible:             true,
			BatterySystem:          BatterySystem{Voltage: 24.0, Capacity: 60.0, ChargingCurrent: 60.0},
			MechanicalSystem:       MechanicalSystem{Mass: 80.0, MomentOfInertia: 20.0, FrictionCoefficient: 0.2},
			AmbientSystem:          PowerSystem{Power: 20.0},
			ToolSystem:             PowerSystem{Power: 760.0},
			RechargeThreshold:      0.02,
			RechargeSOC:            1.0,
			PublishFleetState:      true,
			AccountForBatteryDrain: true,
			TaskCapabilities: TaskCapabilities{
				Loop:             true,
				Delivery:         true,
				Clean:            true,
				FinishingRequest: finishing,
				ActionCategories: categories,
			},
		},
		Robots: map[string]any{},
		ReferenceCoordinates: ReferenceCoordinates{
			RMF:   ref,
			Robot: ref,
		},
	}, nil
}
