package engine

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"rmfconsole/fleetconfig"
)

var ErrNotPNG = errors.New("only .png map images are accepted")

func (e *Engine) ReadConfig(filename string) (fleetconfig.Document, error) {
	return e.configs.Read(filename)
}

func (e *Engine) WriteConfig(filename string, doc fleetconfig.Document, actor string) error {
	if err := e.configs.Write(filename, doc); err != nil {
		return err
	}
	e.configWritten(filename, "update", actor)
	return nil
}

func (e *Engine) CreateConfig(filename string, doc fleetconfig.Document, actor string) error {
	if err := e.configs.Create(filename, doc); err != nil {
		return err
	}
	e.configWritten(filename, "create", actor)
	return nil
}

func (e *Engine) CreateConfigFromTemplate(filename string, p fleetconfig.TemplateParams, actor string) error {
	if err := e.configs.CreateFromTemplate(filename, p); err != nil {
		return err
	}
	e.configWritten(filename, "create", actor)
	return nil
}

func (e *Engine) AddRobot(filename, name string, entry fleetconfig.RobotEntry, actor string) error {
	if err := e.configs.AddRobot(filename, name, entry); err != nil {
		return err
	}
	e.configWritten(filename, "add_robot", actor)
	return nil
}

func (e *Engine) RemoveRobot(filename, name, actor string) error {
	if err := e.configs.RemoveRobot(filename, name); err != nil {
		return err
	}
	e.configWritten(filename, "remove_robot", actor)
	return nil
}

func (e *Engine) ReadBuilding() (fleetconfig.Document, error) {
	return e.configs.ReadBuilding()
}

// Waypoints lists the named vertices of one building level.
func (e *Engine) Waypoints(level string) ([]fleetconfig.Waypoint, error) {
	building, err := e.configs.ReadBuilding()
	if err != nil {
		return nil, err
	}
	return fleetconfig.Waypoints(building, level)
}

// SaveMapImage stores an uploaded PNG under the image directory, keeping its
// base name, and returns the written path.
func (e *Engine) SaveMapImage(name string, r io.Reader) (string, error) {
	base := filepath.Base(name)
	if !strings.EqualFold(filepath.Ext(base), ".png") || base == "." || base == string(filepath.Separator) {
		return "", ErrNotPNG
	}
	dir := e.cfg.Files.ImageDir
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create image dir: %w", err)
	}
	path := filepath.Join(dir, base)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	e.logFn("engine: saved map image %s", path)
	return path, nil
}

func (e *Engine) configWritten(filename, action, actor string) {
	if filename == "" {
		filename = fleetconfig.DefaultFilename
	}
	e.Events.Emit(Event{Type: EventConfigWritten, Payload: ConfigWrittenEvent{
		Filename: filename,
		Action:   action,
		Actor:    actor,
	}})
}
