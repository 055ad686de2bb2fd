package config

import (
	"fmt"
	"log"
	"strconv"

	"github.com/joho/godotenv"
)

// LoadEnv loads .env files into the process environment. Variables already
// set are not overridden. Missing files are skipped.
func LoadEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err == nil {
			log.Printf("config: loaded environment from %s", f)
		}
	}
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides file settings with the recognised environment variables.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Web.Port = port
	}
	str("CLIENT_URL", &c.Web.ClientURL)
	str("RMF_URL", &c.RMF.URL)
	str("API_SERVER", &c.RMF.APIServer)
	str("CONFIG_DIR", &c.Files.ConfigDir)
	str("BUILDING_DIR", &c.Files.BuildingDir)
	str("BUILDING_FILENAME", &c.Files.BuildingFilename)
	str("IMG_DIR", &c.Files.ImageDir)
	str("SOURCE_DIR", &c.Processes.SourceDir)
	str("ROS_COMMAD", &c.Processes.ROSCommand)
	str("ROS_COMMAD2", &c.Processes.ROSCommand2)
	str("CWD", &c.Processes.WorkDir)
	if v, ok := lookup("DB_NAME"); ok && v != "" {
		c.Database.SQLite.Path = v
		c.Database.Postgres.Database = v
	}
	return nil
}
