package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/contre95/song-classifier/src/features/config"
	"github.com/contre95/song-classifier/src/features/logging"
	"github.com/contre95/song-classifier/src/infra/database"
)

type commandContext struct {
	configDirFlag *string
	verboseFlag   *bool

	configOnce sync.Once
	manager    *config.Manager
	configErr  error
}

func newCommandContext(configDirFlag *string, verboseFlag *bool) *commandContext {
	return &commandContext{
		configDirFlag: configDirFlag,
		verboseFlag:   verboseFlag,
	}
}

// ensureConfig loads config.json once and installs the process logger.
func (c *commandContext) ensureConfig() (*config.Manager, error) {
	c.configOnce.Do(func() {
		var dir string
		if c.configDirFlag != nil {
			dir = strings.TrimSpace(*c.configDirFlag)
		}
		manager, err := config.Load(dir)
		if err != nil {
			c.configErr = err
			return
		}
		slog.SetDefault(logging.SetupLogger(manager, c.verbose()))
		c.manager = manager
	})
	return c.manager, c.configErr
}

func (c *commandContext) verbose() bool {
	return c.verboseFlag != nil && *c.verboseFlag
}

// library opens the record store in the configuration directory.
func (c *commandContext) library() (*database.CSVLibrary, error) {
	manager, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return database.NewCSVLibrary(manager.MetadataFile(), manager.AlbumsFile(), nil), nil
}
