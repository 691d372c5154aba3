package main

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"aerial/internal/api"
	"aerial/internal/config"
	"aerial/internal/queue"
)

type commandContext struct {
	addrFlag   *string
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(addrFlag, configFlag *string) *commandContext {
	return &commandContext{
		addrFlag:   addrFlag,
		configFlag: configFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// apiAddr resolves the daemon API address from the flag or configuration.
func (c *commandContext) apiAddr() string {
	if c.addrFlag != nil {
		if addr := strings.TrimSpace(*c.addrFlag); addr != "" {
			return addr
		}
	}
	if cfg := c.configValue(); cfg != nil {
		return cfg.Paths.APIBind
	}
	return ""
}

// onlineClient returns a client only when a daemon answers at the API
// address. Commands use it to prefer the daemon and fall back to direct
// database access when it is down.
func (c *commandContext) onlineClient(ctx context.Context) *api.Client {
	client := api.NewClient(c.apiAddr())
	if !client.Available() {
		return nil
	}
	probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if _, err := client.Status(probeCtx); err != nil {
		return nil
	}
	return client
}

// withStore opens the run database directly. Used when no daemon is running.
func (c *commandContext) withStore(fn func(*queue.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := queue.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

// withRuns invokes fn with a live API client when the daemon is reachable,
// otherwise with a direct store handle. Exactly one of the two is non-nil.
func (c *commandContext) withRuns(ctx context.Context, fn func(client *api.Client, store *queue.Store) error) error {
	if client := c.onlineClient(ctx); client != nil {
		return fn(client, nil)
	}
	return c.withStore(func(store *queue.Store) error {
		return fn(nil, store)
	})
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
