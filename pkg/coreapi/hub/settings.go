package hub

import (
	"fmt"

	"github.com/randalmurphal/coreapi/pkg/coreapi/config"
	"github.com/randalmurphal/coreapi/pkg/coreapi/journal"
)

// Settings keys recognized by ConfigFrom.
//
//	strict_signatures: bool     require arity declarations on signed channels
//	max_listeners:     int      per-channel listener limit, 0 = unlimited
//	journal:           string   failure journal backend: "" (disabled),
//	                            "memory", or a SQLite path (":memory:" works)
//	journal_max_size:  int      retained records for the memory backend
const (
	settingStrictSignatures = "strict_signatures"
	settingMaxListeners     = "max_listeners"
	settingJournal          = "journal"
	settingJournalMaxSize   = "journal_max_size"
)

// ConfigFrom builds a hub Config from loaded configuration.
//
//	cfg, err := config.FromFile("coreapi.yaml")
//	...
//	hubCfg, err := hub.ConfigFrom(cfg.Sub("hub"))
//	...
//	hub.SetDefault(hub.New(hubCfg))
func ConfigFrom(cfg config.Config) (Config, error) {
	out := Config{
		StrictSignatures: cfg.Bool(settingStrictSignatures, false),
		MaxListeners:     cfg.Int(settingMaxListeners, 0),
	}

	switch backend := cfg.String(settingJournal, ""); backend {
	case "":
		// journal disabled
	case "memory":
		out.Journal = journal.NewMemoryStore(journal.MemoryStoreConfig{
			MaxSize: cfg.Int(settingJournalMaxSize, 0),
		})
	default:
		store, err := journal.NewSQLiteStore(backend)
		if err != nil {
			return Config{}, fmt.Errorf("open failure journal %q: %w", backend, err)
		}
		out.Journal = store
	}

	return out, nil
}
