// Package store persists the named-script library used by NPP_EXEC and
// the run history of finished engines.
package store

import (
	"context"
	"sort"
	"strings"
	"time"

	mdwerror "github.com/msto63/mExec/foundation/core/error"
	"github.com/msto63/mExec/pkg/core/config"
)

// ScriptInfo describes a stored script
type ScriptInfo struct {
	Name    string    `json:"name" yaml:"name"`
	Lines   int       `json:"lines" yaml:"lines"`
	Updated time.Time `json:"updated" yaml:"updated"`
}

// ScriptStore defines the interface for script library persistence.
// Names are case-insensitive.
type ScriptStore interface {
	Script(ctx context.Context, name string) ([]string, error)
	List(ctx context.Context) ([]ScriptInfo, error)
	Save(ctx context.Context, name string, lines []string) error
	Delete(ctx context.Context, name string) error
	Close() error
}

// OpenScripts opens the script library selected by cfg.Type
func OpenScripts(cfg config.StoreConfig) (ScriptStore, error) {
	switch strings.ToLower(cfg.Type) {
	case "", "yaml":
		return NewYAMLScriptStore(cfg.Path)
	case "sqlite":
		return NewSQLiteScriptStore(SQLiteConfig{Path: cfg.Path})
	default:
		return nil, mdwerror.New("unknown script store type: " + cfg.Type).
			WithCode(mdwerror.CodeInvalidConfig).
			WithOperation("store.OpenScripts")
	}
}

func validName(name string) error {
	if strings.TrimSpace(name) == "" || strings.ContainsAny(name, " \t\r\n") {
		return mdwerror.New("invalid script name: " + name).
			WithCode(mdwerror.CodeInvalidInput).
			WithOperation("store.validName")
	}
	return nil
}

func notFound(name string) error {
	return mdwerror.New("script not found: "+name).
		WithCode(mdwerror.CodeNotFound).
		WithOperation("store.Script").
		WithDetail("script", name)
}

func dbError(err error, msg string) error {
	return mdwerror.Wrap(err, msg).
		WithCode(mdwerror.CodeDatabaseError).
		WithOperation("store")
}

func sortInfos(infos []ScriptInfo) {
	sort.Slice(infos, func(i, j int) bool {
		return strings.ToLower(infos[i].Name) < strings.ToLower(infos[j].Name)
	})
}
