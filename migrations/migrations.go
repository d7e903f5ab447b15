// Package migrations embeds the SQL schema so tools and tests apply the same
// files operators run.
package migrations

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

//go:embed *.sql
var files embed.FS

// Script is one migration file
type Script struct {
	Name string
	SQL  string
}

// Up returns the forward migrations in version order
func Up() ([]Script, error) {
	return load(".up.sql", false)
}

// Down returns the rollback migrations, newest first
func Down() ([]Script, error) {
	return load(".down.sql", true)
}

func load(suffix string, reverse bool) ([]Script, error) {
	names, err := fs.Glob(files, "*"+suffix)
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	if reverse {
		sort.Sort(sort.Reverse(sort.StringSlice(names)))
	}

	scripts := make([]Script, 0, len(names))
	for _, name := range names {
		data, err := files.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		scripts = append(scripts, Script{Name: strings.TrimSuffix(name, suffix), SQL: string(data)})
	}
	return scripts, nil
}
