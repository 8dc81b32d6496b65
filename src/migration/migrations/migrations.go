package migrations

import (
	"git.handmade.network/hmn/pgdsl/src/migration/types"
)

var All = make(map[types.MigrationVersion]types.Migration)

func registerMigration(m types.Migration) {
	if _, exists := All[m.Version()]; exists {
		panic("two migrations with version " + m.Version().String())
	}
	All[m.Version()] = m
}
