// Package all registra todos los adapters de almacenamiento disponibles.
//
//	import _ "github.com/dropDatabas3/docstore/internal/store/adapters/all"
package all

import (
	_ "github.com/dropDatabas3/docstore/internal/store/adapters/jetstream"
	_ "github.com/dropDatabas3/docstore/internal/store/adapters/memory"
	_ "github.com/dropDatabas3/docstore/internal/store/adapters/pg"
	_ "github.com/dropDatabas3/docstore/internal/store/adapters/raft"
	_ "github.com/dropDatabas3/docstore/internal/store/adapters/redis"
)
