// Command eagerlimit renders and runs relation queries limited per parent.
//
//	eagerlimit render --dialect mysql --shape has-many --parent posts --related comments --limit 3 --order 'votes desc' --keys 1,2
//	eagerlimit load --config eagerlimit.yaml --shape morph-many --parent posts --related images --morph imageable --limit 2 --keys 1,2
package main

import (
	"os"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/microsoft/go-mssqldb"
	_ "modernc.org/sqlite"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
