// Package db opens PostgreSQL connection pools with pgx for services that
// talk to Postgres directly rather than through pkg/orm.
//
//	pool, err := db.Connect(ctx, cfg.Database)
//	if err != nil {
//	    return err
//	}
//	app := valkyrja.New(
//	    valkyrja.WithHealthChecks(valkyrja.WithReadinessCheck("postgres", db.Healthcheck(pool))),
//	)
//	err = app.Run(":8080", valkyrja.ShutdownHook(db.Shutdown(pool)))
//
//	err = db.WithTx(ctx, pool, func(tx pgx.Tx) error {
//	    _, err := tx.Exec(ctx, "UPDATE accounts SET balance = balance - $1 WHERE id = $2", amount, id)
//	    return err
//	})
//
// The same pool can back the ORM through orm.FromPool, which also runs goose
// migrations against it.
package db
