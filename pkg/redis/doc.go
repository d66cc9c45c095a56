// Package redis opens go-redis clients with pooling defaults and a startup
// retry, and exposes healthcheck and shutdown hooks for the application.
//
//	client, err := redis.Open(ctx, cfg.Redis.URL, cfg.Redis.Options()...)
//	if err != nil {
//	    return err
//	}
//	app := valkyrja.New(
//	    valkyrja.WithHealthChecks(valkyrja.WithReadinessCheck("redis", redis.Healthcheck(client))),
//	)
//	err = app.Run(":8080", valkyrja.ShutdownHook(redis.Shutdown(client)))
//
// The client backs the Redis cache adapter in pkg/cache, and through it the
// cache session store.
package redis
