// Package health provides liveness and readiness HTTP handlers.
//
// [LivenessHandler] always answers OK while the process runs.
// [ReadinessHandler] runs named [Checks] concurrently and answers 503 when any
// of them fails:
//
//	r.Get("/health/live", health.LivenessHandler())
//	r.Get("/health/ready", health.ReadinessHandler(health.Checks{
//	    "database": orm.Healthcheck(conn),
//	    "redis":    redis.Healthcheck(client),
//	}, health.WithTimeout(3*time.Second)))
//
// Responses are plain text ("OK" / "Service Unavailable") unless the client
// sends Accept: application/json or ?format=json:
//
//	{
//	  "status": "unhealthy",
//	  "checks": {
//	    "database": {"status": "healthy", "duration": "412µs"},
//	    "redis": {"status": "unhealthy", "error": "connection refused", "duration": "1.2ms"}
//	  }
//	}
package health
