// Package session defines the Session type and the stores that persist it.
//
// A Store is chosen by configuration:
//
//	null    NullStore, never finds a session
//	memory  MemoryStore, process-local
//	cache   CacheStore over any cache.Cache[[]byte], Redis in production
//	cookie  CookieStore, the encrypted session is the cookie value
//	log     LogStore, logs calls against a NullStore
//	sql     SQLStore, a table managed through pkg/orm
//
// Example:
//
//	store, err := session.Open(cfg.Session, session.Backends{
//	    Cache:  redisCache,
//	    Cipher: cookies,
//	    DB:     db,
//	    Logger: logger,
//	})
//
// Stores serialize values as JSON, so numbers read back as float64; Value
// converts them to the requested type.
package session
