// Package cache provides a cache item pool with deferred writes.
//
// A Pool wraps a Repository (MemoryStore here, Redis in redisstore, SQL in
// bunstore) and adds key validation, TTL handling and deferred writes:
//
//	pool := cache.NewPool(store)
//	defer pool.Close() // commits staged items
//
//	item, err := pool.GetItem(ctx, "auth0_jwt_myaudience")
//	if err != nil {
//		return err // cache.ErrInvalidKey
//	}
//	if !item.IsHit() {
//		item.Set(token).ExpiresAfter(50 * time.Second)
//		pool.SaveDeferred(item)
//	}
//
// Keys may not contain any of {}()/\@: characters.
package cache
