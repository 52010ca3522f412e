// Package redisstore implements cache.Repository on Redis using go-redis.
//
//	client, err := redisstore.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	pool := cache.NewPool(redisstore.NewStoreWithConfig(client, cfg))
package redisstore
