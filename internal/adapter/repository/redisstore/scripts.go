package redisstore

import "github.com/redis/go-redis/v9"

var (
	// enterQueueScript inserts a user unless the queue is full.
	// KEYS[1]: queue:{s}  KEYS[2]: active-schedules
	// ARGV[1]: user id  ARGV[2]: score (ms)  ARGV[3]: max size  ARGV[4]: schedule id
	// Returns: 1 inserted, 2 already queued, 0 full
	enterQueueScript = redis.NewScript(`
		if redis.call('ZSCORE', KEYS[1], ARGV[1]) then
			return 2
		end
		if redis.call('ZCARD', KEYS[1]) >= tonumber(ARGV[3]) then
			return 0
		end
		redis.call('ZADD', KEYS[1], ARGV[2], ARGV[1])
		redis.call('SADD', KEYS[2], ARGV[4])
		return 1
	`)

	// admitScript moves up to min(batch, max-active) users from the front of
	// the queue into the active set after evicting members that stopped
	// sending heartbeats.
	// KEYS[1]: queue:{s}  KEYS[2]: active:{s}
	// ARGV[1]: now (ms)  ARGV[2]: exclusive eviction bound "(ms"
	// ARGV[3]: batch size  ARGV[4]: max active
	// Returns: {activeCount, queueSize, admitted...}
	admitScript = redis.NewScript(`
		redis.call('ZREMRANGEBYSCORE', KEYS[2], '-inf', ARGV[2])
		local active = redis.call('ZCARD', KEYS[2])
		local n = math.min(tonumber(ARGV[4]) - active, tonumber(ARGV[3]))
		local admitted = {}
		if n > 0 then
			local members = redis.call('ZRANGE', KEYS[1], 0, n - 1)
			for _, m in ipairs(members) do
				redis.call('ZREM', KEYS[1], m)
				redis.call('ZADD', KEYS[2], ARGV[1], m)
				table.insert(admitted, m)
			end
			active = active + #members
		end
		local result = {active, redis.call('ZCARD', KEYS[1])}
		for _, m in ipairs(admitted) do
			table.insert(result, m)
		end
		return result
	`)

	// removeStaleScript drops queued users whose heartbeat key is gone.
	// KEYS[1]: queue:{s}
	// ARGV[1]: heartbeat key prefix "heartbeat:{s}:"
	removeStaleScript = redis.NewScript(`
		local members = redis.call('ZRANGE', KEYS[1], 0, -1)
		local removed = {}
		for _, m in ipairs(members) do
			if redis.call('EXISTS', ARGV[1] .. m) == 0 then
				redis.call('ZREM', KEYS[1], m)
				table.insert(removed, m)
			end
		end
		return removed
	`)

	// reserveStockScript takes ARGV[1] units from a per-grade stock counter
	// only when that many are left. A missing counter counts as empty.
	// KEYS[1]: stock:{s}:{grade}
	// Returns: units left, or -1 when the counter cannot cover the request
	reserveStockScript = redis.NewScript(`
		local left = tonumber(redis.call('GET', KEYS[1]) or '-1')
		local n = tonumber(ARGV[1])
		if left < n then
			return -1
		end
		return redis.call('DECRBY', KEYS[1], n)
	`)

	// compareAndDeleteScript deletes KEYS[1] only while it still holds ARGV[1].
	compareAndDeleteScript = redis.NewScript(`
		if redis.call('GET', KEYS[1]) == ARGV[1] then
			return redis.call('DEL', KEYS[1])
		end
		return 0
	`)
)
