package redis

import (
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

type repo struct {
	rc                *redis.Client
	logger            *slog.Logger
	expireDuration    time.Duration
	updateStateScript *redis.Script
	createStateScript *redis.Script
	toggleVoteScript  *redis.Script
}

func NewRepo(rc *redis.Client, logger *slog.Logger, expireDuration time.Duration) *repo {
	return &repo{
		rc:             rc,
		logger:         logger,
		expireDuration: expireDuration,
		// ARGV: ttl, room id, now, then field/value pairs to overwrite.
		updateStateScript: redis.NewScript(`
			local key = KEYS[1]
			if redis.call('EXISTS', key) == 0 then
				redis.call('HSET', key,
					'room_id', ARGV[2],
					'current_video_id', '',
					'playback_position', '0',
					'is_playing', '0')
			end
			for i = 4, #ARGV, 2 do
				redis.call('HSET', key, ARGV[i], ARGV[i + 1])
			end
			redis.call('HSET', key, 'last_sync', ARGV[3])
			redis.call('EXPIRE', key, tonumber(ARGV[1]))
			return redis.call('HGETALL', key)
		`),
		// ARGV: ttl, then field/value pairs used only when the key is absent.
		createStateScript: redis.NewScript(`
			local key = KEYS[1]
			if redis.call('EXISTS', key) == 0 then
				for i = 2, #ARGV, 2 do
					redis.call('HSET', key, ARGV[i], ARGV[i + 1])
				end
			end
			redis.call('EXPIRE', key, tonumber(ARGV[1]))
			return redis.call('HGETALL', key)
		`),
		// KEYS: user votes set, item voters set, ranked set, dirty rooms set, loaded marker.
		// ARGV: item id, user id, ttl, room id.
		// Returns {1, score} when the vote was added, {0, score} when removed,
		// {-1, 0} when the item is not queued.
		toggleVoteScript: redis.NewScript(`
			if redis.call('ZSCORE', KEYS[3], ARGV[1]) == false then
				return {-1, 0}
			end
			local added = 0
			local delta = -1
			if redis.call('SISMEMBER', KEYS[1], ARGV[1]) == 1 then
				redis.call('SREM', KEYS[1], ARGV[1])
				redis.call('SREM', KEYS[2], ARGV[2])
			else
				redis.call('SADD', KEYS[1], ARGV[1])
				redis.call('SADD', KEYS[2], ARGV[2])
				added = 1
				delta = 1
			end
			local score = redis.call('ZINCRBY', KEYS[3], delta, ARGV[1])
			local ttl = tonumber(ARGV[3])
			redis.call('EXPIRE', KEYS[1], ttl)
			redis.call('EXPIRE', KEYS[2], ttl)
			redis.call('EXPIRE', KEYS[3], ttl)
			redis.call('EXPIRE', KEYS[5], ttl)
			redis.call('SADD', KEYS[4], ARGV[4])
			return {added, tonumber(score)}
		`),
	}
}
