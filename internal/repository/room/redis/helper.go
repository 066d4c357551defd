package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/sharetube/watchroom/internal/repository/room"
)

func (r repo) executePipe(ctx context.Context, pipe redis.Pipeliner) error {
	cmds, err := pipe.Exec(ctx)
	if err != nil {
		for _, cmd := range cmds {
			if err := cmd.Err(); err != nil && !errors.Is(err, redis.Nil) {
				return r.unavailable(err)
			}
		}

		if errors.Is(err, redis.Nil) {
			return nil
		}

		return r.unavailable(err)
	}

	return nil
}

func (r repo) unavailable(err error) error {
	return fmt.Errorf("%w: %w", room.ErrCacheUnavailable, err)
}

func (r repo) ttlSeconds() int64 {
	return int64(r.expireDuration.Seconds())
}

func (r repo) fieldToBool(field string) bool {
	return field == "1"
}

func (r repo) fieldToInt64(field string) int64 {
	i, _ := strconv.ParseInt(field, 10, 64)
	return i
}

func (r repo) fieldToFloat64(field string) float64 {
	f, _ := strconv.ParseFloat(field, 64)
	return f
}

func (r repo) boolToField(b bool) string {
	if b {
		return "1"
	}

	return "0"
}

func (r repo) valueToField(value any) string {
	switch v := value.(type) {
	case bool:
		return r.boolToField(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func (r repo) pairsToMap(pairs []string) map[string]string {
	fields := make(map[string]string, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		fields[pairs[i]] = pairs[i+1]
	}

	return fields
}

func (r repo) parseIds(members []string) []int64 {
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}

	return ids
}
