package redis

import (
	"context"
	"errors"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/sharetube/watchroom/internal/repository/room"
)

const dirtyRoomsKey = "queue:dirty"

func (r repo) getQueueKey(roomId int64) string {
	return "room:" + strconv.FormatInt(roomId, 10) + ":queue"
}

func (r repo) getQueueLoadedKey(roomId int64) string {
	return "room:" + strconv.FormatInt(roomId, 10) + ":queue:loaded"
}

func (r repo) getUserVotesKey(roomId, userId int64) string {
	return "room:" + strconv.FormatInt(roomId, 10) + ":votes:" + strconv.FormatInt(userId, 10)
}

func (r repo) getItemVotersKey(roomId, itemId int64) string {
	return "room:" + strconv.FormatInt(roomId, 10) + ":item:" + strconv.FormatInt(itemId, 10) + ":voters"
}

// refreshQueueExpiry extends the ranked set and its loaded marker together so
// an active room is not reseeded while in use.
func (r repo) refreshQueueExpiry(ctx context.Context, roomId int64) {
	pipe := r.rc.Pipeline()
	pipe.Expire(ctx, r.getQueueKey(roomId), r.expireDuration)
	pipe.Expire(ctx, r.getQueueLoadedKey(roomId), r.expireDuration)
	pipe.Exec(ctx)
}

func (r repo) AddQueueItem(ctx context.Context, roomId, itemId int64, score int) error {
	r.logger.DebugContext(ctx, "called", "room_id", roomId, "item_id", itemId, "score", score)
	pipe := r.rc.TxPipeline()

	queueKey := r.getQueueKey(roomId)
	pipe.ZAddNX(ctx, queueKey, redis.Z{Score: float64(score), Member: itemId})
	pipe.Expire(ctx, queueKey, r.expireDuration)
	pipe.Expire(ctx, r.getQueueLoadedKey(roomId), r.expireDuration)

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}

// RemoveQueueItem drops the item from the ranked set and from every voter's set.
func (r repo) RemoveQueueItem(ctx context.Context, roomId, itemId int64) error {
	r.logger.DebugContext(ctx, "called", "room_id", roomId, "item_id", itemId)
	itemVotersKey := r.getItemVotersKey(roomId, itemId)
	voters, err := r.rc.SMembers(ctx, itemVotersKey).Result()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return r.unavailable(err)
	}

	pipe := r.rc.TxPipeline()
	pipe.ZRem(ctx, r.getQueueKey(roomId), itemId)
	pipe.Del(ctx, itemVotersKey)
	for _, userId := range r.parseIds(voters) {
		pipe.SRem(ctx, r.getUserVotesKey(roomId, userId), itemId)
	}

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}

func (r repo) changeScore(ctx context.Context, roomId, itemId int64, delta float64) (int, error) {
	queueKey := r.getQueueKey(roomId)
	score, err := r.rc.ZAddArgsIncr(ctx, queueKey, redis.ZAddArgs{
		XX:      true,
		Members: []redis.Z{{Score: delta, Member: itemId}},
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, room.ErrItemNotQueued
		}
		return 0, r.unavailable(err)
	}

	r.refreshQueueExpiry(ctx, roomId)

	return int(score), nil
}

func (r repo) IncrementVote(ctx context.Context, roomId, itemId int64) (int, error) {
	r.logger.DebugContext(ctx, "called", "room_id", roomId, "item_id", itemId)
	score, err := r.changeScore(ctx, roomId, itemId, 1)
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return 0, err
	}

	return score, nil
}

func (r repo) DecrementVote(ctx context.Context, roomId, itemId int64) (int, error) {
	r.logger.DebugContext(ctx, "called", "room_id", roomId, "item_id", itemId)
	score, err := r.changeScore(ctx, roomId, itemId, -1)
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return 0, err
	}

	return score, nil
}

// ToggleVote flips itemId in the user's vote set and moves the item's score
// by one in the same script, so the score always equals the voter count.
func (r repo) ToggleVote(ctx context.Context, params *room.ToggleVoteParams) (room.ToggleVoteResult, error) {
	r.logger.DebugContext(ctx, "called", "params", params)
	res, err := r.toggleVoteScript.Run(ctx, r.rc,
		[]string{
			r.getUserVotesKey(params.RoomID, params.UserID),
			r.getItemVotersKey(params.RoomID, params.ItemID),
			r.getQueueKey(params.RoomID),
			dirtyRoomsKey,
			r.getQueueLoadedKey(params.RoomID),
		},
		params.ItemID, params.UserID, r.ttlSeconds(), params.RoomID,
	).Int64Slice()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return room.ToggleVoteResult{}, r.unavailable(err)
	}

	if len(res) != 2 || res[0] < 0 {
		r.logger.DebugContext(ctx, "returned", "error", room.ErrItemNotQueued)
		return room.ToggleVoteResult{}, room.ErrItemNotQueued
	}

	return room.ToggleVoteResult{Added: res[0] == 1, Votes: int(res[1])}, nil
}

func (r repo) HasVoted(ctx context.Context, roomId, itemId, userId int64) (bool, error) {
	r.logger.DebugContext(ctx, "called", "room_id", roomId, "item_id", itemId, "user_id", userId)
	voted, err := r.rc.SIsMember(ctx, r.getUserVotesKey(roomId, userId), itemId).Result()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return false, r.unavailable(err)
	}

	return voted, nil
}

func (r repo) IsQueueLoaded(ctx context.Context, roomId int64) (bool, error) {
	n, err := r.rc.Exists(ctx, r.getQueueLoadedKey(roomId)).Result()
	if err != nil {
		return false, r.unavailable(err)
	}

	return n > 0, nil
}

// GetRankedItems returns the ranked set by descending score.
func (r repo) GetRankedItems(ctx context.Context, roomId int64) ([]room.RankedItem, error) {
	r.logger.DebugContext(ctx, "called", "room_id", roomId)
	queueKey := r.getQueueKey(roomId)
	zs, err := r.rc.ZRevRangeWithScores(ctx, queueKey, 0, -1).Result()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return nil, r.unavailable(err)
	}

	items := make([]room.RankedItem, 0, len(zs))
	for _, z := range zs {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		itemId, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			continue
		}
		items = append(items, room.RankedItem{ItemID: itemId, Votes: int(z.Score)})
	}

	r.refreshQueueExpiry(ctx, roomId)

	return items, nil
}

// SeedQueue writes the ranked set and voter sets from durable rows unless
// another caller already did. Reports whether this call wrote them.
func (r repo) SeedQueue(ctx context.Context, params *room.SeedQueueParams) (bool, error) {
	r.logger.DebugContext(ctx, "called", "room_id", params.RoomID, "items", len(params.Items))
	loadedKey := r.getQueueLoadedKey(params.RoomID)
	seeded := false

	err := r.rc.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, loadedKey).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			queueKey := r.getQueueKey(params.RoomID)
			pipe.Del(ctx, queueKey)
			for _, item := range params.Items {
				pipe.ZAdd(ctx, queueKey, redis.Z{Score: float64(len(item.Voters)), Member: item.ItemID})

				itemVotersKey := r.getItemVotersKey(params.RoomID, item.ItemID)
				pipe.Del(ctx, itemVotersKey)
				for _, userId := range item.Voters {
					pipe.SAdd(ctx, itemVotersKey, userId)
					userVotesKey := r.getUserVotesKey(params.RoomID, userId)
					pipe.SAdd(ctx, userVotesKey, item.ItemID)
					pipe.Expire(ctx, userVotesKey, r.expireDuration)
				}
				pipe.Expire(ctx, itemVotersKey, r.expireDuration)
			}
			pipe.Expire(ctx, queueKey, r.expireDuration)
			pipe.Set(ctx, loadedKey, "1", r.expireDuration)
			return nil
		})
		if err == nil {
			seeded = true
		}
		return err
	}, loadedKey)
	if err != nil {
		if errors.Is(err, redis.TxFailedErr) {
			return false, nil
		}
		r.logger.DebugContext(ctx, "returned", "error", err)
		return false, r.unavailable(err)
	}

	return seeded, nil
}

// GetQueueVoters maps every ranked item to the users currently voting for it.
func (r repo) GetQueueVoters(ctx context.Context, roomId int64) (map[int64][]int64, error) {
	r.logger.DebugContext(ctx, "called", "room_id", roomId)
	members, err := r.rc.ZRange(ctx, r.getQueueKey(roomId), 0, -1).Result()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return nil, r.unavailable(err)
	}

	itemIds := r.parseIds(members)
	pipe := r.rc.Pipeline()
	cmds := make([]*redis.StringSliceCmd, len(itemIds))
	for i, itemId := range itemIds {
		cmds[i] = pipe.SMembers(ctx, r.getItemVotersKey(roomId, itemId))
	}

	if len(itemIds) > 0 {
		if err := r.executePipe(ctx, pipe); err != nil {
			r.logger.DebugContext(ctx, "returned", "error", err)
			return nil, err
		}
	}

	voters := make(map[int64][]int64, len(itemIds))
	for i, itemId := range itemIds {
		voters[itemId] = r.parseIds(cmds[i].Val())
	}

	return voters, nil
}

// RepairScores sets each score to the size of the item's voter set.
func (r repo) RepairScores(ctx context.Context, roomId int64, voters map[int64][]int64) error {
	r.logger.DebugContext(ctx, "called", "room_id", roomId)
	if len(voters) == 0 {
		return nil
	}

	pipe := r.rc.TxPipeline()
	queueKey := r.getQueueKey(roomId)
	for itemId, users := range voters {
		pipe.ZAddXX(ctx, queueKey, redis.Z{Score: float64(len(users)), Member: itemId})
	}

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}

func (r repo) PopDirtyRooms(ctx context.Context, count int) ([]int64, error) {
	members, err := r.rc.SPopN(ctx, dirtyRoomsKey, int64(count)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, r.unavailable(err)
	}

	return r.parseIds(members), nil
}

func (r repo) MarkRoomDirty(ctx context.Context, roomId int64) error {
	if err := r.rc.SAdd(ctx, dirtyRoomsKey, roomId).Err(); err != nil {
		return r.unavailable(err)
	}

	return nil
}

// RemoveQueue deletes the ranked set, the loaded marker and every vote set of the room.
func (r repo) RemoveQueue(ctx context.Context, roomId int64) error {
	r.logger.DebugContext(ctx, "called", "room_id", roomId)
	voters, err := r.GetQueueVoters(ctx, roomId)
	if err != nil {
		return err
	}

	keys := []string{r.getQueueKey(roomId), r.getQueueLoadedKey(roomId)}
	users := make(map[int64]struct{})
	for itemId, itemVoters := range voters {
		keys = append(keys, r.getItemVotersKey(roomId, itemId))
		for _, userId := range itemVoters {
			users[userId] = struct{}{}
		}
	}
	for userId := range users {
		keys = append(keys, r.getUserVotesKey(roomId, userId))
	}

	pipe := r.rc.TxPipeline()
	pipe.Del(ctx, keys...)
	pipe.SRem(ctx, dirtyRoomsKey, roomId)

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}
