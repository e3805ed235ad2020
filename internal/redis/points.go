package redis

import (
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const pointsTTL = 6 * time.Hour

// PointsCache mirrors inviter point totals in Redis: one hash per guild for
// O(1) member reads, plus a sorted set so the leaderboard can be served hot.
// Both structures are write-through copies of the Postgres ledger and can be
// dropped at any time; the next read repopulates from the database.
type PointsCache struct {
	client *Client
}

func NewPointsCache(client *Client) *PointsCache {
	return &PointsCache{client: client}
}

func pointsKey(guildID string) string { return "points:" + guildID }
func boardKey(guildID string) string  { return "points:lb:" + guildID }

func (p *PointsCache) GetPoints(guildID, userID string) (int64, bool) {
	raw, err := p.client.HGet(pointsKey(guildID), userID)
	if err != nil {
		return 0, false
	}
	points, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return points, true
}

func (p *PointsCache) SetPoints(guildID, userID string, points int64) {
	// Hash cell and leaderboard member move together; pipelined so a partial
	// write window stays as small as one round-trip.
	_ = p.client.ExecutePipeline(func(pipe goredis.Pipeliner) error {
		pipe.HSet(ctx, pointsKey(guildID), userID, points)
		pipe.ZAdd(ctx, boardKey(guildID), goredis.Z{Score: float64(points), Member: userID})
		pipe.Expire(ctx, pointsKey(guildID), pointsTTL)
		pipe.Expire(ctx, boardKey(guildID), pointsTTL)
		return nil
	})
}

func (p *PointsCache) InvalidateGuild(guildID string) error {
	return p.client.Del(pointsKey(guildID), boardKey(guildID))
}

// TopScores reads the mirrored leaderboard. Callers fall back to the
// database when the mirror is cold or shorter than requested.
func (p *PointsCache) TopScores(guildID string, n int) (map[string]int64, error) {
	entries, err := p.client.ZRevRangeWithScores(boardKey(guildID), 0, int64(n-1))
	if err != nil {
		return nil, err
	}
	scores := make(map[string]int64, len(entries))
	for _, z := range entries {
		if member, ok := z.Member.(string); ok {
			scores[member] = int64(z.Score)
		}
	}
	return scores, nil
}
