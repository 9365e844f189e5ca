package repository

import (
	"fmt"
	"strconv"
)

// 键值存储中的键布局
const (
	usersIndexKey = "users"  // email -> uid
	emailsKey     = "emails" // 已注册邮箱
	uidsKey       = "uids"   // 有效uid
	tidsKey       = "tids"   // 存活的推文id

	uidCounterKey = "uid"
	tidCounterKey = "tid"
	iidCounterKey = "iid"
)

func userKey(uid int64) string {
	return fmt.Sprintf("users:%d", uid)
}

func followingKey(uid int64) string {
	return fmt.Sprintf("following:%d", uid)
}

func followersKey(uid int64) string {
	return fmt.Sprintf("followers:%d", uid)
}

func tweetKey(tid int64) string {
	return fmt.Sprintf("tweets:%d", tid)
}

func userTweetsKey(uid int64) string {
	return fmt.Sprintf("user:tweets:%d", uid)
}

func parseIDs(members []string) ([]int64, error) {
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q: %w", m, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
