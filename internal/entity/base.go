package entity

import (
	"sort"
	"strings"
	"time"
)

// NowUnixMilli returns current unix timestamp in milliseconds
func NowUnixMilli() int64 {
	return time.Now().UnixMilli()
}

// GenPairKey generates the deterministic key for an unordered participant pair.
// Format: {min(userA,userB)}:{max(userA,userB)}
// Uses ":" as separator between userIds to support userIds containing "_"
func GenPairKey(userA, userB string) string {
	users := []string{userA, userB}
	sort.Strings(users)
	return users[0] + ":" + users[1]
}

// SplitPairKey splits a pair key back into its two participant ids.
func SplitPairKey(pairKey string) (string, string, bool) {
	idx := strings.Index(pairKey, ":")
	if idx <= 0 || idx == len(pairKey)-1 {
		return "", "", false
	}
	return pairKey[:idx], pairKey[idx+1:], true
}
