package constant

// Pagination limits
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Archiver defaults
const (
	DefaultRetentionDays = 90
	DefaultArchiveBatch  = 500
)

// Redis key prefix management
var redisKeyPrefix = "marketchat:"

// InitRedisKeyPrefix sets the global Redis key prefix
func InitRedisKeyPrefix(prefix string) {
	if prefix != "" {
		redisKeyPrefix = prefix
	}
}

// GetRedisKeyPrefix returns the global Redis key prefix
func GetRedisKeyPrefix() string {
	return redisKeyPrefix
}

// RedisKeyHistoryPage is the key format for cached history pages:
// {prefix}page:{conversation_id}:{page}:{page_size}
func RedisKeyHistoryPage() string {
	return redisKeyPrefix + "page:%s:%d:%d"
}

// RedisKeyHistoryPagePattern matches every cached page of one conversation.
func RedisKeyHistoryPagePattern() string {
	return redisKeyPrefix + "page:%s:*"
}

// RedisKeyUnread is the key format for the per-recipient unread counter:
// {prefix}unread:{conversation_id}:{user_id}
func RedisKeyUnread() string {
	return redisKeyPrefix + "unread:%s:%s"
}
