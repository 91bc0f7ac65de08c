package core

const DefaultBaseUrl = "https://f95zone.to"

const (
	PathLogin         = "/login/login"
	PathTwoFactor     = "/login/two-step"
	PathLatestData    = "/sam/latest_alpha/latest_data.php"
	PathLatestPage    = "/sam/latest_alpha/"
	PathSearch        = "/search/search/"
	PathThreads       = "/threads/"
	PathPosts         = "/posts/"
	PathMembers       = "/members/"
	PathAccount       = "/account/"
	PathWatched       = "/watched/threads"
	PathBookmarks     = "/account/bookmarks"
	PathAlerts        = "/account/alerts"
	PathConversations = "/conversations/"
)
