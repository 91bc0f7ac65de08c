package scrape

// thread page
const (
	selectThreadTitle   = "h1.p-title-value"
	selectTitlePrefixes = "h1.p-title-value span.label"
	selectTitleLabels   = "a.labelLink, span.label, span.label-append"
	selectTags          = "span.js-tagList a.tagItem"
	selectOwner         = "div.p-description a.username"
	selectCreated       = "div.p-description time"
	selectJsonLd        = `script[type="application/ld+json"]`
	selectBreadcrumbs   = "ul.p-breadcrumbs li span[itemprop=name]"
	selectLastPage      = ".pageNav-main li:last-child a"
)

// posts
const (
	selectPost          = "article.message"
	selectPostNumber    = "ul.message-attribution-opposite li:last-child a"
	selectPostPublished = "header.message-attribution time"
	selectPostLastEdit  = "div.message-lastEdit time"
	selectPostOwner     = "h4.message-name a.username"
	selectPostBookmark  = "a.bookmarkLink.is-bookmarked"
	selectPostBody      = "div.message-body div.bbWrapper"
	selectSpoilerTitle  = "button.bbCodeSpoiler-button"
	selectSpoilerBody   = "div.bbCodeSpoiler-content"
	selectPostImages    = "img.bbImage"
)

// member page
const (
	selectMemberName     = "h1.memberHeader-name span.username"
	selectMemberAvatar   = "div.memberHeader-avatar img"
	selectMemberTitle    = "div.memberHeader-content span.userTitle"
	selectMemberBanners  = "div.memberHeader-content em.userBanner"
	selectMemberPairs    = "div.memberHeader-content dl.pairs"
	selectMemberFollow   = "a[data-sk-follow]"
	selectMemberIgnore   = "a[data-sk-ignore]"
	selectMemberPrivate  = "div.blockMessage"
	selectCurrentUserId  = "a.p-navgroup-link--user span[data-user-id]"
	selectCurrentUserUrl = "a.p-navgroup-link--user"
)

// account lists
const (
	selectWatchedThread   = "div.structItem--thread"
	selectStructTitle     = "div.structItem-title a:last-of-type"
	selectStructForum     = "div.structItem-minor ul.structItem-parts li:last-child a"
	selectStructAuthors   = "ul.structItem-parts a.username"
	selectBookmark        = "ol.listPlain > li.block-row"
	selectBookmarkTitle   = "div.contentRow-title a"
	selectBookmarkSnippet = "div.contentRow-snippet"
	selectBookmarkOwner   = "div.contentRow-minor a.username"
	selectAlert           = "li.js-alert"
	selectAlertBody       = "div.contentRow-main"
	selectAlertLink       = "a.fauxBlockLink-blockLink"
	selectConversation    = "div.structItem--conversation"
)
