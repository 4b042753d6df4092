package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"threadx/internal/kv"
	"threadx/internal/model"
)

// Data as written by the browser client: numeric sample ids, fractional
// relevance, "avatar" on users, ISO timestamps and extra UI fields.
const (
	legacyUsers = `[
  {"id":"1700000000000","username":"legacy_lee","email":"lee@threadx.com","location":"Hanoi",
   "avatar":"https://ui-avatars.com/api/?name=legacy_lee","joinDate":"2023-11-14T22:13:20.000Z"}
]`
	legacyThreads = `[
  {"id":"thread-1700000000001-0","userId":1,"username":"sarah_dev","email":"sarah@threadx.com",
   "profileImage":"👩‍💻","bio":"Dev enthusiast","content":"Just launched my new React project!",
   "timestamp":"2023-11-14T22:13:21.000Z","likes":37,"liked":false,"reposts":4,"reposted":false,
   "comments":[{"id":"comment-1700000000100","userId":"1700000000000","username":"legacy_lee",
     "email":"lee@threadx.com","content":"nice","timestamp":"2023-11-14T23:00:00.000Z","likes":0,"liked":false,
     "replies":[{"id":"reply-1700000000200","userId":1,"username":"sarah_dev","content":"@legacy_lee thanks",
       "timestamp":"2023-11-14T23:05:00.000Z","likes":0,"liked":false}]}],
   "isOwner":false,"engagement":63,"relevance":42.17},
  {"id":"thread-1700000000002-x1","userId":"1700000000000","username":"legacy_lee","email":"lee@threadx.com",
   "avatar":"https://ui-avatars.com/api/?name=legacy_lee","content":"followers only",
   "createdAt":"2023-11-15T08:00:00.000Z","likes":0,"reposts":0,"comments":[],
   "isPrivate":true,"muteReplies":false,"disableReposts":false,"allowedViewers":["1700000000000",2],
   "engagement":0,"relevance":100}
]`
	legacySearches = `[
  {"id":"1700000000000","username":"legacy_lee","avatar":"https://ui-avatars.com/api/?name=legacy_lee",
   "timestamp":"2023-11-16T09:00:00.000Z"},
  {"id":2,"username":"mike_chen","avatar":"👨‍💼","timestamp":"2023-11-16T08:00:00.000Z"}
]`
	legacyAlerts = `[
  {"id":"alert-1700000000300-1700000000000","type":"new_thread","fromUserId":1,"fromUsername":"sarah_dev",
   "content":"posted a new thread","threadId":"thread-1700000000001-0","timestamp":"2023-11-14T22:13:22.000Z","read":false}
]`
)

func seedLegacy(t *testing.T, e *env) {
	t.Helper()
	require.NoError(t, e.repos.Store.SetString(e.ctx, kv.KeyUsers, legacyUsers))
	require.NoError(t, e.repos.Store.SetString(e.ctx, kv.KeyThreads, legacyThreads))
	require.NoError(t, e.repos.Store.SetString(e.ctx, kv.KeyRecentSearches, legacySearches))
	require.NoError(t, e.repos.Store.SetString(e.ctx, kv.AlertsKey("1700000000000"), legacyAlerts))
}

func TestLegacyData_ThreadsDecode(t *testing.T) {
	e := newEnv(t)
	seedLegacy(t, e)

	threads, err := e.threads.List(e.ctx, "2", "", model.CategoryAll)
	require.NoError(t, err)
	require.Len(t, threads, 2)

	private, sample := threads[0], threads[1]
	assert.Equal(t, "thread-1700000000002-x1", private.ID)
	assert.Equal(t, "1700000000000", private.UserID)
	assert.Equal(t, []string{"1700000000000", "2"}, private.AllowedViewers)
	assert.Equal(t, "https://ui-avatars.com/api/?name=legacy_lee", private.ProfileImage)
	assert.True(t, private.Timestamp.Equal(time.Date(2023, 11, 15, 8, 0, 0, 0, time.UTC)))

	assert.Equal(t, "1", sample.UserID)
	assert.InDelta(t, 42.17, sample.Relevance, 1e-9)
	assert.Equal(t, 37, sample.Likes)
	require.Len(t, sample.Comments, 1)
	require.Len(t, sample.Comments[0].Replies, 1)
	assert.Equal(t, "1", sample.Comments[0].Replies[0].UserID)

	// viewer "3" is outside the private snapshot
	threads, err = e.threads.List(e.ctx, "3", "", model.CategoryAll)
	require.NoError(t, err)
	assert.Equal(t, []string{"thread-1700000000001-0"}, threadIDs(threads))
}

func TestLegacyData_SurvivesNewPost(t *testing.T) {
	e := newEnv(t)
	seedLegacy(t, e)

	bob, _ := e.register(t, "bob", "")
	th := e.post(t, bob, "first post after upgrade", model.Privacy{})

	stored, err := e.repos.Threads.List(e.ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{th.ID, "thread-1700000000001-0", "thread-1700000000002-x1"}, threadIDs(stored))

	_, err = e.threads.AddComment(e.ctx, bob, "thread-1700000000001-0", "still here")
	require.NoError(t, err)
	got, err := e.threads.GetThread(e.ctx, bob.ID, "thread-1700000000001-0")
	require.NoError(t, err)
	assert.Len(t, got.Comments, 2)
	assert.InDelta(t, 42.17, got.Relevance, 1e-9)
}

func TestLegacyData_UsersAndAlerts(t *testing.T) {
	e := newEnv(t)
	seedLegacy(t, e)

	lee, err := e.repos.Users.GetByID(e.ctx, "1700000000000")
	require.NoError(t, err)
	assert.Equal(t, "https://ui-avatars.com/api/?name=legacy_lee", lee.ProfileImage)

	// registering keeps the existing collection and its uniqueness rules
	bob, _ := e.register(t, "bob", "")
	users, err := e.repos.Users.List(e.ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"1700000000000", bob.ID}, ids(users))

	alerts, err := e.alerts.List(e.ctx, "1700000000000", "")
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "1", alerts[0].FromUserID)
	assert.Equal(t, model.AlertNewThread, alerts[0].Type)

	recent, err := e.prefs.RecentSearches(e.ctx)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "2", recent[1].ID)
	assert.Equal(t, "👨‍💼", recent[1].ProfileImage)
	assert.True(t, recent[0].ViewedAt.Equal(time.Date(2023, 11, 16, 9, 0, 0, 0, time.UTC)))

	// viewing a profile keeps the older entries
	_, err = e.search.ViewProfile(e.ctx, bob, "1700000000000")
	require.NoError(t, err)
	recent, err = e.prefs.RecentSearches(e.ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"1700000000000", "2"}, []string{recent[0].ID, recent[1].ID})
}
