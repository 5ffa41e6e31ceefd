package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meur/tierdeck/internal/models"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testDoc(title string) *models.TierlistTemplate {
	doc := models.DefaultTemplate()
	doc.TemplateTitle = title
	return doc
}

func TestUniqueIDShapeAndTables(t *testing.T) {
	s := testStore(t)

	id, err := s.UniqueID("templates")
	require.NoError(t, err)
	assert.Len(t, id, 8)
	for _, c := range id {
		assert.True(t, (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9'),
			"unexpected id character %q", c)
	}

	_, err = s.UniqueID("tierlists")
	require.NoError(t, err)

	_, err = s.UniqueID("users; DROP TABLE templates")
	assert.Error(t, err)
}

func TestTemplateLifecycle(t *testing.T) {
	s := testStore(t)

	require.NoError(t, s.CreateTemplate(&Record{
		ID: "tpl00001", Owner: "user-1", IsPrivate: true, Doc: testDoc("v1"),
	}))

	rec, err := s.GetTemplate("tpl00001")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "user-1", rec.Owner)
	assert.True(t, rec.IsPrivate)
	assert.False(t, rec.Deleted)
	assert.Equal(t, "v1", rec.Doc.TemplateTitle)

	// Missing rows come back as nil, not an error.
	missing, err := s.GetTemplate("nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUpdateTemplatePreservesOwner(t *testing.T) {
	s := testStore(t)

	require.NoError(t, s.CreateTemplate(&Record{
		ID: "tpl00001", Owner: "user-1", IsPrivate: true, Doc: testDoc("v1"),
	}))
	require.NoError(t, s.UpdateTemplate("tpl00001", testDoc("v2"), false))

	rec, err := s.GetTemplate("tpl00001")
	require.NoError(t, err)
	assert.Equal(t, "user-1", rec.Owner, "updates must never reassign ownership")
	assert.False(t, rec.IsPrivate)
	assert.Equal(t, "v2", rec.Doc.TemplateTitle)
}

func TestSoftDeleteKeepsRow(t *testing.T) {
	s := testStore(t)

	require.NoError(t, s.CreateTemplate(&Record{
		ID: "tpl00001", Owner: "user-1", Doc: testDoc("v1"),
	}))
	require.NoError(t, s.SoftDeleteTemplate("tpl00001", "user-1"))

	rec, err := s.GetTemplate("tpl00001")
	require.NoError(t, err)
	require.NotNil(t, rec, "soft delete must keep the row")
	assert.True(t, rec.Deleted)
	assert.Equal(t, "user-1", rec.DeletedBy)
	require.NotNil(t, rec.DeletedAt)
	assert.Equal(t, "v1", rec.Doc.TemplateTitle, "the document survives a soft delete")
}

func TestSetTemplateVisibility(t *testing.T) {
	s := testStore(t)

	require.NoError(t, s.CreateTemplate(&Record{
		ID: "tpl00001", Owner: "user-1", IsPrivate: true, Doc: testDoc("v1"),
	}))
	require.NoError(t, s.SetTemplateVisibility("tpl00001", false))

	rec, err := s.GetTemplate("tpl00001")
	require.NoError(t, err)
	assert.False(t, rec.IsPrivate)
}

func TestListTierlistsByOwnerSkipsDeleted(t *testing.T) {
	s := testStore(t)

	require.NoError(t, s.CreateTierlist(&Record{ID: "tl000001", Owner: "user-1", Doc: testDoc("a")}))
	require.NoError(t, s.CreateTierlist(&Record{ID: "tl000002", Owner: "user-1", Doc: testDoc("b")}))
	require.NoError(t, s.CreateTierlist(&Record{ID: "tl000003", Owner: "user-2", Doc: testDoc("c")}))
	require.NoError(t, s.SoftDeleteTierlist("tl000002", "user-1"))

	out, err := s.ListTierlistsByOwner("user-1")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "tl000001", out[0].ID)
}

func TestImageRecords(t *testing.T) {
	s := testStore(t)

	require.NoError(t, s.CreateImage("img-1", "user-1"))
	require.NoError(t, s.CreateImage("img-2", "user-1"))
	require.NoError(t, s.CreateImage("img-3", "user-2"))

	n, err := s.CountUserImages("user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rec, err := s.GetImage("img-1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "user-1", rec.UserID)
	assert.False(t, rec.Blocked)

	missing, err := s.GetImage("nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestBlockImagesBatch(t *testing.T) {
	s := testStore(t)

	require.NoError(t, s.CreateImage("img-1", "user-1"))
	require.NoError(t, s.CreateImage("img-2", "user-1"))
	require.NoError(t, s.CreateImage("img-3", "user-1"))

	require.NoError(t, s.BlockImages([]string{"img-1", "img-3"}))

	n, err := s.CountUserImages("user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "blocked images no longer count toward the cap")

	list, err := s.ListUserImages("user-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "img-2", list[0].ID)

	rec, err := s.GetImage("img-1")
	require.NoError(t, err)
	assert.True(t, rec.Blocked, "blocked records stay readable for moderation")
}

func TestUserModeration(t *testing.T) {
	s := testStore(t)

	disabled, err := s.IsUserDisabled("user-1")
	require.NoError(t, err)
	assert.False(t, disabled, "unknown users are not disabled")

	require.NoError(t, s.DisableUser("user-1"))
	disabled, err = s.IsUserDisabled("user-1")
	require.NoError(t, err)
	assert.True(t, disabled)

	// Disabling twice is idempotent.
	require.NoError(t, s.DisableUser("user-1"))
}

func TestBlockOwnerDocuments(t *testing.T) {
	s := testStore(t)

	require.NoError(t, s.CreateTemplate(&Record{ID: "tpl00001", Owner: "user-1", Doc: testDoc("t")}))
	require.NoError(t, s.CreateTierlist(&Record{ID: "tl000001", Owner: "user-1", Doc: testDoc("l")}))
	require.NoError(t, s.CreateTemplate(&Record{ID: "tpl00002", Owner: "user-2", Doc: testDoc("other")}))

	require.NoError(t, s.BlockOwnerDocuments("user-1"))

	rec, err := s.GetTemplate("tpl00001")
	require.NoError(t, err)
	assert.True(t, rec.Blocked)

	rec, err = s.GetTierlist("tl000001")
	require.NoError(t, err)
	assert.True(t, rec.Blocked)

	rec, err = s.GetTemplate("tpl00002")
	require.NoError(t, err)
	assert.False(t, rec.Blocked, "other owners are untouched")
}
