package dataset

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/Sternrassler/comics-character-sync/internal/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(api ObjectAPI) *Store {
	store := NewStore(api, "test-bucket", "characters/", zerolog.Nop())
	n := 0
	store.newName = func() string {
		n++
		return fmt.Sprintf("part-%03d", n)
	}
	return store
}

func TestNewStore_Panic(t *testing.T) {
	assert.Panics(t, func() {
		NewStore(nil, "bucket", "prefix", zerolog.Nop())
	})
}

func TestStore_Location(t *testing.T) {
	store := newTestStore(testutil.NewFakeS3())
	assert.Equal(t, "s3://test-bucket/characters", store.Location())
}

func TestStore_Read_NotFound(t *testing.T) {
	api := testutil.NewFakeS3()
	api.PutRaw("other/part.csv", []byte("ID,NAME,COMIC_COUNT\n1,A,1\n"))
	api.PutRaw("characters/_SUCCESS", []byte(""))

	store := newTestStore(api)
	_, err := store.Read(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_Read_ListError(t *testing.T) {
	api := testutil.NewFakeS3()
	api.ListErr = errors.New("access denied")

	store := newTestStore(api)
	_, err := store.Read(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "access denied")
}

func TestStore_Read_GetError(t *testing.T) {
	api := testutil.NewFakeS3()
	api.PutRaw("characters/a.csv", []byte("ID,NAME,COMIC_COUNT\n1,A,1\n"))
	api.GetErr = errors.New("slow down")

	store := newTestStore(api)
	_, err := store.Read(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestStore_AppendThenRead(t *testing.T) {
	api := testutil.NewFakeS3()
	store := newTestStore(api)
	ctx := context.Background()

	first := []Record{
		{ID: 1011334, Name: "3-D Man", ComicCount: 12},
		{ID: 1017100, Name: "A-Bomb (HAS)", ComicCount: 4},
	}
	second := []Record{
		{ID: 1009144, Name: "A.I.M.", ComicCount: 53},
	}

	require.NoError(t, store.Append(ctx, first))
	require.NoError(t, store.Append(ctx, second))

	assert.Equal(t, []string{"characters/part-001.csv", "characters/part-002.csv"}, api.Keys())

	got, err := store.Read(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, append(first, second...), got)
}

func TestStore_Read_AcrossListPages(t *testing.T) {
	api := testutil.NewFakeS3()
	api.PageSize = 2
	for i := 1; i <= 5; i++ {
		api.PutRaw(fmt.Sprintf("characters/part-%03d.csv", i), []byte(fmt.Sprintf("ID,NAME,COMIC_COUNT\n%d,Hero %d,%d\n", i, i, i)))
	}
	api.PutRaw("characters/_SUCCESS", []byte(""))

	store := newTestStore(api)
	got, err := store.Read(context.Background())
	require.NoError(t, err)

	assert.Len(t, got, 5)
	assert.Contains(t, got, Record{ID: 5, Name: "Hero 5", ComicCount: 5})
	assert.Equal(t, 3, api.ListCount())
}

func TestStore_Append_Empty(t *testing.T) {
	api := testutil.NewFakeS3()
	store := newTestStore(api)

	require.NoError(t, store.Append(context.Background(), nil))
	assert.Equal(t, 0, api.PutCount())
	assert.Empty(t, api.Keys())
}

func TestStore_Append_PutError(t *testing.T) {
	api := testutil.NewFakeS3()
	api.PutErr = errors.New("bucket gone")
	store := newTestStore(api)

	err := store.Append(context.Background(), []Record{{ID: 1, Name: "A", ComicCount: 0}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket gone")
}
