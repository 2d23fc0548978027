package todo_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quiltdb/quilt/internal/record"
	"github.com/quiltdb/quilt/internal/replica"
	"github.com/quiltdb/quilt/internal/store"
	"github.com/quiltdb/quilt/internal/testutil"
	"github.com/quiltdb/quilt/internal/todo"
)

func newAliceService(t *testing.T) (*todo.Service, *replica.Replica) {
	t.Helper()
	rep := testutil.OpenReplica(t, "alice@demo", "Alice", "alice-phone")
	return testutil.NewService(t, rep), rep
}

func selectAll(t *testing.T, rep *replica.Replica, table string) []record.Object {
	t.Helper()
	records, err := store.Select(context.Background(), rep.Store().DB(), table, nil)
	require.NoError(t, err)
	return records
}

func TestCreateList(t *testing.T) {
	svc, _ := newAliceService(t)
	ctx := context.Background()

	id, err := svc.CreateList(ctx, "Groceries")
	require.NoError(t, err)
	assert.Equal(t, "alice-phone-1", id)

	lists, err := svc.Lists(ctx)
	require.NoError(t, err)
	require.Len(t, lists, 1)
	assert.Equal(t, record.String("Groceries"), lists[0]["title"])
	assert.Equal(t, record.String("alice@demo"), lists[0]["owner"])
	// New lists start in the owner's personal realm.
	assert.Equal(t, record.String("alice@demo"), lists[0]["realmId"])
}

func TestCreateListRequiresTitle(t *testing.T) {
	svc, _ := newAliceService(t)

	_, err := svc.CreateList(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "title")
}

func TestAddItemInheritsListRealm(t *testing.T) {
	svc, _ := newAliceService(t)
	ctx := context.Background()

	list, err := svc.CreateList(ctx, "Groceries")
	require.NoError(t, err)
	item, err := svc.AddItem(ctx, list, "Milk")
	require.NoError(t, err)

	items, err := svc.Items(ctx, list)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, record.String(item), items[0]["id"])
	assert.Equal(t, record.String("Milk"), items[0]["title"])
	assert.Equal(t, record.Bool(false), items[0]["done"])
	assert.Equal(t, record.String("alice@demo"), items[0]["realmId"])
}

func TestAddItemToSharedListLandsInTiedRealm(t *testing.T) {
	svc, _ := newAliceService(t)
	ctx := context.Background()

	list, err := svc.CreateList(ctx, "Groceries")
	require.NoError(t, err)
	realmID, err := svc.MakeSharable(ctx, list)
	require.NoError(t, err)

	_, err = svc.AddItem(ctx, list, "Milk")
	require.NoError(t, err)

	items, err := svc.Items(ctx, list)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, record.String(realmID), items[0]["realmId"])
}

func TestAddItemUnknownList(t *testing.T) {
	svc, _ := newAliceService(t)

	_, err := svc.AddItem(context.Background(), "no-such-list", "Milk")
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestSetDone(t *testing.T) {
	svc, _ := newAliceService(t)
	ctx := context.Background()

	list, err := svc.CreateList(ctx, "Groceries")
	require.NoError(t, err)
	item, err := svc.AddItem(ctx, list, "Milk")
	require.NoError(t, err)

	require.NoError(t, svc.SetDone(ctx, item, true))
	items, err := svc.Items(ctx, list)
	require.NoError(t, err)
	assert.Equal(t, record.Bool(true), items[0]["done"])

	require.NoError(t, svc.SetDone(ctx, item, false))
	items, err = svc.Items(ctx, list)
	require.NoError(t, err)
	assert.Equal(t, record.Bool(false), items[0]["done"])
}

func TestSetDoneUnknownItem(t *testing.T) {
	svc, _ := newAliceService(t)

	err := svc.SetDone(context.Background(), "no-such-item", true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestItemsScopedToList(t *testing.T) {
	svc, _ := newAliceService(t)
	ctx := context.Background()

	a, err := svc.CreateList(ctx, "Groceries")
	require.NoError(t, err)
	b, err := svc.CreateList(ctx, "Chores")
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, a, "Milk")
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, b, "Vacuum")
	require.NoError(t, err)

	items, err := svc.Items(ctx, a)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, record.String("Milk"), items[0]["title"])
}
