package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/bookshelf/internal/domain/user"
)

func TestUserRepository_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()

	u := &user.User{FullName: "Ada Lovelace", Title: "reader", Age: 30}
	require.NoError(t, repo.Create(ctx, u))
	assert.Equal(t, uint(1), u.ID)
	assert.False(t, u.CreatedAt.IsZero())

	got, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, *u, *got)

	// 返回的是副本，修改不影响存储
	got.FullName = "changed"
	again, _ := repo.FindByID(ctx, u.ID)
	assert.Equal(t, "Ada Lovelace", again.FullName)
}

func TestUserRepository_CreateInvalid(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()

	cases := []struct {
		name string
		user *user.User
	}{
		{"姓名为空", &user.User{FullName: "", Title: "t", Age: 1}},
		{"头衔全是空白", &user.User{FullName: "n", Title: " \t ", Age: 1}},
		{"年龄为0", &user.User{FullName: "n", Title: "t", Age: 0}},
		{"年龄为负", &user.User{FullName: "n", Title: "t", Age: -3}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, repo.Create(ctx, tc.user), user.ErrInvalidUser)
			assert.ErrorIs(t, repo.Update(ctx, tc.user), user.ErrInvalidUser)
		})
	}
	assert.Equal(t, 0, repo.Count())

	// 失败的写入不消耗ID
	ok := &user.User{FullName: "n", Title: "t", Age: 1}
	require.NoError(t, repo.Create(ctx, ok))
	assert.Equal(t, uint(1), ok.ID)
}

func TestUserRepository_UpdateUpsert(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()

	t.Run("ID为0时新建", func(t *testing.T) {
		u := &user.User{FullName: "a", Title: "t1", Age: 1}
		require.NoError(t, repo.Update(ctx, u))
		assert.Equal(t, uint(1), u.ID)
	})

	t.Run("覆盖不存在的ID并推进计数器", func(t *testing.T) {
		u := &user.User{ID: 10, FullName: "b", Title: "t2", Age: 2}
		require.NoError(t, repo.Update(ctx, u))

		next := &user.User{FullName: "c", Title: "t3", Age: 3}
		require.NoError(t, repo.Create(ctx, next))
		assert.Equal(t, uint(11), next.ID)
	})

	t.Run("覆盖已存在的记录", func(t *testing.T) {
		u := &user.User{ID: 1, FullName: "a2", Title: "t1", Age: 5}
		require.NoError(t, repo.Update(ctx, u))
		got, err := repo.FindByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "a2", got.FullName)
		assert.Equal(t, 5, got.Age)
	})
}

func TestUserRepository_DeleteNeverReusesID(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()

	u := &user.User{FullName: "a", Title: "t", Age: 1}
	require.NoError(t, repo.Create(ctx, u))
	require.NoError(t, repo.Delete(ctx, u.ID))
	require.NoError(t, repo.Delete(ctx, u.ID), "重复删除不报错")

	_, err := repo.FindByID(ctx, u.ID)
	assert.ErrorIs(t, err, user.ErrUserNotFound)

	exists, err := repo.Exists(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	next := &user.User{FullName: "b", Title: "t", Age: 1}
	require.NoError(t, repo.Create(ctx, next))
	assert.Equal(t, uint(2), next.ID)
}

func TestUserRepository_FindByTitle(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()

	require.NoError(t, repo.Create(ctx, &user.User{FullName: "a", Title: "reader", Age: 1}))
	got, err := repo.FindByTitle(ctx, "reader")
	require.NoError(t, err)
	assert.Equal(t, uint(1), got.ID)

	_, err = repo.FindByTitle(ctx, "writer")
	assert.ErrorIs(t, err, user.ErrUserNotFound)
}

func TestUserRepository_ConcurrentCreate(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()

	const n = 50
	ids := make(chan uint, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			u := &user.User{FullName: "a", Title: "t", Age: 1}
			if err := repo.Create(ctx, u); err == nil {
				ids <- u.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[uint]bool)
	for id := range ids {
		assert.False(t, seen[id], "ID重复: %d", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)
}
