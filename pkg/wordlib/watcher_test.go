package wordlib

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 编辑词库文件后watcher自动触发重载
func TestWatcherAutoReload(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "base.txt")
	require.NoError(t, os.WriteFile(file, []byte("签到\n旧回复"), 0644))

	store := NewStore(dir, Options{})
	require.NoError(t, store.Reload())

	w, err := NewWatcher(store, dir)
	require.NoError(t, err)
	w.debounce = 50 * time.Millisecond // 缩短去抖窗口加速测试

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	require.NoError(t, os.WriteFile(file, []byte("签到\n新回复"), 0644))

	assert.Eventually(t, func() bool {
		sn := store.Snapshot()
		res, ok := sn.Match("签到", testContext())
		return ok && sn.Execute(res, testContext()) == "新回复"
	}, 3*time.Second, 20*time.Millisecond)
}

// 去抖定时器跨多轮编辑复用：上一轮已触发过的定时器重置后不会放出过期的tick
func TestWatcherDebounceAcrossEdits(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "base.txt")
	require.NoError(t, os.WriteFile(file, []byte("签到\n第一版"), 0644))

	store := NewStore(dir, Options{})
	require.NoError(t, store.Reload())

	w, err := NewWatcher(store, dir)
	require.NoError(t, err)
	w.debounce = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	loaded := func(want string) func() bool {
		return func() bool {
			sn := store.Snapshot()
			res, ok := sn.Match("签到", testContext())
			return ok && sn.Execute(res, testContext()) == want
		}
	}

	// 第一轮编辑走完整个去抖周期
	require.NoError(t, os.WriteFile(file, []byte("签到\n第二版"), 0644))
	require.Eventually(t, loaded("第二版"), 3*time.Second, 20*time.Millisecond)

	// 第二轮重置已触发过的定时器，先写坏内容再立即写好内容，
	// 合并成一次重载且只能看到最终内容
	require.NoError(t, os.WriteFile(file, []byte("签到\n坏掉的%变量"), 0644))
	require.NoError(t, os.WriteFile(file, []byte("签到\n第三版"), 0644))
	require.Eventually(t, loaded("第三版"), 3*time.Second, 20*time.Millisecond)
}

// 写入非法内容时自动重载失败，旧快照继续生效
func TestWatcherReloadFailureKeepsOld(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "base.txt")
	require.NoError(t, os.WriteFile(file, []byte("签到\n正常回复"), 0644))

	store := NewStore(dir, Options{})
	require.NoError(t, store.Reload())
	old := store.Snapshot()

	w, err := NewWatcher(store, dir)
	require.NoError(t, err)
	w.debounce = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	require.NoError(t, os.WriteFile(file, []byte("签到\n坏掉的%变量"), 0644))

	// 给watcher足够时间尝试重载
	time.Sleep(500 * time.Millisecond)
	assert.Same(t, old, store.Snapshot())
}

// 非.txt文件的变更不触发重载
func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "base.txt"), []byte("签到\n回复"), 0644))

	store := NewStore(dir, Options{})
	require.NoError(t, store.Reload())
	old := store.Snapshot()

	w, err := NewWatcher(store, dir)
	require.NoError(t, err)
	w.debounce = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("备注"), 0644))

	time.Sleep(300 * time.Millisecond)
	assert.Same(t, old, store.Snapshot())
}
