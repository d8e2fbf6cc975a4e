package wordlib

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Options 词库引擎的装载与匹配选项
type Options struct {
	DefaultMode    MatchMode // 词条未指定模式时的默认匹配方式
	CaseSensitive  bool      // 是否区分大小写
	MaxReplyLength int       // 回复文本长度上限(按字符数)，0表示不限制
}

func (o Options) defaultMode() MatchMode {
	if o.DefaultMode == 0 {
		return MatchExact
	}
	return o.DefaultMode
}

// Snapshot 一次成功装载产生的只读词条集合
// 发布之后不再修改，正在进行的匹配始终看到一致的词条集
type Snapshot struct {
	Rules    []*Rule
	Files    []string // 本快照的来源文件，内联装载时为空
	LoadedAt time.Time

	opts Options
}

// Store 持有当前生效的词库快照
// 装载/重载通过原子指针交换完成：解析全部成功才替换，失败时旧快照原样生效
type Store struct {
	dir    string
	opts   Options
	active atomic.Pointer[Snapshot]
	mu     sync.Mutex // 串行化装载，匹配侧无锁读快照
}

// NewStore 创建词库存储，dir为词库目录，可以为空（仅用Load装载内联文本）
func NewStore(dir string, opts Options) *Store {
	s := &Store{dir: dir, opts: opts}
	s.active.Store(&Snapshot{opts: opts, LoadedAt: time.Now()})
	return s
}

// Snapshot 返回当前生效的快照，调用方只能读取
func (s *Store) Snapshot() *Snapshot {
	return s.active.Load()
}

// Load 用一段内联词库文本替换当前快照，解析失败时保留旧快照
func (s *Store) Load(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rules, err := Parse(text, s.opts)
	if err != nil {
		return err
	}
	s.active.Store(&Snapshot{
		Rules:    rules,
		LoadedAt: time.Now(),
		opts:     s.opts,
	})
	return nil
}

// Reload 从词库目录重新装载所有.txt文件
// 文件按文件名升序装载，跨文件的词条顺序即文件顺序；任何一个文件解析失败
// 都会使整次重载失败并保留旧快照，不存在半新半旧的词条集
func (s *Store) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dir == "" {
		return fmt.Errorf("词库目录未配置")
	}

	files, err := ListFiles(s.dir)
	if err != nil {
		return err
	}

	var rules []*Rule
	for _, name := range files {
		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			return fmt.Errorf("读取词库文件 %s 失败: %w", name, err)
		}
		parsed, err := parseSource(name, string(data), s.opts, len(rules))
		if err != nil {
			return err
		}
		rules = append(rules, parsed...)
	}

	s.active.Store(&Snapshot{
		Rules:    rules,
		Files:    files,
		LoadedAt: time.Now(),
		opts:     s.opts,
	})
	return nil
}

// Validate 只做解析检查，不替换快照，返回解析出的词条数
func (s *Store) Validate(text string) (int, error) {
	rules, err := Parse(text, s.opts)
	if err != nil {
		return 0, err
	}
	return len(rules), nil
}

// ListFiles 列出词库目录下的.txt文件，按文件名升序
func ListFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("读取词库目录失败: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".txt" {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)
	return files, nil
}
