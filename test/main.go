package main

import (
	"bufio"
	"fmt"
	"os"
	"time"

	"github.com/lchliebedich/wordlib_bot/pkg/wordlib"
)

// 独立的词库调试工具：装载指定词库目录，从标准输入逐行读消息并打印匹配结果
// 用法: go run ./test <词库目录>
func main() {
	if len(os.Args) < 2 {
		fmt.Println("用法: wordlib_tester <词库目录>")
		os.Exit(1)
	}

	store := wordlib.NewStore(os.Args[1], wordlib.Options{})
	if err := store.Reload(); err != nil {
		fmt.Printf("词库装载失败: %v\n", err)
		os.Exit(1)
	}

	sn := store.Snapshot()
	fmt.Printf("词库装载成功，共 %d 条词条，输入消息开始测试（Ctrl-D退出）\n", len(sn.Rules))

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		text := scanner.Text()
		if text == "" {
			continue
		}

		ctx := &wordlib.Context{
			Timestamp:   time.Now(),
			UserID:      10001,
			MessageType: "private",
			SenderName:  "测试用户",
			Text:        text,
		}

		sn = store.Snapshot()
		res, ok := sn.Match(text, ctx)
		if !ok {
			fmt.Println("-> 无词条命中")
			continue
		}

		reply := sn.Execute(res, ctx)
		fmt.Printf("-> 命中 %s 词条%d (优先级%d)\n", res.Rule.Source, res.Rule.Block, res.Rule.Priority)
		if reply == "" {
			fmt.Println("-> 静默回复")
		} else {
			fmt.Printf("-> %s\n", reply)
		}
	}
}
