package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/lchliebedich/wordlib_bot/pkg/config"
	"github.com/lchliebedich/wordlib_bot/pkg/metrics"
	"github.com/lchliebedich/wordlib_bot/pkg/types"
)

// OneBotSource OneBot v11反向WebSocket消息源
// 本进程作为服务端监听，协议端（如NapCat/go-cqhttp）主动连入并推送事件；
// 回复动作沿同一条连接写回，所以OneBotSource同时实现sink.Sender
type OneBotSource struct {
	cfg     *config.Config
	output  chan *types.Message
	stats   *metrics.SourceMetrics
	server  *http.Server
	connWg  sync.WaitGroup
	done    chan struct{}
	echoSeq int64

	mu      sync.Mutex // 保护conn的替换
	writeMu sync.Mutex // 串行化单条连接上的写
	conn    *websocket.Conn
}

var upgrader = websocket.Upgrader{
	Subprotocols: []string{"onebot"},
	CheckOrigin:  func(r *http.Request) bool { return true },
}

func NewOneBotSource(cfg *config.Config) *OneBotSource {
	return &OneBotSource{
		cfg:    cfg,
		output: make(chan *types.Message, cfg.Pipeline.BufferSize),
		stats:  &metrics.SourceMetrics{},
		done:   make(chan struct{}),
	}
}

func (s *OneBotSource) Start(ctx context.Context, wg *sync.WaitGroup) error {
	mux := http.NewServeMux()
	mux.HandleFunc(s.cfg.Server.Path, s.handleWS)

	addr := fmt.Sprintf("%s:%s", s.cfg.Server.Host, s.cfg.Server.Port)
	s.server = &http.Server{Addr: addr, Handler: mux}

	logrus.Infof("OneBot反向WebSocket监听 %s%s", addr, s.cfg.Server.Path)

	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Errorf("OneBot WebSocket服务器错误: %v", err)
		}
	}()

	go func() {
		defer wg.Done()
		<-ctx.Done()
		close(s.done)
		s.closeConn()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			logrus.Warnf("关闭OneBot WebSocket服务器失败: %v", err)
		}

		s.connWg.Wait()
		close(s.output)
	}()

	return nil
}

func (s *OneBotSource) Output() <-chan *types.Message {
	return s.output
}

func (s *OneBotSource) GetStats() *metrics.SourceMetrics {
	return s.stats
}

func (s *OneBotSource) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.Errorf("WebSocket握手失败: %v", err)
		return
	}
	logrus.Infof("OneBot连接已建立: %s (子协议: %s)", conn.RemoteAddr(), conn.Subprotocol())

	// 只保留最新的一条连接，旧连接直接关闭
	s.mu.Lock()
	if s.conn != nil {
		s.conn.Close()
	}
	s.conn = conn
	s.mu.Unlock()

	s.connWg.Add(1)
	go s.readPump(conn)
}

// readPump 逐帧读取事件并转入流水线，连接断开后退出
func (s *OneBotSource) readPump(conn *websocket.Conn) {
	defer s.connWg.Done()
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			logrus.Infof("OneBot连接断开: %v", err)
			return
		}

		s.stats.IncrementEventsReceived()
		s.stats.AddBytesProcessed(uint64(len(data)))

		var head struct {
			PostType      string `json:"post_type"`
			MetaEventType string `json:"meta_event_type"`
			Echo          string `json:"echo"`
		}
		if err := json.Unmarshal(data, &head); err != nil {
			s.stats.IncrementErrorCount()
			logrus.Warnf("解析OneBot事件失败: %v", err)
			continue
		}

		switch head.PostType {
		case "message":
			msg := &types.Message{
				ID:       uuid.New().String(),
				RawEvent: data,
			}
			select {
			case s.output <- msg:
				s.stats.IncrementMessagesAccepted()
			case <-s.done:
				return
			}
		case "meta_event":
			if head.MetaEventType == "heartbeat" {
				s.stats.IncrementHeartbeatsSkipped()
				continue
			}
			logrus.Debugf("OneBot元事件: %s", head.MetaEventType)
		case "":
			// 没有post_type的帧是API调用的响应
			logrus.Debugf("OneBot API响应: echo=%s", head.Echo)
		default:
			logrus.Debugf("忽略OneBot事件: post_type=%s", head.PostType)
		}
	}
}

// SendPrivateMessage 通过当前连接发送私聊回复
func (s *OneBotSource) SendPrivateMessage(userID int64, text string) error {
	return s.sendAction("send_private_msg", map[string]interface{}{
		"user_id": userID,
		"message": text,
	})
}

// SendGroupMessage 通过当前连接发送群聊回复
func (s *OneBotSource) SendGroupMessage(groupID int64, text string) error {
	return s.sendAction("send_group_msg", map[string]interface{}{
		"group_id": groupID,
		"message":  text,
	})
}

func (s *OneBotSource) sendAction(action string, params map[string]interface{}) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("没有可用的OneBot连接")
	}

	frame := map[string]interface{}{
		"action": action,
		"params": params,
		"echo":   strconv.FormatInt(atomic.AddInt64(&s.echoSeq, 1), 10),
	}
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (s *OneBotSource) closeConn() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
}
