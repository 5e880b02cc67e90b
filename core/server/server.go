package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/net/netutil"

	"github.com/Singert/cgihttpd/core/config"
	"github.com/Singert/cgihttpd/core/handler"
	"github.com/Singert/cgihttpd/core/request"
	"github.com/Singert/cgihttpd/core/talklog"
)

// acceptRetryDelay Accept 出错后重试前的等待时间
const acceptRetryDelay = 50 * time.Millisecond

// HTTPServer 接受连接并把每个连接交给 Handler 处理
type HTTPServer struct {
	Addr           string             // 服务器地址
	ServerPort     int                // 实际监听的端口
	Mode           string             // single | forking
	Listener       net.Listener       // 网络监听器
	ShutdownCtx    context.Context    // 关闭上下文
	ShutdownCancel context.CancelFunc // 关闭取消函数
	Wg             sync.WaitGroup     // 等待所有请求处理完成

	Cfg     *config.Config
	Handler *handler.Handler

	active atomic.Int32 // 正在处理的连接数
}

// NewHTTPServer 创建一个新的HTTP服务器
func NewHTTPServer(cfg *config.Config, h *handler.Handler) *HTTPServer {
	ctx, cancel := context.WithCancel(context.Background())
	return &HTTPServer{
		Addr:           cfg.Addr(),
		Mode:           cfg.Server.Mode,
		ShutdownCtx:    ctx,
		ShutdownCancel: cancel,
		Cfg:            cfg,
		Handler:        h,
	}
}

// ServerBind 绑定服务器地址；forking 模式下可限制同时处理的连接数
func (s *HTTPServer) ServerBind() error {
	listener, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.Addr, err)
	}
	if s.Mode == config.ModeForking && s.Cfg.Server.MaxConns > 0 {
		listener = netutil.LimitListener(listener, s.Cfg.Server.MaxConns)
	}
	s.Listener = listener

	_, port, err := net.SplitHostPort(listener.Addr().String())
	if err != nil {
		return err
	}
	s.ServerPort, _ = strconv.Atoi(port)
	return nil
}

// Serve 开始服务，直到 Shutdown 被调用
func (s *HTTPServer) Serve() error {
	if s.Listener == nil {
		if err := s.ServerBind(); err != nil {
			return err
		}
	}
	gid := talklog.GID()
	talklog.Boot(gid, "Listening on %s (%s mode)", s.Listener.Addr(), s.Mode)

	for {
		conn, err := s.Listener.Accept()
		if err != nil {
			select {
			case <-s.ShutdownCtx.Done():
				return nil
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			talklog.Error(gid, "Error accepting connection: %v", err)
			// EMFILE 之类的错误会持续出现，避免空转
			time.Sleep(acceptRetryDelay)
			continue
		}

		s.Wg.Add(1)
		if s.Mode == config.ModeForking {
			go s.handleConn(conn)
		} else {
			s.handleConn(conn)
		}
	}
}

// handleConn 处理一个连接上的一个请求，结束后关闭连接
func (s *HTTPServer) handleConn(c net.Conn) {
	s.active.Add(1)
	defer s.active.Add(-1)
	defer s.Wg.Done()

	gid := talklog.GID()
	talklog.SetPrefix(gid, "HTTP")
	defer talklog.ClearPrefix(gid)

	if d := s.Cfg.Server.DeadLine; d > 0 {
		if err := c.SetDeadline(time.Now().Add(d)); err != nil {
			talklog.Warn(gid, "Cannot set deadline on connection from %s: %v", c.RemoteAddr(), err)
		}
	}

	r := request.Accept(c)
	defer func() {
		if err := r.Close(); err != nil {
			talklog.Warn(gid, "Error closing connection from %s:%s: %v", r.Host, r.Port, err)
		}
	}()
	talklog.Info(gid, "Accepted request from %s:%s", r.Host, r.Port)

	s.Handler.Handle(r)
}

// ActiveConns 返回正在处理的连接数
func (s *HTTPServer) ActiveConns() int32 {
	return s.active.Load()
}

// Shutdown 关闭服务器：停止接受新连接并等待已有连接处理完
func (s *HTTPServer) Shutdown() error {
	s.ShutdownCancel()
	var err error
	if s.Listener != nil {
		err = s.Listener.Close()
	}
	s.Wg.Wait()
	return err
}
