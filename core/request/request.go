package request

import (
	"bufio"
	"errors"
	"io"
	"net"

	"github.com/Singert/cgihttpd/core/utils"
)

const (
	// BufSize 读取请求行/请求头的固定缓冲区大小，超长的行会被截断
	BufSize = 8192

	maxHostLen = 1025 // NI_MAXHOST
	maxPortLen = 32   // NI_MAXSERV
)

// Request 每个连接对应一个请求，整个生命周期内只属于处理该连接的流程
type Request struct {
	Method  string
	URI     string  // '?' 之前的部分，只作为分发依据
	Query   string  // '?' 之后的部分，没有则为空串
	Path    string  // 沙箱内的文件系统路径；为空表示无法安全解析
	Headers Headers // 最后解析的在最前

	Host string // 对端地址
	Port string // 对端端口

	Stream io.ReadWriteCloser
	Status utils.HTTPStatus // 分发完成后记录的最终状态

	rd *bufio.Reader
	wr *bufio.Writer
}

// New 用一个已经建立的双向流创建请求，host/port 会被截断到固定长度
func New(stream io.ReadWriteCloser, host, port string) *Request {
	return &Request{
		Host:   truncate(host, maxHostLen-1),
		Port:   truncate(port, maxPortLen-1),
		Stream: stream,
		rd:     bufio.NewReaderSize(stream, BufSize),
		wr:     bufio.NewWriterSize(stream, BufSize),
	}
}

// Accept 从已接受的 TCP 连接创建请求，记录对端的数字地址和端口
func Accept(conn net.Conn) *Request {
	host, port, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		host, port = conn.RemoteAddr().String(), ""
	}
	return New(conn, host, port)
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// Write 写入响应；所有处理器都通过它直接向连接写数据
func (r *Request) Write(p []byte) (int, error) {
	return r.wr.Write(p)
}

// WriteString 写入字符串响应
func (r *Request) WriteString(s string) (int, error) {
	return r.wr.WriteString(s)
}

// Flush 把已缓冲的响应写到连接
func (r *Request) Flush() error {
	return r.wr.Flush()
}

// Close 刷新响应并释放连接，可重复调用
func (r *Request) Close() error {
	if r.Stream == nil {
		return nil
	}
	ferr := r.wr.Flush()
	cerr := r.Stream.Close()
	r.Stream = nil
	r.Headers = nil
	return errors.Join(ferr, cerr)
}
