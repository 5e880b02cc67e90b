package handler

import (
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/Singert/cgihttpd/core/request"
	"github.com/Singert/cgihttpd/core/talklog"
	"github.com/Singert/cgihttpd/core/utils"
)

// 测试中替换，用来模拟 stat 之后文件被替换的情况
var (
	openFile = os.Open
	readDir  = os.ReadDir
)

// sendFile 打开文件并按固定大小的块原样写到连接
func (h *Handler) sendFile(r *request.Request) error {
	gid := talklog.GID()
	talklog.Info(gid, "Handling file request for %s", r.Path)

	f, err := openFile(r.Path)
	if err != nil {
		// stat 已经确认是普通文件，打不开算内部错误
		return internal("cannot open %s: %v", r.Path, err)
	}
	defer f.Close()

	mimetype := h.Mimes.Lookup(r.Path)

	if h.acceptsGzip(r) {
		writeHead(r, utils.OK, mimetype, "Content-Encoding", "gzip")
		gw := gzip.NewWriter(r)
		if _, err := copyChunks(gw, f); err != nil {
			talklog.Error(gid, "Error sending %s: %v", r.Path, err)
		}
		if err := gw.Close(); err != nil {
			talklog.Error(gid, "Error finishing gzip stream for %s: %v", r.Path, err)
		}
		return nil
	}

	writeHead(r, utils.OK, mimetype)
	if n, err := copyChunks(r, f); err != nil {
		// 响应头已经发出，只能记录
		talklog.Error(gid, "Error sending %s after %d bytes: %v", r.Path, n, err)
	}
	return nil
}

// acceptsGzip 配置开启且客户端的 Accept-Encoding 包含 gzip
func (h *Handler) acceptsGzip(r *request.Request) bool {
	if !h.Cfg.Server.IsGzip {
		return false
	}
	ae, ok := r.Headers.Get("Accept-Encoding")
	return ok && strings.Contains(ae, "gzip")
}

// copyChunks 以 request.BufSize 大小的块从 src 复制到 dst，直到 src 读完
func copyChunks(dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, request.BufSize)
	var written int64
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			w, werr := dst.Write(buf[:n])
			written += int64(w)
			if werr != nil {
				return written, werr
			}
		}
		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			return written, rerr
		}
	}
}
