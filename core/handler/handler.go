package handler

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/Singert/cgihttpd/core/config"
	"github.com/Singert/cgihttpd/core/request"
	"github.com/Singert/cgihttpd/core/resolver"
	"github.com/Singert/cgihttpd/core/talklog"
	"github.com/Singert/cgihttpd/core/utils"
)

var (
	ErrNotFound = errors.New("not found")
	ErrInternal = errors.New("internal error")
)

const faviconURI = "/favicon.ico"

// Handler 根据解析出的路径类型选择响应方式：
// 目录 -> 列目录，可执行文件 -> CGI，普通文件 -> 静态文件，其他 -> 错误页面
type Handler struct {
	Cfg   *config.Config
	Paths *resolver.PathResolver
	Mimes *resolver.MimeTypes
}

// NewHandler 用启动时构造好的配置创建处理器
func NewHandler(cfg *config.Config) (*Handler, error) {
	paths, err := resolver.NewPathResolver(cfg.Server.Root)
	if err != nil {
		return nil, err
	}
	return &Handler{
		Cfg:   cfg,
		Paths: paths,
		Mimes: resolver.NewMimeTypes(cfg.Mime.TablePath, cfg.Mime.Default),
	}, nil
}

// Handle 解析请求、解析路径、分发并写出响应，返回最终状态码
func (h *Handler) Handle(r *request.Request) (status utils.HTTPStatus) {
	gid := talklog.GID()

	defer func() {
		if rec := recover(); rec != nil {
			talklog.Error(gid, "panic while handling %s %s: %v", r.Method, r.URI, rec)
			status = utils.INTERNAL_SERVER_ERROR
		}
		r.Status = status
		talklog.Resp(gid, status)
	}()

	if err := request.Parse(r); err != nil {
		talklog.Warn(gid, "Parse request failed: %v", err)
		return SendError(r, utils.BAD_REQUEST)
	}
	talklog.Req(gid, r.Method, r.URI, r.Query)
	for _, hdr := range r.Headers {
		talklog.Hdr(gid, hdr.Name, hdr.Data)
	}

	return h.dispatch(r)
}

func (h *Handler) dispatch(r *request.Request) utils.HTTPStatus {
	gid := talklog.GID()

	path, err := h.Paths.Resolve(r.URI)
	if err != nil {
		// 路径为空，下面的 stat 一定失败
		talklog.Warn(gid, "Unable to resolve %s: %v", r.URI, err)
	}
	r.Path = path
	talklog.Debug(gid, "HTTP REQUEST PATH: %s", r.Path)

	info, err := os.Stat(r.Path)
	if err != nil {
		if r.URI == faviconURI {
			return h.sendEmpty(r)
		}
		return SendError(r, utils.NOT_FOUND)
	}

	switch {
	case info.IsDir():
		err = h.browse(r)
	case executable(r.Path):
		err = h.runCGI(r)
	case info.Mode().IsRegular():
		err = h.sendFile(r)
	default:
		talklog.Warn(gid, "Unsupported file type %s for %s", info.Mode().Type(), r.Path)
		return SendError(r, utils.BAD_REQUEST)
	}
	if err != nil {
		talklog.Error(gid, "%v", err)
		return SendError(r, statusOf(err))
	}
	return utils.OK
}

// executable 当前进程是否有执行权限（access(2) X_OK）
func executable(path string) bool {
	return unix.Access(path, unix.X_OK) == nil
}

// sendEmpty 浏览器会自动请求 /favicon.ico，不存在时返回空的 200
func (h *Handler) sendEmpty(r *request.Request) utils.HTTPStatus {
	writeHead(r, utils.OK, h.Mimes.Lookup(r.URI))
	return utils.OK
}

// statusOf 把错误归类为 HTTP 状态码
func statusOf(err error) utils.HTTPStatus {
	switch {
	case errors.Is(err, request.ErrParse):
		return utils.BAD_REQUEST
	case errors.Is(err, ErrNotFound), errors.Is(err, resolver.ErrUnsafePath):
		return utils.NOT_FOUND
	default:
		return utils.INTERNAL_SERVER_ERROR
	}
}

func notFound(format string, a ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, a...))
}

func internal(format string, a ...any) error {
	return fmt.Errorf("%w: %s", ErrInternal, fmt.Sprintf(format, a...))
}
