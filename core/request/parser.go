package request

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Singert/cgihttpd/core/talklog"
)

// ErrParse 请求行或请求头格式错误（对应 400）
var ErrParse = errors.New("malformed request")

// Parse 解析请求行和请求头，填充 Method/URI/Query/Headers
//
// 请求格式：
//
//	<METHOD> <URI>[?<QUERY>] <VERSION>\r\n
//	<Name>: <Data>\r\n
//	...
//	\r\n
func Parse(r *Request) error {
	if err := parseRequestLine(r); err != nil {
		return err
	}
	return parseHeaders(r)
}

func parseRequestLine(r *Request) error {
	gid := talklog.GID()

	line, err := readLine(r)
	if err != nil {
		return fmt.Errorf("%w: reading request line: %v", ErrParse, err)
	}

	// 版本号（第三个字段）忽略
	words := strings.Fields(line)
	if len(words) < 2 {
		return fmt.Errorf("%w: bad request line %q", ErrParse, line)
	}

	method, uri := words[0], words[1]
	query := ""
	if i := strings.IndexByte(uri, '?'); i >= 0 {
		uri, query = uri[:i], uri[i+1:]
	}
	r.Method, r.URI, r.Query = method, uri, query

	talklog.Debug(gid, "HTTP METHOD: %s", r.Method)
	talklog.Debug(gid, "HTTP URI:    %s", r.URI)
	talklog.Debug(gid, "HTTP QUERY:  %s", r.Query)
	return nil
}

func parseHeaders(r *Request) error {
	gid := talklog.GID()

	for {
		line, err := readLine(r)
		if err != nil {
			// 流结束也视为请求头结束
			break
		}
		if line == "" {
			break
		}

		name, data, ok := strings.Cut(line, ":")
		if !ok {
			return fmt.Errorf("%w: header without ':' %q", ErrParse, line)
		}
		r.Headers = r.Headers.prepend(Header{
			Name: strings.TrimSpace(name),
			Data: strings.TrimSpace(data),
		})
	}

	if len(r.Headers) == 0 {
		return fmt.Errorf("%w: no headers", ErrParse)
	}
	for _, hdr := range r.Headers {
		talklog.Debug(gid, "HTTP HEADER %s = %s", hdr.Name, hdr.Data)
	}
	return nil
}

// readLine 读取一行（去掉行尾的 \r\n）。超过 BufSize 的部分被丢弃。
func readLine(r *Request) (string, error) {
	line, isPrefix, err := r.rd.ReadLine()
	if err != nil {
		return "", err
	}
	s := string(line)
	for isPrefix {
		_, isPrefix, err = r.rd.ReadLine()
		if err != nil {
			if err == io.EOF {
				break
			}
			return "", err
		}
	}
	return s, nil
}
