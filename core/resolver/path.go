package resolver

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsafePath 解析后的路径不在根目录之内
var ErrUnsafePath = errors.New("path escapes root")

// PathResolver 把 URI 映射为根目录内的规范化绝对路径
type PathResolver struct {
	root string
}

// NewPathResolver 规范化根目录（绝对路径 + 解析符号链接）
func NewPathResolver(root string) (*PathResolver, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("root %s: %w", root, err)
	}
	canon, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("root %s: %w", root, err)
	}
	return &PathResolver{root: canon}, nil
}

// Root 返回规范化后的根目录
func (p *PathResolver) Root() string {
	return p.root
}

// Resolve 拼接根目录与 URI 并规范化；结果不在根目录内时返回 ErrUnsafePath
func (p *PathResolver) Resolve(uri string) (string, error) {
	canon, err := canonicalize(p.root + string(filepath.Separator) + uri)
	if err != nil {
		return "", err
	}
	if !p.contains(canon) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, uri)
	}
	return canon, nil
}

// contains 前缀之后必须是路径分隔符或字符串结束，
// 否则 /srv/app 会放行 /srv/app-other
func (p *PathResolver) contains(path string) bool {
	if path == p.root {
		return true
	}
	prefix := p.root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(path, prefix)
}

// canonicalize 类似 realpath(3)，但允许末尾若干级不存在：
// 对最深的已存在祖先解析符号链接，再拼上剩余部分。
func canonicalize(path string) (string, error) {
	path = filepath.Clean(path)
	resolved, err := filepath.EvalSymlinks(path)
	if err == nil {
		return resolved, nil
	}
	if !errors.Is(err, fs.ErrNotExist) && !errors.Is(err, os.ErrInvalid) {
		return "", err
	}

	var rest []string
	dir := path
	for {
		parent, base := filepath.Split(dir)
		parent = filepath.Clean(parent)
		rest = append(rest, base)
		if parent == dir {
			return "", err
		}
		dir = parent
		resolved, perr := filepath.EvalSymlinks(dir)
		if perr == nil {
			for i := len(rest) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, rest[i])
			}
			return resolved, nil
		}
		if !errors.Is(perr, fs.ErrNotExist) {
			return "", perr
		}
	}
}
