package resolver

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/Singert/cgihttpd/core/talklog"
)

// MimeTypes 按扩展名在 mime.types 表中查找内容类型
//
// 表格式（通常为 /etc/mime.types）：
//
//	<MIMETYPE>   <EXT1> <EXT2> ...
type MimeTypes struct {
	TablePath string
	Default   string
}

func NewMimeTypes(tablePath, def string) *MimeTypes {
	return &MimeTypes{TablePath: tablePath, Default: def}
}

// Lookup 返回 path 对应的 MIME 类型，查不到时返回默认值，从不失败
func (m *MimeTypes) Lookup(path string) string {
	ext := extension(path)
	if ext == "" {
		return m.Default
	}

	f, err := os.Open(m.TablePath)
	if err != nil {
		talklog.Warn(talklog.GID(), "Unable to open mime table %s: %v, using %s", m.TablePath, err, m.Default)
		return m.Default
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 2 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		for _, e := range fields[1:] {
			if e == ext {
				return fields[0]
			}
		}
	}
	if err := sc.Err(); err != nil {
		talklog.Warn(talklog.GID(), "Error scanning mime table %s: %v", m.TablePath, err)
	}
	return m.Default
}

// extension 返回最后一级路径名中最后一个 '.' 之后的部分
func extension(path string) string {
	base := filepath.Base(path)
	i := strings.LastIndexByte(base, '.')
	if i < 0 {
		return ""
	}
	return base[i+1:]
}
